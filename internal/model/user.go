package model

import "time"

// User はサービス利用ユーザー（認証主体）を表す。
// Emailは正規化（前後空白除去・小文字化）済みで、全ユーザーで一意。
type User struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}
