package model

import "time"

// DefaultInterviewStatus はステータス未指定時に設定される面接ステータス。
const DefaultInterviewStatus = "Scheduled"

// Interview はユーザーが登録した面接の予定を表す。
//
// ReminderSentAtはリマインダー送信済みマーカーで、nilから非nilへ
// 一度だけ遷移し、以後リセットされることはない。
type Interview struct {
	ID             string
	UserID         string
	Company        string
	Role           string
	ScheduledAt    time.Time
	Status         string
	Notes          string
	ReminderSentAt *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Reminded はリマインダーが送信済みかどうかを返す。
func (i *Interview) Reminded() bool {
	return i.ReminderSentAt != nil
}

// InterviewImportRow は一括インポートの1行分の未検証データを表す。
// 日時は文字列のまま受け取り、サービス層で解釈する。
type InterviewImportRow struct {
	Company       string
	Role          string
	InterviewDate string
	Status        string
	Notes         string
}
