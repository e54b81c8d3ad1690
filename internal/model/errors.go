// Package model はドメインモデルを定義する。
package model

import (
	"errors"
	"fmt"
)

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
// errors.Isはコードの一致で判定するため、定義済みの番兵値と比較できる。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, interview, reminder, system
	Action   string // ユーザー向け対処方法
	Err      error  // 原因（レスポンスには含めない）
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap は原因エラーを返す。
func (e *APIError) Unwrap() error {
	return e.Err
}

// Is はエラーコードが一致する場合にtrueを返す。
func (e *APIError) Is(target error) bool {
	t, ok := target.(*APIError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// 定義済みエラーコード
const (
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeEmailAlreadyUsed   = "EMAIL_ALREADY_USED"
	ErrCodeInvalidToken       = "INVALID_TOKEN"
	ErrCodeUnauthenticated    = "UNAUTHENTICATED"
	ErrCodeNotifierFailure    = "NOTIFIER_FAILURE"
	ErrCodeValidationFailed   = "VALIDATION_FAILED"
	ErrCodeInterviewNotFound  = "INTERVIEW_NOT_FOUND"
	ErrCodeRateLimited        = "RATE_LIMIT_EXCEEDED"
	ErrCodeInternal           = "INTERNAL_ERROR"
)

// errors.Is の比較対象として使う番兵値。
// 返却には各コンストラクタで生成した新しい値を使うこと。
var (
	ErrInvalidCredentials = &APIError{Code: ErrCodeInvalidCredentials}
	ErrEmailAlreadyUsed   = &APIError{Code: ErrCodeEmailAlreadyUsed}
	ErrInvalidToken       = &APIError{Code: ErrCodeInvalidToken}
	ErrUnauthenticated    = &APIError{Code: ErrCodeUnauthenticated}
	ErrNotifierFailure    = &APIError{Code: ErrCodeNotifierFailure}
	ErrValidationFailed   = &APIError{Code: ErrCodeValidationFailed}
	ErrInterviewNotFound  = &APIError{Code: ErrCodeInterviewNotFound}
)

// NewInvalidCredentialsError は認証情報不一致エラーを生成する。
// メールアドレス未登録とパスワード不一致を区別しない。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "メールアドレスまたはパスワードが正しくありません。",
		Category: "auth",
		Action:   "入力内容を確認して再度ログインしてください。",
	}
}

// NewEmailAlreadyUsedError はメールアドレス重複エラーを生成する。
func NewEmailAlreadyUsedError() *APIError {
	return &APIError{
		Code:     ErrCodeEmailAlreadyUsed,
		Message:  "このメールアドレスは既に登録されています。",
		Category: "auth",
		Action:   "ログインするか、別のメールアドレスで登録してください。",
	}
}

// NewInvalidTokenError はトークン検証失敗エラーを生成する。
func NewInvalidTokenError(cause error) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidToken,
		Message:  "トークンが無効または期限切れです。",
		Category: "auth",
		Action:   "再度ログインしてください。",
		Err:      cause,
	}
}

// NewUnauthenticatedError は認証が必要な操作で識別子が無い場合のエラーを生成する。
func NewUnauthenticatedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthenticated,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// NewNotifierFailureError は通知送信失敗エラーを生成する。
func NewNotifierFailureError(cause error) *APIError {
	return &APIError{
		Code:     ErrCodeNotifierFailure,
		Message:  "メールの送信に失敗しました。",
		Category: "reminder",
		Action:   "しばらく待ってから再度お試しください。",
		Err:      cause,
	}
}

// NewValidationError は入力検証エラーを生成する。
func NewValidationError(detail string) *APIError {
	return &APIError{
		Code:     ErrCodeValidationFailed,
		Message:  fmt.Sprintf("入力内容が不正です: %s", detail),
		Category: "validation",
		Action:   "入力内容を確認してください。",
	}
}

// NewInterviewNotFoundError は面接未検出エラーを生成する。
func NewInterviewNotFoundError(interviewID string) *APIError {
	return &APIError{
		Code:     ErrCodeInterviewNotFound,
		Message:  fmt.Sprintf("指定された面接が見つかりません: %s", interviewID),
		Category: "interview",
		Action:   "面接IDを確認してください。",
	}
}

// NewRateLimitedError はレート制限超過エラーを生成する。
func NewRateLimitedError() *APIError {
	return &APIError{
		Code:     ErrCodeRateLimited,
		Message:  "リクエストが多すぎます。",
		Category: "system",
		Action:   "Retry-Afterヘッダーの秒数だけ待ってから再度お試しください。",
	}
}

// NewInternalError は内部エラーを生成する。原因はログにのみ記録する。
func NewInternalError(cause error) *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
		Err:      cause,
	}
}

// IsErrorCode はエラーチェーン内のAPIErrorが指定コードを持つかを返す。
func IsErrorCode(err error, code string) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Code == code
}
