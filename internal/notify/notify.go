// Package notify はリマインダーなどの通知メッセージを外部へ送信する。
package notify

import (
	"context"
	"errors"
	"log/slog"
)

// ErrSendFailed は通知の送信に失敗した場合に返されるエラー。
// 送信側の個別エラーはこのエラーでラップされる。
var ErrSendFailed = errors.New("notification send failed")

// Notifier はプレーンテキストのメッセージを1件送信する。
// 送信に失敗した場合はErrSendFailedをラップしたエラーを返す。
type Notifier interface {
	Send(ctx context.Context, to, subject, body string) error
}

// LogNotifier は送信の代わりにログ出力のみを行うNotifier。
// SMTPが未設定の開発環境で使う。
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier はLogNotifierを生成する。loggerがnilの場合はslog.Default()を使う。
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

// Send はメッセージ内容をログに出力する。常に成功する。
func (n *LogNotifier) Send(ctx context.Context, to, subject, body string) error {
	n.logger.InfoContext(ctx, "通知を送信しました（ログ出力のみ）",
		slog.String("to", to),
		slog.String("subject", subject),
		slog.String("body", body),
	)
	return nil
}

var _ Notifier = (*LogNotifier)(nil)
