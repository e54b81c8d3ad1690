package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/wneessen/go-mail"
)

// SMTPConfig はSMTP送信の設定。
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Timeout  time.Duration
	// Insecure がtrueの場合、STARTTLSを必須にせず利用可能な場合のみ使う。
	Insecure bool
}

// SMTPNotifier はSMTPでプレーンテキストメールを送信するNotifier。
type SMTPNotifier struct {
	cfg    SMTPConfig
	logger *slog.Logger
}

// NewSMTPNotifier はSMTPNotifierを生成する。
func NewSMTPNotifier(cfg SMTPConfig, logger *slog.Logger) *SMTPNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &SMTPNotifier{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "smtp_notifier")),
	}
}

// Send はメールを1通送信する。
// 送信ごとにSMTP接続を確立し、Timeoutを超えた場合は失敗として扱う。
func (n *SMTPNotifier) Send(ctx context.Context, to, subject, body string) error {
	if n.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.cfg.Timeout)
		defer cancel()
	}

	m := mail.NewMsg()
	if err := m.From(n.cfg.From); err != nil {
		return fmt.Errorf("%w: invalid from address: %v", ErrSendFailed, err)
	}
	if err := m.To(to); err != nil {
		return fmt.Errorf("%w: invalid to address: %v", ErrSendFailed, err)
	}
	m.Subject(subject)
	m.SetBodyString(mail.TypeTextPlain, body)

	tlsPolicy := mail.TLSMandatory
	if n.cfg.Insecure {
		tlsPolicy = mail.TLSOpportunistic
	}

	opts := []mail.Option{
		mail.WithPort(n.cfg.Port),
		mail.WithTLSPolicy(tlsPolicy),
	}
	if n.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(n.cfg.Username),
			mail.WithPassword(n.cfg.Password),
		)
	}

	c, err := mail.NewClient(n.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("%w: smtp client init: %v", ErrSendFailed, err)
	}

	if err := c.DialAndSendWithContext(ctx, m); err != nil {
		n.logger.Error("メール送信に失敗しました",
			slog.String("to", to),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("%w: %v", ErrSendFailed, err)
	}

	n.logger.Debug("メールを送信しました", slog.String("to", to))
	return nil
}

var _ Notifier = (*SMTPNotifier)(nil)
