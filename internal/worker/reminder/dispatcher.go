// Package reminder は面接前日のリマインダー送信を行うバックグラウンドワーカーを提供する。
//
// 一定周期で [now+リード時間, now+リード時間+周期) に開始する未通知の面接を検索し、
// 1件ずつ所有者へ通知してから送信済みとして記録する。窓の幅は周期と等しいため、
// 連続する走査の窓は隙間なく接する。
package reminder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hitoshi/interviewtracker/internal/model"
	"github.com/hitoshi/interviewtracker/internal/notify"
	"github.com/hitoshi/interviewtracker/internal/repository"
)

// ErrSweepInProgress は前回の走査が完了していない場合にRunOnceが返すエラー。
var ErrSweepInProgress = errors.New("reminder sweep already in progress")

// 失敗理由のラベル
const (
	ReasonOwnerLookup  = "owner_lookup"
	ReasonOwnerMissing = "owner_missing"
	ReasonSend         = "send"
	ReasonMark         = "mark"
	ReasonPanic        = "panic"
)

// Metrics はリマインダー送信のメトリクスを記録する。
type Metrics interface {
	RecordReminderSent()
	RecordReminderFailure(reason string)
	RecordSweep(duration time.Duration, due int)
	RecordSweepSkipped()
}

// Config はDispatcherの設定。
type Config struct {
	// Period は走査周期。検索窓の幅も兼ねる。
	Period time.Duration
	// LeadTime は面接開始の何時間前に通知するか。
	LeadTime time.Duration
	// Location は本文に記載する日時のタイムゾーン。
	Location *time.Location
}

// SweepResult は1回の走査の集計。
type SweepResult struct {
	WindowStart time.Time
	WindowEnd   time.Time
	Due         int
	Sent        int
	Failed      int
}

// Option はDispatcherの設定を変更する関数型オプション。
type Option func(*Dispatcher)

// WithClock は現在時刻の取得関数を差し替える。
func WithClock(clock func() time.Time) Option {
	return func(d *Dispatcher) {
		d.clock = clock
	}
}

// WithMetrics はメトリクスの記録先を設定する。
func WithMetrics(m Metrics) Option {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

// Dispatcher は未通知の面接を検索してリマインダーを送信する。
// 走査は常に1つだけ実行され、重なった呼び出しはErrSweepInProgressで拒否される。
type Dispatcher struct {
	interviews repository.InterviewRepository
	users      repository.UserRepository
	notifier   notify.Notifier
	logger     *slog.Logger
	cfg        Config
	clock      func() time.Time
	metrics    Metrics

	mu sync.Mutex
}

// NewDispatcher はDispatcherを生成する。
// Periodが0以下の場合は5分、LeadTimeが0以下の場合は24時間、Locationがnilの場合はUTCを使う。
func NewDispatcher(
	interviews repository.InterviewRepository,
	users repository.UserRepository,
	notifier notify.Notifier,
	logger *slog.Logger,
	cfg Config,
	opts ...Option,
) *Dispatcher {
	if cfg.Period <= 0 {
		cfg.Period = 5 * time.Minute
	}
	if cfg.LeadTime <= 0 {
		cfg.LeadTime = 24 * time.Hour
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}

	d := &Dispatcher{
		interviews: interviews,
		users:      users,
		notifier:   notifier,
		logger:     logger,
		cfg:        cfg,
		clock:      time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Start は周期的な走査を開始する。起動直後に1回実行し、以後Periodごとに実行する。
// コンテキストがキャンセルされるまで戻らない。
func (d *Dispatcher) Start(ctx context.Context) {
	ticker := time.NewTicker(d.cfg.Period)
	defer ticker.Stop()

	d.logger.Info("リマインダーワーカーを開始しました",
		slog.Duration("interval", d.cfg.Period),
		slog.Duration("lead_time", d.cfg.LeadTime),
		slog.String("timezone", d.cfg.Location.String()),
	)

	d.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("リマインダーワーカーを停止しました")
			return
		case <-ticker.C:
			d.tick(ctx)
		}
	}
}

func (d *Dispatcher) tick(ctx context.Context) {
	if _, err := d.RunOnce(ctx); err != nil {
		if errors.Is(err, ErrSweepInProgress) {
			d.logger.Warn("前回のリマインダー走査が実行中のためスキップしました")
			return
		}
		d.logger.Error("リマインダー走査の実行に失敗しました",
			slog.String("error", err.Error()),
		)
	}
}

// RunOnce は送信対象の面接を1回検索し、順に通知する。
// 1件の送信失敗は他の面接の処理を妨げず、失敗した面接は未通知のまま残る。
// 検索自体に失敗した場合やコンテキストがキャンセルされた場合のみエラーを返す。
func (d *Dispatcher) RunOnce(ctx context.Context) (*SweepResult, error) {
	if !d.mu.TryLock() {
		if d.metrics != nil {
			d.metrics.RecordSweepSkipped()
		}
		return nil, ErrSweepInProgress
	}
	defer d.mu.Unlock()

	began := time.Now()
	now := d.clock()
	result := &SweepResult{
		WindowStart: now.Add(d.cfg.LeadTime),
		WindowEnd:   now.Add(d.cfg.LeadTime + d.cfg.Period),
	}

	due, err := d.interviews.FindDueUnnotified(ctx, result.WindowStart, result.WindowEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to find due interviews: %w", err)
	}
	result.Due = len(due)

	d.logger.Info("リマインダー走査を開始します",
		slog.Time("window_start", result.WindowStart),
		slog.Time("window_end", result.WindowEnd),
		slog.Int("due_count", result.Due),
	)

	for _, iv := range due {
		if err := ctx.Err(); err != nil {
			d.logger.Warn("リマインダー走査を中断しました",
				slog.Int("sent_count", result.Sent),
				slog.Int("remaining", result.Due-result.Sent-result.Failed),
			)
			return result, err
		}

		if reason := d.dispatch(ctx, iv); reason != "" {
			result.Failed++
			if d.metrics != nil {
				d.metrics.RecordReminderFailure(reason)
			}
			continue
		}
		result.Sent++
		if d.metrics != nil {
			d.metrics.RecordReminderSent()
		}
	}

	elapsed := time.Since(began)
	if d.metrics != nil {
		d.metrics.RecordSweep(elapsed, result.Due)
	}
	d.logger.Info("リマインダー走査が完了しました",
		slog.Int("due_count", result.Due),
		slog.Int("sent_count", result.Sent),
		slog.Int("failed_count", result.Failed),
		slog.Float64("duration_ms", float64(elapsed.Milliseconds())),
	)
	return result, nil
}

// dispatch は面接1件を通知し、失敗した場合はその理由を返す。成功時は空文字列。
// 送信に成功した面接のみ送信済みとして記録する。
func (d *Dispatcher) dispatch(ctx context.Context, iv *model.Interview) (reason string) {
	logger := d.logger.With(slog.String("interview_id", iv.ID))

	defer func() {
		if r := recover(); r != nil {
			logger.Error("リマインダー処理中にpanicが発生しました",
				slog.Any("panic", r),
			)
			reason = ReasonPanic
		}
	}()

	owner, err := d.users.FindByID(ctx, iv.UserID)
	if err != nil {
		logger.Error("面接の所有者の取得に失敗しました",
			slog.String("user_id", iv.UserID),
			slog.String("error", err.Error()),
		)
		return ReasonOwnerLookup
	}
	if owner == nil {
		logger.Error("面接の所有者が存在しません",
			slog.String("user_id", iv.UserID),
		)
		return ReasonOwnerMissing
	}

	msg := RenderReminder(iv, d.cfg.Location)
	if err := d.notifier.Send(ctx, owner.Email, msg.Subject, msg.Body); err != nil {
		logger.Error("リマインダーの送信に失敗しました。次回の走査で再試行します",
			slog.String("to", owner.Email),
			slog.String("error", err.Error()),
		)
		return ReasonSend
	}

	marked, err := d.interviews.MarkNotified(ctx, iv.ID, d.clock())
	if err != nil {
		// 送信済みだが記録に失敗したため、次回の走査で重複送信される可能性がある
		logger.Error("リマインダー送信済みの記録に失敗しました",
			slog.String("error", err.Error()),
		)
		return ReasonMark
	}
	if !marked {
		logger.Warn("リマインダーは既に送信済みとして記録されていました")
	}

	logger.Info("リマインダーを送信しました", slog.String("to", owner.Email))
	return ""
}

// SendTest はテスト用の固定メッセージを送信する。面接データには一切触れない。
// 送信に失敗した場合はNOTIFIER_FAILUREのAPIErrorを返す。
func (d *Dispatcher) SendTest(ctx context.Context, to string) error {
	if err := d.notifier.Send(ctx, to, testSubject, testBody); err != nil {
		d.logger.Error("テストリマインダーの送信に失敗しました",
			slog.String("to", to),
			slog.String("error", err.Error()),
		)
		return model.NewNotifierFailureError(err)
	}
	d.logger.Info("テストリマインダーを送信しました", slog.String("to", to))
	return nil
}
