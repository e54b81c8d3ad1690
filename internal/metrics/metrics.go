// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "interviewtracker"

// MetricsCollector はメトリクス収集のインターフェース。
// リマインダーワーカー、認証サービス、HTTPミドルウェアから利用する。
type MetricsCollector interface {
	RecordReminderSent()
	RecordReminderFailure(reason string)
	RecordSweep(duration time.Duration, due int)
	RecordSweepSkipped()
	RecordAuth(operation, outcome string)
	RecordHTTPStatus(statusCode int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	remindersSent   prometheus.Counter
	remindersFailed *prometheus.CounterVec
	sweepDuration   prometheus.Histogram
	remindersDue    prometheus.Gauge
	sweepsSkipped   prometheus.Counter
	authAttempts    *prometheus.CounterVec
	httpStatus      *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		remindersSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reminders_sent_total",
			Help:      "送信に成功したリマインダーの合計数",
		}),
		remindersFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reminders_failed_total",
			Help:      "送信に失敗したリマインダーの合計数",
		}, []string{"reason"}),
		sweepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reminder_sweep_duration_seconds",
			Help:      "リマインダー走査1回の所要時間（秒）",
			Buckets:   prometheus.DefBuckets,
		}),
		remindersDue: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "reminders_due",
			Help:      "直近の走査で検出した送信対象の件数",
		}),
		sweepsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reminder_sweeps_skipped_total",
			Help:      "前回の走査が実行中のためスキップした走査の合計数",
		}),
		authAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_attempts_total",
			Help:      "操作・結果別の認証試行数",
		}, []string{"operation", "outcome"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_responses_total",
			Help:      "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.remindersSent,
		c.remindersFailed,
		c.sweepDuration,
		c.remindersDue,
		c.sweepsSkipped,
		c.authAttempts,
		c.httpStatus,
	)

	return c
}

// RecordReminderSent はリマインダー送信成功を記録する。
func (c *Collector) RecordReminderSent() {
	c.remindersSent.Inc()
}

// RecordReminderFailure はリマインダー送信失敗を理由別に記録する。
func (c *Collector) RecordReminderFailure(reason string) {
	c.remindersFailed.WithLabelValues(reason).Inc()
}

// RecordSweep は走査の所要時間と検出件数を記録する。
func (c *Collector) RecordSweep(duration time.Duration, due int) {
	c.sweepDuration.Observe(duration.Seconds())
	c.remindersDue.Set(float64(due))
}

// RecordSweepSkipped は重複実行の回避でスキップした走査を記録する。
func (c *Collector) RecordSweepSkipped() {
	c.sweepsSkipped.Inc()
}

// RecordAuth は認証操作の結果を記録する。
func (c *Collector) RecordAuth(operation, outcome string) {
	c.authAttempts.WithLabelValues(operation, outcome).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

var _ MetricsCollector = (*Collector)(nil)

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// ワーカープロセスのメトリクス専用リスナーで使う。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}
