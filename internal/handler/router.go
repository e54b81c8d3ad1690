package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/interviewtracker/internal/metrics"
	"github.com/hitoshi/interviewtracker/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	TokenVerifier     middleware.TokenVerifier
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	StatusRecorder    middleware.HTTPStatusRecorder // nilの場合は集計しない
	Gatherer          prometheus.Gatherer           // nilの場合は/metricsを公開しない

	// ヘルスチェック
	Health HealthChecker

	// 認証
	AuthService AuthServiceInterface

	// 面接
	InterviewService InterviewServiceInterface

	// リマインダー
	ReminderTester ReminderTester
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → CORS → BearerAuth → Logging → (StatusMetrics)
//
// 登録・ログインにはクライアントIP単位のレート制限、
// それ以外のAPIにはユーザー単位のレート制限を追加する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewBearerAuthMiddleware(deps.TokenVerifier, deps.Logger))
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	if deps.StatusRecorder != nil {
		r.Use(middleware.NewStatusMetricsMiddleware(deps.StatusRecorder))
	}

	authHandler := NewAuthHandler(deps.AuthService)
	interviewHandler := NewInterviewHandler(deps.InterviewService)
	reminderHandler := NewReminderHandler(deps.ReminderTester)

	// --- 認証不要のルート ---
	r.Get("/health", NewHealthHandler(deps.Health))
	if deps.Gatherer != nil {
		r.Handle("/metrics", metrics.Handler(deps.Gatherer))
	}

	r.Group(func(r chi.Router) {
		r.Use(deps.RateLimiter.AuthMiddleware())
		r.Post("/api/auth/register", authHandler.Register)
		r.Post("/api/auth/login", authHandler.Login)
	})

	// --- 認証が必要なルート ---
	r.Group(func(r chi.Router) {
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Get("/api/auth/me", authHandler.Me)

		r.Route("/api/interviews", func(r chi.Router) {
			r.Get("/", interviewHandler.List)
			r.Post("/", interviewHandler.Create)
			r.Post("/import", interviewHandler.Import)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", interviewHandler.Get)
				r.Put("/", interviewHandler.Update)
				r.Delete("/", interviewHandler.Delete)
			})
		})

		r.Post("/api/reminders/test", reminderHandler.SendTest)
	})

	return r
}
