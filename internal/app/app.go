package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hitoshi/interviewtracker/internal/auth"
	"github.com/hitoshi/interviewtracker/internal/config"
	"github.com/hitoshi/interviewtracker/internal/database"
	"github.com/hitoshi/interviewtracker/internal/handler"
	"github.com/hitoshi/interviewtracker/internal/interview"
	"github.com/hitoshi/interviewtracker/internal/logger"
	"github.com/hitoshi/interviewtracker/internal/metrics"
	"github.com/hitoshi/interviewtracker/internal/middleware"
	"github.com/hitoshi/interviewtracker/internal/notify"
	"github.com/hitoshi/interviewtracker/internal/repository"
	"github.com/hitoshi/interviewtracker/internal/security"
	"github.com/hitoshi/interviewtracker/internal/token"
	"github.com/hitoshi/interviewtracker/internal/worker/reminder"
)

// shutdownTimeout はグレースフルシャットダウンの待ち時間。
const shutdownTimeout = 30 * time.Second

// Init はアプリケーションの初期化を行う。
// JSON構造化ログをセットアップし、環境変数からConfigを読み込んでログレベルを反映する。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.SetLevel(logger.ParseLevel(cfg.LogLevel))
	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch cmd {
	case CommandWorker:
		return runWorker(ctx, cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(ctx, cfg)
	}
}

// openDatabase はDB接続を開き、疎通を確認する。
func openDatabase(ctx context.Context, databaseURL string) (*sql.DB, error) {
	db, err := database.Open(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// newRegistry はアプリケーションとランタイムのメトリクスを登録したレジストリを返す。
func newRegistry() (*prometheus.Registry, *metrics.Collector) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return registry, metrics.NewCollector(registry)
}

// newNotifier はSMTP設定があればSMTPNotifierを、無ければログ出力のみのLogNotifierを返す。
func newNotifier(cfg *config.Config, log *slog.Logger) notify.Notifier {
	if !cfg.SMTPEnabled() {
		log.Warn("SMTP_HOST is not set; reminders will only be logged")
		return notify.NewLogNotifier(log)
	}
	return notify.NewSMTPNotifier(notify.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.MailFrom,
		Timeout:  cfg.SMTPTimeout,
		Insecure: cfg.SMTPInsecure,
	}, log)
}

// newDispatcher はリマインダーのDispatcherを構築する。
func newDispatcher(cfg *config.Config, db *sql.DB, collector *metrics.Collector, log *slog.Logger) (*reminder.Dispatcher, error) {
	loc, err := time.LoadLocation(cfg.ReminderTimezone)
	if err != nil {
		return nil, fmt.Errorf("invalid reminder timezone: %w", err)
	}

	return reminder.NewDispatcher(
		repository.NewPostgresInterviewRepo(db),
		repository.NewPostgresUserRepo(db),
		newNotifier(cfg, log),
		log,
		reminder.Config{
			Period:   cfg.ReminderSweepInterval,
			LeadTime: cfg.ReminderLeadTime,
			Location: loc,
		},
		reminder.WithMetrics(collector),
	), nil
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// コンテキストがキャンセルされる（SIGINT/SIGTERM）とグレースフルシャットダウンを行う。
func runServe(ctx context.Context, cfg *config.Config) error {
	// 1. DB接続
	db, err := openDatabase(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	slog.Info("database connection established")

	log := slog.Default()
	registry, collector := newRegistry()

	// 2. リポジトリの初期化
	userRepo := repository.NewPostgresUserRepo(db)
	interviewRepo := repository.NewPostgresInterviewRepo(db)

	// 3. 認証
	tokens, err := token.NewService(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		return fmt.Errorf("failed to initialize token service: %w", err)
	}
	authService := auth.NewService(userRepo, auth.NewBcryptHasher(cfg.BcryptCost), tokens, collector)

	// 4. ドメインサービス
	interviewService := interview.NewService(interviewRepo, security.NewTextSanitizer())

	// テスト送信用。APIプロセスでは周期走査は行わない。
	dispatcher, err := newDispatcher(cfg, db, collector, log)
	if err != nil {
		return err
	}

	// 5. ルーターの構築
	rateLimiter := middleware.NewRateLimiter(middleware.NewRateLimiterConfig(cfg.RateLimitAuth, cfg.RateLimitGeneral))
	defer rateLimiter.Stop()

	router := handler.NewRouter(&handler.RouterDeps{
		Logger:            log,
		TokenVerifier:     tokens,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		StatusRecorder:    collector,
		Gatherer:          registry,
		Health:            db,
		AuthService:       authService,
		InterviewService:  interviewService,
		ReminderTester:    dispatcher,
	})

	// 6. HTTPサーバーの起動
	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.SMTPTimeout + 15*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return serveUntilDone(ctx, server, "API server")
}

// runWorker はワーカーモードで起動する。
// リマインダーの周期走査と、メトリクス専用のHTTPリスナーを起動する。
func runWorker(ctx context.Context, cfg *config.Config) error {
	db, err := openDatabase(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	slog.Info("database connection established (worker)")

	log := slog.Default()
	registry, collector := newRegistry()

	dispatcher, err := newDispatcher(cfg, db, collector, log)
	if err != nil {
		return err
	}

	metricsServer := &http.Server{
		Addr:              ":" + cfg.MetricsPort,
		Handler:           metrics.SetupMetricsRoute(registry),
		ReadHeaderTimeout: 5 * time.Second,
	}

	slog.Info("worker starting",
		slog.Duration("sweep_interval", cfg.ReminderSweepInterval),
		slog.Duration("lead_time", cfg.ReminderLeadTime),
		slog.String("timezone", cfg.ReminderTimezone),
		slog.Bool("smtp_enabled", cfg.SMTPEnabled()),
	)

	if err := runWithServer(ctx, metricsServer, "worker metrics server", dispatcher.Start); err != nil {
		return err
	}
	slog.Info("worker stopped gracefully")
	return nil
}

// runWithServer はserverを起動したままrunをブロッキング実行する。
// serverの起動に失敗した場合はrunのコンテキストをキャンセルし、そのエラーを返す。
func runWithServer(ctx context.Context, server *http.Server, name string, run func(context.Context)) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		err := serveUntilDone(ctx, server, name)
		if err != nil {
			cancel()
		}
		errCh <- err
	}()

	run(ctx)
	cancel()
	return <-errCh
}

// serveUntilDone はサーバーを起動し、コンテキストのキャンセルでシャットダウンする。
func serveUntilDone(ctx context.Context, server *http.Server, name string) error {
	listenErr := make(chan error, 1)
	go func() {
		slog.Info(name+" starting", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			listenErr <- err
		}
		close(listenErr)
	}()

	select {
	case err, ok := <-listenErr:
		if ok {
			return fmt.Errorf("%s listen error: %w", name, err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down " + name)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("%s shutdown failed: %w", name, err)
	}

	slog.Info(name + " stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	return checkHealth(fmt.Sprintf("http://localhost:%s/health", port))
}

func checkHealth(endpoint string) error {
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(endpoint)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLのパスワードをマスクする。
// 解析できないURLは全体を伏せる。
func maskDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "***"
	}
	return u.Redacted()
}
