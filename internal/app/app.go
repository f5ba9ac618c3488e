package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/hitoshi/chomp/internal/bulkadd"
	"github.com/hitoshi/chomp/internal/config"
	"github.com/hitoshi/chomp/internal/database"
	"github.com/hitoshi/chomp/internal/handler"
	"github.com/hitoshi/chomp/internal/logger"
	"github.com/hitoshi/chomp/internal/metrics"
	"github.com/hitoshi/chomp/internal/middleware"
	"github.com/hitoshi/chomp/internal/neighborhood"
	"github.com/hitoshi/chomp/internal/places"
	"github.com/hitoshi/chomp/internal/repository"
	"github.com/hitoshi/chomp/internal/security"
	"github.com/hitoshi/chomp/internal/website"
	"github.com/hitoshi/chomp/internal/worker/backfill"
	"github.com/hitoshi/chomp/internal/worker/cleanup"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

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
	)

	switch cmd {
	case CommandServe:
		return runServe(cfg)
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// 2. リポジトリの初期化
	neighborhoodRepo := repository.NewPostgresNeighborhoodRepo(db)
	restaurantRepo := repository.NewPostgresRestaurantRepo(db, neighborhoodRepo)
	dishRepo := repository.NewPostgresDishRepo(db)
	runRepo := repository.NewPostgresRunRepo(db)

	// 3. セキュリティサービスの初期化
	ssrfGuard := security.NewSSRFGuard()
	sanitizer := security.NewTextSanitizer()

	// 4. メトリクスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 5. ドメインサービスの初期化
	placesClient := places.NewClient(
		&http.Client{Timeout: cfg.PlacesTimeout},
		slog.Default(), cfg.PlacesBaseURL, cfg.PlacesAPIKey,
	)
	resolver := places.NewResolver(placesClient, slog.Default())
	enricher := neighborhood.NewEnricher(neighborhoodRepo, slog.Default())
	titleFetcher := website.NewTitleFetcher(ssrfGuard, cfg.WebsiteFetchTimeout, cfg.WebsiteMaxSize)

	checker := bulkadd.NewChecker(restaurantRepo, dishRepo, slog.Default())
	submitter := bulkadd.NewSubmitter(restaurantRepo, dishRepo, slog.Default())

	pipeline := bulkadd.NewPipeline(bulkadd.PipelineDeps{
		Sanitizer: sanitizer,
		Resolver:  resolver,
		Enricher:  enricher,
		Titles:    titleFetcher,
		Checker:   checker,
		Submitter: submitter,
		Runs:      runRepo,
		Limiter:   rate.NewLimiter(rate.Every(cfg.PlacesAPIInterval), 1),
		Metrics:   collector,
		Logger:    slog.Default(),
		MaxItems:  cfg.BulkMaxItems,
	})

	// 6. ルーターの構築
	rateLimiterCfg := middleware.DefaultRateLimiterConfig()
	// configのレート制限はreq/min単位なのでreq/secに変換する
	rateLimiterCfg.GeneralRate = rate.Limit(float64(cfg.RateLimitGeneral) / 60.0)
	rateLimiterCfg.GeneralBurst = cfg.RateLimitGeneral
	rateLimiterCfg.BulkAddRate = rate.Limit(float64(cfg.RateLimitBulk) / 60.0)
	rateLimiterCfg.BulkAddBurst = cfg.RateLimitBulk

	rateLimiter := middleware.NewRateLimiter(rateLimiterCfg)
	defer rateLimiter.Stop()

	deps := &handler.RouterDeps{
		HealthChecker:     db,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		AdminToken:        cfg.AdminToken,
		RateLimiter:       rateLimiter,
		Logger:            slog.Default(),

		MetricsCollector: collector,
		MetricsGatherer:  registry,

		BulkAddService: pipeline,
		CheckService:   checker,
		RunFinder:      runRepo,

		NeighborhoodFinder: neighborhoodRepo,
		PlaceSearcher:      placesClient,
		RestaurantSearcher: restaurantRepo,
	}

	router := handler.NewRouter(deps)

	// 7. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// DB接続を開き、地区バックフィルジョブと実行履歴クリーンアップジョブを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established (worker)")

	// 2. リポジトリの初期化
	neighborhoodRepo := repository.NewPostgresNeighborhoodRepo(db)
	restaurantRepo := repository.NewPostgresRestaurantRepo(db, neighborhoodRepo)
	runRepo := repository.NewPostgresRunRepo(db)

	// 3. メトリクスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 4. クリーンアップジョブの初期化
	cleanupJob := cleanup.NewCleanupJob(runRepo, collector, slog.Default())
	cleanupJob.RetentionDays = cfg.RunRetentionDays

	// 5. バックフィルジョブの初期化
	backfillJob := backfill.NewJob(restaurantRepo, neighborhoodRepo, slog.Default(), backfill.Config{
		Interval:         cfg.BackfillInterval,
		MaxCallsPerCycle: cfg.BackfillMaxCallsPerCycle,
	})

	// グレースフルシャットダウンのためのシグナルハンドリング
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-stop
		slog.Info("shutting down worker...")
		cancel()
	}()

	slog.Info("worker starting",
		slog.Duration("backfill_interval", cfg.BackfillInterval),
		slog.Int("run_retention_days", cfg.RunRetentionDays),
	)

	// クリーンアップジョブを日次でバックグラウンド実行
	go func() {
		// 起動直後に1回実行
		if err := cleanupJob.Run(ctx); err != nil {
			slog.Error("cleanup job failed", slog.String("error", err.Error()))
		}

		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := cleanupJob.Run(ctx); err != nil {
					slog.Error("cleanup job failed", slog.String("error", err.Error()))
				}
			}
		}
	}()

	// バックフィルジョブをメインgoroutineで実行（ブロッキング）
	backfillJob.Start(ctx)

	slog.Info("worker stopped gracefully")
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
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
