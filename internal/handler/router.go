package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/chomp/internal/metrics"
	"github.com/hitoshi/chomp/internal/middleware"
)

// HealthChecker はヘルスチェックで疎通確認する依存のインターフェース。
// *sql.DBがこのインターフェースを満たす。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	HealthChecker     HealthChecker
	CORSAllowedOrigin string
	AdminToken        string
	RateLimiter       *middleware.RateLimiter
	Logger            *slog.Logger

	// メトリクス
	MetricsCollector metrics.MetricsCollector
	MetricsGatherer  prometheus.Gatherer

	// 一括追加
	BulkAddService BulkAddServiceInterface
	CheckService   CheckServiceInterface
	RunFinder      RunFinderInterface

	// 参照系
	NeighborhoodFinder NeighborhoodFinderInterface
	PlaceSearcher      PlaceSearchInterface
	RestaurantSearcher RestaurantSearchInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	CORSMiddleware → RecoveryMiddleware → SecurityHeadersMiddleware → LoggingMiddleware → MetricsMiddleware
//
// /health と /metrics はレート制限の外に配置する。
// /api/admin/* は管理者トークン認証を要求する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	// CORS ミドルウェアを最上位に適用（全ルートに効く）
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewRecoveryMiddleware(deps.Logger))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	r.Use(middleware.NewMetricsMiddleware(deps.MetricsCollector))

	bulkAddHandler := NewBulkAddHandler(deps.BulkAddService, deps.CheckService)
	runHandler := NewRunHandler(deps.RunFinder)
	neighborhoodHandler := NewNeighborhoodHandler(deps.NeighborhoodFinder)
	placesHandler := NewPlacesHandler(deps.PlaceSearcher)
	restaurantsHandler := NewRestaurantsHandler(deps.RestaurantSearcher)

	// --- 運用系のルート（レート制限の外） ---

	r.Get("/health", newHealthHandler(deps.HealthChecker))
	r.Handle("/metrics", metrics.Handler(deps.MetricsGatherer))

	// --- 公開APIルート ---
	// ミドルウェアスタック: RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Get("/api/neighborhoods/by-zipcode/{zipcode}", neighborhoodHandler.ByZipcode)
		r.Get("/api/places/search", placesHandler.Search)
		r.Get("/api/restaurants/search", restaurantsHandler.Search)
	})

	// --- 管理者APIルート ---
	// ミドルウェアスタック: AdminToken → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewAdminTokenMiddleware(deps.AdminToken))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Route("/api/admin", func(r chi.Router) {
			// POST /api/admin/bulk-add/{type} - 一括追加（専用レート制限を追加）
			r.With(deps.RateLimiter.BulkAddMiddleware()).Post("/bulk-add/{type}", bulkAddHandler.BulkAdd)

			// GET /api/admin/bulk-add/runs/{id} - 実行履歴の参照
			r.Get("/bulk-add/runs/{id}", runHandler.GetRun)

			// POST /api/admin/check-existing/{type} - 重複チェック
			r.Post("/check-existing/{type}", bulkAddHandler.CheckExisting)
		})
	})

	return r
}

// newHealthHandler はDB疎通を確認するヘルスチェックハンドラーを返す。
func newHealthHandler(checker HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		if err := checker.PingContext(ctx); err != nil {
			writeJSONResponse(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}

		writeJSONResponse(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
