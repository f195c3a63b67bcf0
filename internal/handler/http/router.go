package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utafrali/storescope/pkg/health"
	"github.com/utafrali/storescope/pkg/middleware"
)

// RouterConfig carries the handler dependencies and tunables.
type RouterConfig struct {
	Apps           *AppHandler
	Reviews        *ReviewHandler
	Health         *health.Handler
	CORS           *middleware.CORSConfig
	RequestTimeout time.Duration

	// ListingMaxAge is the Cache-Control max-age (seconds) advertised on
	// listing endpoints.
	ListingMaxAge int
}

// NewRouter creates a chi router with all routes registered.
func NewRouter(cfg RouterConfig, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 60 * time.Second
	}

	corsCfg := middleware.DefaultCORSConfig()
	if cfg.CORS != nil {
		corsCfg = *cfg.CORS
	}
	r.Use(middleware.CORS(corsCfg))
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(cfg.RequestTimeout))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics("storescope"))

	r.Get("/health/live", cfg.Health.LivenessHandler())
	r.Get("/health/ready", cfg.Health.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	r.Get("/countries", cfg.Apps.Countries)
	r.Get("/app/{store}/{id}", cfg.Apps.AppDetail)

	// Listing endpoints share the TTL memoization and advertise a matching
	// client-side cache window.
	r.Group(func(r chi.Router) {
		if cfg.ListingMaxAge > 0 {
			r.Use(middleware.CacheControl(cfg.ListingMaxAge))
		}
		r.Get("/search", cfg.Apps.Search)
		r.Get("/collection/{store}/{type}", cfg.Apps.Collection)
		r.Get("/category-apps/{store}", cfg.Apps.CategoryApps)
		r.Get("/developer-apps/{store}/{id}", cfg.Apps.DeveloperApps)
		r.Get("/similar/{store}/{id}", cfg.Apps.Similar)
	})

	r.Get("/reviews/{store}/{id}", cfg.Reviews.Reviews)
	r.Get("/reviews/{store}/{id}/sentiment", cfg.Reviews.Sentiment)
	r.Get("/reviews/{store}/{id}/csv", cfg.Reviews.ReviewsCSV)

	return r
}
