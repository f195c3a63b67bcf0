// Package app wires together all dependencies and runs the service.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/utafrali/storescope/internal/aggregate"
	"github.com/utafrali/storescope/internal/config"
	"github.com/utafrali/storescope/internal/event"
	handler "github.com/utafrali/storescope/internal/handler/http"
	repo "github.com/utafrali/storescope/internal/repository/postgres"
	"github.com/utafrali/storescope/internal/sentiment"
	"github.com/utafrali/storescope/internal/store"
	"github.com/utafrali/storescope/internal/store/appstore"
	"github.com/utafrali/storescope/internal/store/playstore"
	"github.com/utafrali/storescope/pkg/cache"
	"github.com/utafrali/storescope/pkg/database"
	"github.com/utafrali/storescope/pkg/health"
	"github.com/utafrali/storescope/pkg/httpclient"
	pkgkafka "github.com/utafrali/storescope/pkg/kafka"
	"github.com/utafrali/storescope/pkg/middleware"
)

// App holds the wired application.
type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	pool       *pgxpool.Pool
	producer   *pkgkafka.Producer
	httpServer *http.Server
}

// NewApp creates the application, initializing all dependencies.
func NewApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	// Postgres backs the sentiment cache.
	pgCfg := database.DefaultPostgresConfig()
	pgCfg.Host = cfg.PostgresHost
	pgCfg.Port = cfg.PostgresPort
	pgCfg.User = cfg.PostgresUser
	pgCfg.Password = cfg.PostgresPass
	pgCfg.DBName = cfg.PostgresDB
	pgCfg.SSLMode = cfg.PostgresSSL

	pool, err := database.NewPostgresPool(ctx, &pgCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	if err := database.RunMigrations(ctx, pool, repo.Migrations(), logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	// Redis backs the listing cache; absence degrades to in-memory.
	var listingCache cache.Store
	redisCfg := database.RedisConfig{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPass,
		DB:       cfg.RedisDB,
	}
	redisClient, err := database.NewRedisClient(ctx, redisCfg)
	if err != nil {
		logger.Warn("redis unavailable, using in-memory listing cache",
			slog.String("error", err.Error()),
		)
		listingCache = cache.NewMemory()
	} else {
		listingCache = cache.NewRedis(redisClient, "storescope")
	}

	// One retrying client plus a circuit breaker per upstream.
	clientCfg := httpclient.DefaultConfig()
	clientCfg.Timeout = cfg.UpstreamTimeout
	clientCfg.UserAgent = "storescope/1.0"
	baseClient := httpclient.New(clientCfg)

	appStoreClient := httpclient.NewCircuitBreakerClient(baseClient,
		httpclient.DefaultCircuitBreakerConfig("appstore"), logger)
	playStoreClient := httpclient.NewCircuitBreakerClient(baseClient,
		httpclient.DefaultCircuitBreakerConfig("playstore"), logger)
	sentimentClient := httpclient.NewCircuitBreakerClient(baseClient,
		httpclient.DefaultCircuitBreakerConfig("sentiment"), logger)

	registry := store.NewRegistry(
		appstore.New(appStoreClient, logger, cfg.AppStoreBaseURL),
		playstore.New(playStoreClient, logger, cfg.PlayStoreBaseURL),
	)
	aggregator := aggregate.New(registry, logger)

	// Kafka is optional; without it sentiment events are simply not
	// published.
	var producer *pkgkafka.Producer
	var publisher sentiment.EventPublisher
	if cfg.KafkaEnabled {
		producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		publisher = event.NewProducer(producer, logger)
	}

	analyzer := sentiment.NewAnalyzer(sentimentClient, sentiment.AnalyzerConfig{
		BaseURL: cfg.SentimentBaseURL,
		APIKey:  cfg.SentimentAPIKey,
		Model:   cfg.SentimentModel,
	}, logger)
	sentimentCache := sentiment.NewCache(
		repo.NewSentimentRepository(pool),
		analyzer,
		publisher,
		cfg.SentimentStaleness,
		logger,
	)

	healthHandler := health.NewHandler()
	healthHandler.Register("postgres", pool.Ping)
	if cfg.KafkaEnabled {
		healthHandler.Register("kafka", func(ctx context.Context) error {
			return pkgkafka.PingBrokers(ctx, cfg.KafkaBrokers)
		})
	}

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = cfg.CORSAllowedOrigins
	corsCfg.Environment = cfg.Environment

	router := handler.NewRouter(handler.RouterConfig{
		Apps:           handler.NewAppHandler(registry, listingCache, cfg.ListingTTL, logger),
		Reviews:        handler.NewReviewHandler(aggregator, sentimentCache, logger),
		Health:         healthHandler,
		CORS:           &corsCfg,
		RequestTimeout: cfg.RequestTimeout,
		ListingMaxAge:  int(cfg.ListingTTL / time.Second),
	}, logger)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * cfg.RequestTimeout,
		IdleTimeout:  60 * time.Second,
	}

	return &App{
		cfg:        cfg,
		logger:     logger,
		pool:       pool,
		producer:   producer,
		httpServer: httpServer,
	}, nil
}

// Run starts the HTTP server, blocking until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	a.pool.Close()

	if len(errs) > 0 {
		return fmt.Errorf("shutdown completed with %d error(s): %w", len(errs), errs[0])
	}
	a.logger.Info("shutdown complete")
	return nil
}
