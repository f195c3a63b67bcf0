// Package config loads the service configuration from environment variables.
package config

import (
	"fmt"
	"time"

	pkgconfig "github.com/utafrali/storescope/pkg/config"
)

// Config holds all configuration for the service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort       int           `env:"HTTP_PORT" envDefault:"8080"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"60s"`

	// Upstream catalogs
	AppStoreBaseURL  string        `env:"APP_STORE_BASE_URL" envDefault:"https://itunes.apple.com"`
	PlayStoreBaseURL string        `env:"PLAY_STORE_BASE_URL" envDefault:"http://localhost:3000/api"`
	UpstreamTimeout  time.Duration `env:"UPSTREAM_TIMEOUT" envDefault:"15s"`

	// Sentiment analysis
	SentimentBaseURL   string        `env:"SENTIMENT_API_BASE_URL" envDefault:"https://api.mistral.ai"`
	SentimentAPIKey    string        `env:"SENTIMENT_API_KEY"`
	SentimentModel     string        `env:"SENTIMENT_MODEL" envDefault:"mistral-large-latest"`
	SentimentStaleness time.Duration `env:"SENTIMENT_CACHE_STALENESS" envDefault:"24h"`

	// PostgreSQL
	PostgresHost string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser string `env:"POSTGRES_USER" envDefault:"storescope"`
	PostgresPass string `env:"POSTGRES_PASSWORD" envDefault:"storescope_secret"`
	PostgresDB   string `env:"POSTGRES_DB_NAME" envDefault:"storescope"`
	PostgresSSL  string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`

	// Redis listing cache
	RedisHost  string        `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort  int           `env:"REDIS_PORT" envDefault:"6379"`
	RedisPass  string        `env:"REDIS_PASSWORD"`
	RedisDB    int           `env:"REDIS_DB" envDefault:"0"`
	ListingTTL time.Duration `env:"LISTING_CACHE_TTL" envDefault:"10m"`

	// Kafka
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`
	KafkaEnabled bool     `env:"KAFKA_ENABLED" envDefault:"true"`

	// CORS
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if cfg.HTTPPort < 1 || cfg.HTTPPort > 65535 {
		return nil, fmt.Errorf("invalid HTTP port: %d", cfg.HTTPPort)
	}
	if cfg.SentimentStaleness <= 0 {
		return nil, fmt.Errorf("invalid sentiment cache staleness: %s", cfg.SentimentStaleness)
	}

	// The sentiment endpoints cannot work without credentials outside
	// development.
	if cfg.Environment != "development" && cfg.SentimentAPIKey == "" {
		return nil, fmt.Errorf("SENTIMENT_API_KEY must be set in %q mode", cfg.Environment)
	}

	return cfg, nil
}
