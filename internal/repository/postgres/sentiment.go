// Package postgres implements the sentiment cache repository as a key→JSON
// document store on a single table.
package postgres

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"

	"github.com/jackc/pgx/v5"

	"github.com/utafrali/storescope/internal/domain"
	"github.com/utafrali/storescope/pkg/database"
	apperrors "github.com/utafrali/storescope/pkg/errors"
)

//go:embed migrations/*.up.sql
var migrationsFS embed.FS

// Migrations returns the schema migrations for the sentiment cache.
func Migrations() fs.FS {
	sub, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		panic(err)
	}
	return sub
}

// SentimentRepository implements repository.SentimentRepository using
// PostgreSQL.
type SentimentRepository struct {
	pool database.DBTX
}

// NewSentimentRepository creates a new PostgreSQL-backed sentiment repository.
func NewSentimentRepository(pool database.DBTX) *SentimentRepository {
	return &SentimentRepository{pool: pool}
}

// Get retrieves the cached analysis for a cache key.
func (r *SentimentRepository) Get(ctx context.Context, cacheKey string) (*domain.CachedSentiment, error) {
	query := `
		SELECT app_id, country, date_range_key, analysis, last_updated
		FROM sentiment_cache
		WHERE cache_key = $1`

	var entry domain.CachedSentiment
	var analysisJSON []byte

	err := r.pool.QueryRow(ctx, query, cacheKey).Scan(
		&entry.AppID,
		&entry.Country,
		&entry.DateRangeKey,
		&analysisJSON,
		&entry.LastUpdated,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("sentiment analysis", cacheKey)
		}
		return nil, fmt.Errorf("select sentiment cache entry: %w", err)
	}

	if err := json.Unmarshal(analysisJSON, &entry.Analysis); err != nil {
		return nil, fmt.Errorf("unmarshal cached analysis: %w", err)
	}
	return &entry, nil
}

// Upsert stores the analysis for a cache key, replacing any prior entry.
func (r *SentimentRepository) Upsert(ctx context.Context, cacheKey string, entry *domain.CachedSentiment) error {
	analysisJSON, err := json.Marshal(entry.Analysis)
	if err != nil {
		return fmt.Errorf("marshal analysis: %w", err)
	}

	query := `
		INSERT INTO sentiment_cache (cache_key, app_id, country, date_range_key, analysis, last_updated)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (cache_key) DO UPDATE SET
			app_id = EXCLUDED.app_id,
			country = EXCLUDED.country,
			date_range_key = EXCLUDED.date_range_key,
			analysis = EXCLUDED.analysis,
			last_updated = EXCLUDED.last_updated`

	_, err = r.pool.Exec(ctx, query,
		cacheKey,
		entry.AppID,
		entry.Country,
		entry.DateRangeKey,
		analysisJSON,
		entry.LastUpdated,
	)
	if err != nil {
		return fmt.Errorf("upsert sentiment cache entry: %w", err)
	}
	return nil
}
