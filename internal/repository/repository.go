package repository

import (
	"context"

	"github.com/utafrali/storescope/internal/domain"
)

// SentimentRepository defines the persistence contract for cached sentiment
// analyses. Entries are addressed by the content-derived cache key and are
// only ever overwritten, never deleted.
type SentimentRepository interface {
	// Get retrieves the cached analysis for a cache key. A missing entry
	// fails with a not-found error.
	Get(ctx context.Context, cacheKey string) (*domain.CachedSentiment, error)

	// Upsert stores the analysis for a cache key, replacing any prior entry.
	Upsert(ctx context.Context, cacheKey string, entry *domain.CachedSentiment) error
}
