package sentiment

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/utafrali/storescope/internal/domain"
	"github.com/utafrali/storescope/internal/repository"
	apperrors "github.com/utafrali/storescope/pkg/errors"
)

// DefaultStaleness is the default maximum age of a cached analysis.
const DefaultStaleness = 24 * time.Hour

// ReviewAnalyzer is the classification contract the cache wraps.
type ReviewAnalyzer interface {
	Analyze(ctx context.Context, reviews []domain.UnifiedReview) (domain.SentimentAnalysis, error)
}

// EventPublisher is notified after every fresh analysis. Publishing is
// best-effort; failures are logged, never surfaced.
type EventPublisher interface {
	AnalysisCompleted(ctx context.Context, entry *domain.CachedSentiment) error
}

// Cache serves sentiment analyses from the persistent store, recomputing
// through the analyzer once an entry exceeds the staleness window. Concurrent
// requests for the same key are serialized per key, so at most one external
// model call happens per key per window.
type Cache struct {
	repo      repository.SentimentRepository
	analyzer  ReviewAnalyzer
	publisher EventPublisher
	staleness time.Duration
	logger    *slog.Logger

	// now is injectable for staleness tests.
	now func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewCache creates a sentiment cache. publisher may be nil. A non-positive
// staleness selects the default window.
func NewCache(repo repository.SentimentRepository, analyzer ReviewAnalyzer, publisher EventPublisher, staleness time.Duration, logger *slog.Logger) *Cache {
	if staleness <= 0 {
		staleness = DefaultStaleness
	}
	return &Cache{
		repo:      repo,
		analyzer:  analyzer,
		publisher: publisher,
		staleness: staleness,
		logger:    logger,
		now:       time.Now,
		locks:     make(map[string]*sync.Mutex),
	}
}

// CacheKey derives the content address for one (app, country, date range)
// analysis. A range-less request gets its own key; it never shares an entry
// with any dated range.
func CacheKey(appID, country string, dateRange *domain.DateRange) string {
	start, end := "", ""
	if dateRange != nil {
		if !dateRange.Start.IsZero() {
			start = dateRange.Start.UTC().Format(time.RFC3339)
		}
		if !dateRange.End.IsZero() {
			end = dateRange.End.UTC().Format(time.RFC3339)
		}
	}
	sum := sha256.Sum256([]byte(appID + "|" + country + "|" + start + "|" + end))
	return hex.EncodeToString(sum[:])
}

// rangeKey is the human-readable range descriptor stored alongside the entry.
func rangeKey(dateRange *domain.DateRange) string {
	if dateRange == nil {
		return "all"
	}
	start, end := "", ""
	if !dateRange.Start.IsZero() {
		start = dateRange.Start.UTC().Format(time.RFC3339)
	}
	if !dateRange.End.IsZero() {
		end = dateRange.End.UTC().Format(time.RFC3339)
	}
	return start + ".." + end
}

// GetOrCompute returns the cached analysis for the key when fresh, otherwise
// computes a new one, persists it (overwriting any prior entry) and returns
// it. Analyzer failures are never cached.
func (c *Cache) GetOrCompute(ctx context.Context, appID, country string, dateRange *domain.DateRange, reviews []domain.UnifiedReview) (domain.SentimentAnalysis, error) {
	key := CacheKey(appID, country, dateRange)

	lock := c.keyLock(key)
	lock.Lock()
	defer lock.Unlock()

	entry, err := c.repo.Get(ctx, key)
	switch {
	case err == nil:
		if c.now().Sub(entry.LastUpdated) < c.staleness {
			c.logger.InfoContext(ctx, "sentiment cache hit",
				slog.String("appId", appID),
				slog.String("country", country),
			)
			return entry.Analysis, nil
		}
	case apperrors.HTTPStatus(err) != http.StatusNotFound:
		// A broken cache store degrades to recomputation.
		c.logger.WarnContext(ctx, "sentiment cache lookup failed",
			slog.String("appId", appID),
			slog.String("error", err.Error()),
		)
	}

	analysis, err := c.analyzer.Analyze(ctx, reviews)
	if err != nil {
		return domain.SentimentAnalysis{}, err
	}

	// A canceled request must not persist a possibly incomplete computation.
	if ctx.Err() != nil {
		return domain.SentimentAnalysis{}, ctx.Err()
	}

	fresh := &domain.CachedSentiment{
		AppID:        appID,
		Country:      country,
		DateRangeKey: rangeKey(dateRange),
		Analysis:     analysis,
		LastUpdated:  c.now().UTC(),
	}
	if err := c.repo.Upsert(ctx, key, fresh); err != nil {
		c.logger.ErrorContext(ctx, "failed to persist sentiment analysis",
			slog.String("appId", appID),
			slog.String("error", err.Error()),
		)
	}

	if c.publisher != nil {
		if err := c.publisher.AnalysisCompleted(ctx, fresh); err != nil {
			c.logger.WarnContext(ctx, "failed to publish sentiment event",
				slog.String("appId", appID),
				slog.String("error", err.Error()),
			)
		}
	}

	return analysis, nil
}

func (c *Cache) keyLock(key string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	lock, ok := c.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		c.locks[key] = lock
	}
	return lock
}
