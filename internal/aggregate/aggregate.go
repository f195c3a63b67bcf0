// Package aggregate drives the bounded multi-page review fetch across both
// catalogs. The App Store paginates sequentially (page N's existence is only
// knowable after fetching page N-1); the Play Store accepts guessable batch
// indexes, so its pages are fetched in parallel and merged. The two shapes
// live behind one PageFetchStrategy interface selected per store.
package aggregate

import (
	"context"
	"log/slog"
	"sort"
	"strconv"
	"sync"

	"github.com/utafrali/storescope/internal/domain"
	"github.com/utafrali/storescope/internal/store"
)

const (
	// MaxSequentialPages caps upstream calls for sequentially paginated
	// stores.
	MaxSequentialPages = 10

	// MaxParallelBatches is the Play Store batch fan-out width.
	MaxParallelBatches = 3
)

// Request describes one review aggregation.
type Request struct {
	AppID     string
	Country   string
	Lang      string
	Limit     int
	DateRange *domain.DateRange
}

// PageFetchStrategy fetches reviews from one adapter according to its
// pagination shape. Implementations return partial results on late-page
// failures and an error only when the first page fails.
type PageFetchStrategy interface {
	Fetch(ctx context.Context, adapter store.Adapter, req Request) ([]domain.UnifiedReview, error)
}

// Aggregator coordinates strategy selection, limit truncation and ordering.
type Aggregator struct {
	registry   *store.Registry
	strategies map[domain.Store]PageFetchStrategy
	logger     *slog.Logger
}

// New builds an aggregator with the default per-store strategies.
func New(registry *store.Registry, logger *slog.Logger) *Aggregator {
	return &Aggregator{
		registry: registry,
		strategies: map[domain.Store]PageFetchStrategy{
			domain.AppStore:  &SequentialCursorStrategy{MaxPages: MaxSequentialPages, Logger: logger},
			domain.PlayStore: &ParallelTokenFanoutStrategy{MaxBatches: MaxParallelBatches, Logger: logger},
		},
		logger: logger,
	}
}

// Reviews fetches up to req.Limit reviews for an app. Fewer reviews than
// requested is a normal outcome, never an error. Output is ordered descending
// by review date with upstream order preserved on ties.
func (a *Aggregator) Reviews(ctx context.Context, s domain.Store, req Request) ([]domain.UnifiedReview, error) {
	if req.Limit <= 0 {
		return []domain.UnifiedReview{}, nil
	}

	adapter, err := a.registry.ForStore(s)
	if err != nil {
		return nil, err
	}

	reviews, err := a.strategies[s].Fetch(ctx, adapter, req)
	if err != nil {
		return nil, err
	}
	if reviews == nil {
		reviews = []domain.UnifiedReview{}
	}
	if len(reviews) > req.Limit {
		reviews = reviews[:req.Limit]
	}
	return reviews, nil
}

// SequentialCursorStrategy walks integer page cursors one at a time, keeping
// reviews inside the date range and short-circuiting once a page reaches
// reviews older than the range start (upstream order is descending by date,
// so everything after is older still).
type SequentialCursorStrategy struct {
	MaxPages int
	Logger   *slog.Logger
}

// Fetch implements PageFetchStrategy.
func (s *SequentialCursorStrategy) Fetch(ctx context.Context, adapter store.Adapter, req Request) ([]domain.UnifiedReview, error) {
	var collected []domain.UnifiedReview
	token := ""

	for page := 0; page < s.MaxPages && len(collected) < req.Limit; page++ {
		result, err := adapter.ReviewsPage(ctx, req.AppID, req.Country, req.Lang, token)
		if err != nil {
			// An empty first page is indistinguishable from a nonexistent
			// app, so the first failure propagates. Later pages degrade to
			// the partial result.
			if page == 0 {
				return nil, err
			}
			s.Logger.Warn("review page fetch failed, returning partial result",
				slog.String("appId", req.AppID),
				slog.Int("page", page),
				slog.String("error", err.Error()),
			)
			return collected, nil
		}
		if len(result.Reviews) == 0 {
			break
		}

		stop := false
		for _, review := range result.Reviews {
			if !review.Updated.IsZero() && req.DateRange.Before(review.Updated) {
				stop = true
				break
			}
			if req.DateRange.Contains(review.Updated) {
				collected = append(collected, review)
			}
		}
		if stop || result.NextPageToken == "" {
			break
		}
		token = result.NextPageToken
	}
	return collected, nil
}

// ParallelTokenFanoutStrategy issues a fixed set of guessed batch tokens
// concurrently, then deduplicates by review id and re-sorts, since batch
// completion order is nondeterministic.
type ParallelTokenFanoutStrategy struct {
	MaxBatches int
	Logger     *slog.Logger
}

// Fetch implements PageFetchStrategy.
func (s *ParallelTokenFanoutStrategy) Fetch(ctx context.Context, adapter store.Adapter, req Request) ([]domain.UnifiedReview, error) {
	batches := make([][]domain.UnifiedReview, s.MaxBatches)
	errs := make([]error, s.MaxBatches)

	var wg sync.WaitGroup
	for i := 0; i < s.MaxBatches; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			result, err := adapter.ReviewsPage(ctx, req.AppID, req.Country, req.Lang, strconv.Itoa(i))
			if err != nil {
				errs[i] = err
				return
			}
			batches[i] = result.Reviews
		}(i)
	}
	wg.Wait()

	if errs[0] != nil {
		return nil, errs[0]
	}

	seen := make(map[string]struct{})
	var merged []domain.UnifiedReview
	for i, batch := range batches {
		if errs[i] != nil {
			s.Logger.Warn("review batch fetch failed, continuing with remaining batches",
				slog.String("appId", req.AppID),
				slog.Int("batch", i),
				slog.String("error", errs[i].Error()),
			)
			continue
		}
		for _, review := range batch {
			if _, dup := seen[review.ID]; dup {
				continue
			}
			seen[review.ID] = struct{}{}
			if req.DateRange.Contains(review.Updated) {
				merged = append(merged, review)
			}
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Updated.After(merged[j].Updated)
	})
	return merged, nil
}
