package sentiment

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/storescope/internal/domain"
	apperrors "github.com/utafrali/storescope/pkg/errors"
)

type fakeRepo struct {
	mu      sync.Mutex
	entries map[string]*domain.CachedSentiment
	getErr  error
	upErr   error
	gets    int
	upserts int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{entries: map[string]*domain.CachedSentiment{}}
}

func (r *fakeRepo) Get(ctx context.Context, cacheKey string) (*domain.CachedSentiment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gets++
	if r.getErr != nil {
		return nil, r.getErr
	}
	entry, ok := r.entries[cacheKey]
	if !ok {
		return nil, apperrors.NotFound("sentiment analysis", cacheKey)
	}
	return entry, nil
}

func (r *fakeRepo) Upsert(ctx context.Context, cacheKey string, entry *domain.CachedSentiment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.upserts++
	if r.upErr != nil {
		return r.upErr
	}
	r.entries[cacheKey] = entry
	return nil
}

type fakeAnalyzer struct {
	mu     sync.Mutex
	calls  int
	result domain.SentimentAnalysis
	err    error
}

func (a *fakeAnalyzer) Analyze(ctx context.Context, reviews []domain.UnifiedReview) (domain.SentimentAnalysis, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++
	if a.err != nil {
		return domain.SentimentAnalysis{}, a.err
	}
	return a.result, nil
}

func (a *fakeAnalyzer) callCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

type fakePublisher struct {
	mu      sync.Mutex
	entries []*domain.CachedSentiment
	err     error
}

func (p *fakePublisher) AnalysisCompleted(ctx context.Context, entry *domain.CachedSentiment) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.entries = append(p.entries, entry)
	return p.err
}

func cacheLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var sampleAnalysis = domain.SentimentAnalysis{
	SentimentDistribution: domain.SentimentDistribution{Positive: 6, Neutral: 2, Negative: 2},
	Insights:              domain.SentimentInsights{OverallSentiment: "mostly positive"},
}

func sampleReviews() []domain.UnifiedReview {
	return []domain.UnifiedReview{
		{ID: "1", Text: "love it", Rating: 5},
		{ID: "2", Text: "crashes on startup", Rating: 1},
	}
}

func TestGetOrComputeCachesFreshResult(t *testing.T) {
	repo := newFakeRepo()
	analyzer := &fakeAnalyzer{result: sampleAnalysis}
	cache := NewCache(repo, analyzer, nil, time.Hour, cacheLogger())

	ctx := context.Background()
	first, err := cache.GetOrCompute(ctx, "app1", "US", nil, sampleReviews())
	require.NoError(t, err)
	assert.Equal(t, sampleAnalysis, first)

	second, err := cache.GetOrCompute(ctx, "app1", "US", nil, sampleReviews())
	require.NoError(t, err)
	assert.Equal(t, sampleAnalysis, second)

	assert.Equal(t, 1, analyzer.callCount(), "cache hit must not re-invoke the model")
	assert.Equal(t, 1, repo.upserts)
}

func TestGetOrComputeRecomputesWhenStale(t *testing.T) {
	repo := newFakeRepo()
	analyzer := &fakeAnalyzer{result: sampleAnalysis}
	cache := NewCache(repo, analyzer, nil, time.Hour, cacheLogger())

	current := time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return current }

	ctx := context.Background()
	_, err := cache.GetOrCompute(ctx, "app1", "US", nil, sampleReviews())
	require.NoError(t, err)
	require.Equal(t, 1, analyzer.callCount())

	// Still fresh just inside the window.
	current = current.Add(59 * time.Minute)
	_, err = cache.GetOrCompute(ctx, "app1", "US", nil, sampleReviews())
	require.NoError(t, err)
	assert.Equal(t, 1, analyzer.callCount())

	// Past the window the entry is recomputed and overwritten.
	current = current.Add(2 * time.Minute)
	_, err = cache.GetOrCompute(ctx, "app1", "US", nil, sampleReviews())
	require.NoError(t, err)
	assert.Equal(t, 2, analyzer.callCount())
	assert.Equal(t, 2, repo.upserts)
}

func TestGetOrComputeAnalyzerFailureNotCached(t *testing.T) {
	repo := newFakeRepo()
	analyzer := &fakeAnalyzer{err: apperrors.Sentiment(errors.New("model unavailable"))}
	cache := NewCache(repo, analyzer, nil, time.Hour, cacheLogger())

	ctx := context.Background()
	_, err := cache.GetOrCompute(ctx, "app1", "US", nil, sampleReviews())
	require.Error(t, err)
	assert.Equal(t, 0, repo.upserts)

	// Once the model recovers, the next request computes and caches.
	analyzer.err = nil
	analyzer.result = sampleAnalysis
	got, err := cache.GetOrCompute(ctx, "app1", "US", nil, sampleReviews())
	require.NoError(t, err)
	assert.Equal(t, sampleAnalysis, got)
	assert.Equal(t, 2, analyzer.callCount())
}

func TestGetOrComputeBrokenRepoDegradesToRecompute(t *testing.T) {
	repo := newFakeRepo()
	repo.getErr = errors.New("connection refused")
	analyzer := &fakeAnalyzer{result: sampleAnalysis}
	cache := NewCache(repo, analyzer, nil, time.Hour, cacheLogger())

	got, err := cache.GetOrCompute(context.Background(), "app1", "US", nil, sampleReviews())
	require.NoError(t, err)
	assert.Equal(t, sampleAnalysis, got)
	assert.Equal(t, 1, analyzer.callCount())
}

func TestGetOrComputeUpsertFailureStillReturnsAnalysis(t *testing.T) {
	repo := newFakeRepo()
	repo.upErr = errors.New("disk full")
	analyzer := &fakeAnalyzer{result: sampleAnalysis}
	cache := NewCache(repo, analyzer, nil, time.Hour, cacheLogger())

	got, err := cache.GetOrCompute(context.Background(), "app1", "US", nil, sampleReviews())
	require.NoError(t, err)
	assert.Equal(t, sampleAnalysis, got)
}

func TestGetOrComputePublishesEvent(t *testing.T) {
	repo := newFakeRepo()
	analyzer := &fakeAnalyzer{result: sampleAnalysis}
	publisher := &fakePublisher{}
	cache := NewCache(repo, analyzer, publisher, time.Hour, cacheLogger())

	dateRange, err := domain.NewDateRange("2025-01-01", "2025-01-31")
	require.NoError(t, err)

	_, err = cache.GetOrCompute(context.Background(), "app1", "DE", dateRange, sampleReviews())
	require.NoError(t, err)

	require.Len(t, publisher.entries, 1)
	assert.Equal(t, "app1", publisher.entries[0].AppID)
	assert.Equal(t, "DE", publisher.entries[0].Country)
	assert.Contains(t, publisher.entries[0].DateRangeKey, "2025-01-01")
}

func TestGetOrComputePublisherFailureNotSurfaced(t *testing.T) {
	repo := newFakeRepo()
	analyzer := &fakeAnalyzer{result: sampleAnalysis}
	publisher := &fakePublisher{err: errors.New("broker down")}
	cache := NewCache(repo, analyzer, publisher, time.Hour, cacheLogger())

	_, err := cache.GetOrCompute(context.Background(), "app1", "US", nil, sampleReviews())
	assert.NoError(t, err)
}

func TestGetOrComputeCanceledContextNotPersisted(t *testing.T) {
	repo := newFakeRepo()
	analyzer := &fakeAnalyzer{result: sampleAnalysis}
	cache := NewCache(repo, analyzer, nil, time.Hour, cacheLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := cache.GetOrCompute(ctx, "app1", "US", nil, sampleReviews())
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, repo.upserts)
}

func TestCacheKeyDistinguishesRanges(t *testing.T) {
	full, err := domain.NewDateRange("2025-01-01", "2025-01-31")
	require.NoError(t, err)
	other, err := domain.NewDateRange("2025-02-01", "2025-02-28")
	require.NoError(t, err)

	keys := map[string]struct{}{
		CacheKey("app1", "US", nil):   {},
		CacheKey("app1", "US", full):  {},
		CacheKey("app1", "US", other): {},
		CacheKey("app1", "DE", nil):   {},
		CacheKey("app2", "US", nil):   {},
	}
	assert.Len(t, keys, 5, "every (app, country, range) tuple gets its own key")

	assert.Equal(t, CacheKey("app1", "US", full), CacheKey("app1", "US", full))
}

func TestGetOrComputeSerializesPerKey(t *testing.T) {
	repo := newFakeRepo()
	analyzer := &fakeAnalyzer{result: sampleAnalysis}
	cache := NewCache(repo, analyzer, nil, time.Hour, cacheLogger())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := cache.GetOrCompute(context.Background(), "app1", "US", nil, sampleReviews())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, analyzer.callCount(), "concurrent requests for one key share one computation")
}
