// Package store defines the uniform adapter contract over the upstream
// catalog APIs. Route handlers and the review aggregator depend only on the
// Adapter interface; the per-store implementations live in the appstore and
// playstore subpackages and are selected through a Registry keyed on the
// store enum.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/utafrali/storescope/internal/domain"
	apperrors "github.com/utafrali/storescope/pkg/errors"
	"github.com/utafrali/storescope/pkg/httpclient"
)

// ReviewsResult is one page (or batch) of reviews. NextPageToken is empty
// when the upstream reports no further data.
type ReviewsResult struct {
	Reviews       []domain.UnifiedReview
	NextPageToken string
}

// Adapter wraps one upstream catalog API behind store-independent operations.
// Implementations are stateless per request; every call takes a context and
// performs network I/O only.
type Adapter interface {
	Store() domain.Store

	// Search returns apps matching term. An empty term after trimming
	// returns an empty slice without calling upstream.
	Search(ctx context.Context, term, country, lang string, limit int) ([]domain.UnifiedApp, error)

	// AppDetail returns the full app record, enriched where the upstream
	// allows. Enrichment failures degrade to defaults rather than failing
	// the call; a missing app fails with a not-found error.
	AppDetail(ctx context.Context, id, country, lang string) (domain.UnifiedApp, error)

	// ReviewsPage fetches one page of reviews. The page token is an integer
	// page index for the App Store and an opaque continuation token for the
	// Play Store; callers treat it as opaque either way.
	ReviewsPage(ctx context.Context, id, country, lang, pageToken string) (ReviewsResult, error)

	// Similar, ByDeveloper, ByCollection and ByCategory are advisory
	// listings: upstream not-found maps to an empty slice, never an error.
	Similar(ctx context.Context, id, country, lang string) ([]domain.UnifiedApp, error)
	ByDeveloper(ctx context.Context, devID, country, lang string) ([]domain.UnifiedApp, error)
	ByCollection(ctx context.Context, collectionKey, country, lang string, limit int) ([]domain.UnifiedApp, error)
	ByCategory(ctx context.Context, categoryID, country, lang string, limit int) ([]domain.UnifiedApp, error)
}

// Registry holds the configured adapters keyed by store.
type Registry struct {
	adapters map[domain.Store]Adapter
}

// NewRegistry builds a registry from the given adapters.
func NewRegistry(adapters ...Adapter) *Registry {
	m := make(map[domain.Store]Adapter, len(adapters))
	for _, a := range adapters {
		m[a.Store()] = a
	}
	return &Registry{adapters: m}
}

// ForStore returns the adapter for s.
func (r *Registry) ForStore(s domain.Store) (Adapter, error) {
	a, ok := r.adapters[s]
	if !ok {
		return nil, apperrors.InvalidInput(fmt.Sprintf("no adapter configured for store %q", s))
	}
	return a, nil
}

// All returns every configured adapter.
func (r *Registry) All() []Adapter {
	out := make([]Adapter, 0, len(r.adapters))
	for _, a := range r.adapters {
		out = append(out, a)
	}
	return out
}

// Doer is the subset of the HTTP client the adapters need. Satisfied by both
// httpclient.Client and httpclient.CircuitBreakerClient.
type Doer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
	Get(ctx context.Context, url string) (*http.Response, error)
}

var (
	upstreamRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstream_requests_total",
			Help: "Total requests issued to upstream catalog APIs",
		},
		[]string{"store", "operation", "outcome"},
	)
	upstreamDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "upstream_request_duration_seconds",
			Help:    "Upstream catalog API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"store", "operation"},
	)
)

// FetchJSON performs an instrumented GET against an upstream catalog API and
// decodes the JSON response into out. Non-2xx responses are translated
// through the shared error mapping (404 → not found, else upstream error).
func FetchJSON(ctx context.Context, client Doer, s domain.Store, operation, url string, out any) error {
	start := time.Now()
	err := fetchJSON(ctx, client, s, url, out)
	upstreamDuration.WithLabelValues(s.String(), operation).Observe(time.Since(start).Seconds())

	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	upstreamRequests.WithLabelValues(s.String(), operation, outcome).Inc()
	return err
}

func fetchJSON(ctx context.Context, client Doer, s domain.Store, url string, out any) error {
	resp, err := client.Get(ctx, url)
	if err != nil {
		return apperrors.Upstream(s.String(), err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return httpclient.ParseResponseError(resp, s.String())
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperrors.Upstream(s.String(), fmt.Errorf("decode response: %w", err))
	}
	return nil
}
