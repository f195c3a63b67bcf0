package http

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/storescope/internal/aggregate"
	"github.com/utafrali/storescope/internal/domain"
	"github.com/utafrali/storescope/internal/store"
	"github.com/utafrali/storescope/pkg/cache"
	apperrors "github.com/utafrali/storescope/pkg/errors"
	"github.com/utafrali/storescope/pkg/health"
)

// stubAdapter is a configurable store.Adapter for handler tests. Unset
// functions return empty results.
type stubAdapter struct {
	s domain.Store

	searchFn  func(ctx context.Context, term, country, lang string, limit int) ([]domain.UnifiedApp, error)
	detailFn  func(ctx context.Context, id, country, lang string) (domain.UnifiedApp, error)
	reviewsFn func(ctx context.Context, id, country, lang, token string) (store.ReviewsResult, error)
	listFn    func(ctx context.Context) ([]domain.UnifiedApp, error)

	searchCalls atomic.Int64
	listCalls   atomic.Int64
}

func (a *stubAdapter) Store() domain.Store { return a.s }

func (a *stubAdapter) Search(ctx context.Context, term, country, lang string, limit int) ([]domain.UnifiedApp, error) {
	a.searchCalls.Add(1)
	if a.searchFn != nil {
		return a.searchFn(ctx, term, country, lang, limit)
	}
	return []domain.UnifiedApp{}, nil
}

func (a *stubAdapter) AppDetail(ctx context.Context, id, country, lang string) (domain.UnifiedApp, error) {
	if a.detailFn != nil {
		return a.detailFn(ctx, id, country, lang)
	}
	return domain.UnifiedApp{ID: id, Title: "stub", Store: a.s}, nil
}

func (a *stubAdapter) ReviewsPage(ctx context.Context, id, country, lang, token string) (store.ReviewsResult, error) {
	if a.reviewsFn != nil {
		return a.reviewsFn(ctx, id, country, lang, token)
	}
	return store.ReviewsResult{}, nil
}

func (a *stubAdapter) list(ctx context.Context) ([]domain.UnifiedApp, error) {
	a.listCalls.Add(1)
	if a.listFn != nil {
		return a.listFn(ctx)
	}
	return []domain.UnifiedApp{}, nil
}

func (a *stubAdapter) Similar(ctx context.Context, id, country, lang string) ([]domain.UnifiedApp, error) {
	return a.list(ctx)
}

func (a *stubAdapter) ByDeveloper(ctx context.Context, devID, country, lang string) ([]domain.UnifiedApp, error) {
	return a.list(ctx)
}

func (a *stubAdapter) ByCollection(ctx context.Context, key, country, lang string, limit int) ([]domain.UnifiedApp, error) {
	return a.list(ctx)
}

func (a *stubAdapter) ByCategory(ctx context.Context, categoryID, country, lang string, limit int) ([]domain.UnifiedApp, error) {
	return a.list(ctx)
}

type fakeSentiment struct {
	analysis domain.SentimentAnalysis
	err      error
	calls    atomic.Int64
}

func (f *fakeSentiment) GetOrCompute(ctx context.Context, appID, country string, dateRange *domain.DateRange, reviews []domain.UnifiedReview) (domain.SentimentAnalysis, error) {
	f.calls.Add(1)
	if f.err != nil {
		return domain.SentimentAnalysis{}, f.err
	}
	return f.analysis, nil
}

type testEnv struct {
	appstore  *stubAdapter
	playstore *stubAdapter
	sentiment *fakeSentiment
	server    *httptest.Server
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		appstore:  &stubAdapter{s: domain.AppStore},
		playstore: &stubAdapter{s: domain.PlayStore},
		sentiment: &fakeSentiment{},
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	registry := store.NewRegistry(env.appstore, env.playstore)
	aggregator := aggregate.New(registry, logger)

	router := NewRouter(RouterConfig{
		Apps:          NewAppHandler(registry, cache.NewMemory(), time.Minute, logger),
		Reviews:       NewReviewHandler(aggregator, env.sentiment, logger),
		Health:        health.NewHandler(),
		ListingMaxAge: 60,
	}, logger)

	env.server = httptest.NewServer(router)
	t.Cleanup(env.server.Close)
	return env
}

func (e *testEnv) get(t *testing.T, path string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(e.server.URL + path)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	return resp, body
}

func errorBody(t *testing.T, body []byte) string {
	t.Helper()
	var envelope struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(body, &envelope))
	require.NotEmpty(t, envelope.Error)
	return envelope.Error
}

func stubApp(id, title string, s domain.Store) domain.UnifiedApp {
	return domain.UnifiedApp{ID: id, Title: title, Store: s}
}

func TestCountriesEndpoint(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.get(t, "/countries")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var countries []domain.CountryAvailability
	require.NoError(t, json.Unmarshal(body, &countries))
	assert.Len(t, countries, len(domain.SupportedCountries))
}

func TestHealthLive(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.get(t, "/health/live")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSearchSingleStore(t *testing.T) {
	env := newTestEnv(t)
	env.appstore.searchFn = func(ctx context.Context, term, country, lang string, limit int) ([]domain.UnifiedApp, error) {
		assert.Equal(t, "maps", term)
		assert.Equal(t, "US", country)
		return []domain.UnifiedApp{stubApp("1", "Maps", domain.AppStore)}, nil
	}

	resp, body := env.get(t, "/search?term=maps&store=appstore")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var apps []domain.UnifiedApp
	require.NoError(t, json.Unmarshal(body, &apps))
	require.Len(t, apps, 1)
	assert.Equal(t, "Maps", apps[0].Title)
	assert.Equal(t, int64(0), env.playstore.searchCalls.Load())
}

func TestSearchBothStoresInterleaved(t *testing.T) {
	env := newTestEnv(t)
	env.appstore.searchFn = func(ctx context.Context, term, country, lang string, limit int) ([]domain.UnifiedApp, error) {
		return []domain.UnifiedApp{
			stubApp("a1", "A1", domain.AppStore),
			stubApp("a2", "A2", domain.AppStore),
		}, nil
	}
	env.playstore.searchFn = func(ctx context.Context, term, country, lang string, limit int) ([]domain.UnifiedApp, error) {
		return []domain.UnifiedApp{
			stubApp("p1", "P1", domain.PlayStore),
			stubApp("p2", "P2", domain.PlayStore),
		}, nil
	}

	resp, body := env.get(t, "/search?term=maps")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var apps []domain.UnifiedApp
	require.NoError(t, json.Unmarshal(body, &apps))
	require.Len(t, apps, 4)
	assert.NotEqual(t, apps[0].Store, apps[1].Store, "combined search alternates stores")
}

func TestSearchOneStoreFailingDegrades(t *testing.T) {
	env := newTestEnv(t)
	env.appstore.searchFn = func(ctx context.Context, term, country, lang string, limit int) ([]domain.UnifiedApp, error) {
		return nil, apperrors.Upstream("appstore", errors.New("down"))
	}
	env.playstore.searchFn = func(ctx context.Context, term, country, lang string, limit int) ([]domain.UnifiedApp, error) {
		return []domain.UnifiedApp{stubApp("p1", "P1", domain.PlayStore)}, nil
	}

	resp, body := env.get(t, "/search?term=maps")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var apps []domain.UnifiedApp
	require.NoError(t, json.Unmarshal(body, &apps))
	assert.Len(t, apps, 1)
}

func TestSearchValidation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		path string
	}{
		{name: "missing term", path: "/search"},
		{name: "unknown store", path: "/search?term=x&store=amazon"},
		{name: "unknown country", path: "/search?term=x&country=XX"},
		{name: "limit above max", path: "/search?term=x&limit=101"},
		{name: "negative limit", path: "/search?term=x&limit=-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := env.get(t, tt.path)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			errorBody(t, body)
		})
	}
}

func TestSearchMemoizesListing(t *testing.T) {
	env := newTestEnv(t)
	env.appstore.searchFn = func(ctx context.Context, term, country, lang string, limit int) ([]domain.UnifiedApp, error) {
		return []domain.UnifiedApp{stubApp("1", "Maps", domain.AppStore)}, nil
	}

	resp, _ := env.get(t, "/search?term=maps&store=appstore")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = env.get(t, "/search?term=maps&store=appstore")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, int64(1), env.appstore.searchCalls.Load(), "second identical request is served from cache")

	// A different request tuple misses the cache.
	resp, _ = env.get(t, "/search?term=maps&store=appstore&country=DE")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int64(2), env.appstore.searchCalls.Load())
}

func TestListingEndpointsAdvertiseCacheControl(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.get(t, "/search?term=maps&store=appstore")
	assert.Contains(t, resp.Header.Get("Cache-Control"), "max-age=60")

	// Non-listing endpoints carry no cache header.
	resp, _ = env.get(t, "/countries")
	assert.NotContains(t, resp.Header.Get("Cache-Control"), "max-age=60")
}

func TestAppDetailEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.playstore.detailFn = func(ctx context.Context, id, country, lang string) (domain.UnifiedApp, error) {
		assert.Equal(t, "com.example.one", id)
		return stubApp(id, "One", domain.PlayStore), nil
	}

	resp, body := env.get(t, "/app/playstore/com.example.one")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var app domain.UnifiedApp
	require.NoError(t, json.Unmarshal(body, &app))
	assert.Equal(t, "One", app.Title)
}

func TestAppDetailNotFound(t *testing.T) {
	env := newTestEnv(t)
	env.appstore.detailFn = func(ctx context.Context, id, country, lang string) (domain.UnifiedApp, error) {
		return domain.UnifiedApp{}, apperrors.NotFound("app", id)
	}

	resp, body := env.get(t, "/app/appstore/999")

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, errorBody(t, body), "not found")
}

func TestCollectionRejectsWrongStoreVocabulary(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.get(t, "/collection/appstore/topgrossing")

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	msg := errorBody(t, body)
	assert.Contains(t, msg, "topgrossing")
	assert.Contains(t, msg, "topfreeapplications")
	assert.Equal(t, int64(0), env.appstore.listCalls.Load(), "invalid key never reaches upstream")
}

func TestCollectionEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.playstore.listFn = func(ctx context.Context) ([]domain.UnifiedApp, error) {
		return []domain.UnifiedApp{stubApp("p1", "P1", domain.PlayStore)}, nil
	}

	resp, body := env.get(t, "/collection/playstore/topgrossing")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var apps []domain.UnifiedApp
	require.NoError(t, json.Unmarshal(body, &apps))
	assert.Len(t, apps, 1)
}

func TestCategoryAppsValidation(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.get(t, "/category-apps/playstore")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = env.get(t, "/category-apps/playstore?categoryId=NOT_A_CATEGORY")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = env.get(t, "/category-apps/playstore?categoryId=GAME_PUZZLE")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = env.get(t, "/category-apps/appstore?categoryId=6014")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSimilarAndDeveloperListings(t *testing.T) {
	env := newTestEnv(t)
	env.appstore.listFn = func(ctx context.Context) ([]domain.UnifiedApp, error) {
		return []domain.UnifiedApp{stubApp("1", "One", domain.AppStore)}, nil
	}

	resp, body := env.get(t, "/similar/appstore/42")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var apps []domain.UnifiedApp
	require.NoError(t, json.Unmarshal(body, &apps))
	assert.Len(t, apps, 1)

	resp, body = env.get(t, "/developer-apps/appstore/77")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &apps))
	assert.Len(t, apps, 1)
}

func reviewPage(reviews ...domain.UnifiedReview) func(ctx context.Context, id, country, lang, token string) (store.ReviewsResult, error) {
	return func(ctx context.Context, id, country, lang, token string) (store.ReviewsResult, error) {
		if token != "" {
			return store.ReviewsResult{}, nil
		}
		return store.ReviewsResult{Reviews: reviews}, nil
	}
}

func sampleReview(id string) domain.UnifiedReview {
	return domain.UnifiedReview{
		ID:       id,
		UserName: "user-" + id,
		Text:     "text " + id,
		Rating:   4,
		Score:    4,
		Updated:  time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		Store:    domain.AppStore,
	}
}

func TestReviewsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.appstore.reviewsFn = reviewPage(sampleReview("1"), sampleReview("2"))

	resp, body := env.get(t, "/reviews/appstore/42")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var reviews []domain.UnifiedReview
	require.NoError(t, json.Unmarshal(body, &reviews))
	assert.Len(t, reviews, 2)
}

func TestReviewsEmptyIsOK(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.get(t, "/reviews/appstore/42")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "[]", strings.TrimSpace(string(body)))
}

func TestReviewsValidation(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.get(t, "/reviews/amazon/42")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = env.get(t, "/reviews/appstore/42?limit=201")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = env.get(t, "/reviews/appstore/42?startDate=2025-02-01&endDate=2025-01-01")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestReviewsUpstreamFailure(t *testing.T) {
	env := newTestEnv(t)
	env.appstore.reviewsFn = func(ctx context.Context, id, country, lang, token string) (store.ReviewsResult, error) {
		return store.ReviewsResult{}, apperrors.Upstream("appstore", errors.New("down"))
	}

	resp, body := env.get(t, "/reviews/appstore/42")

	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Contains(t, errorBody(t, body), "appstore")
}

func TestSentimentEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.appstore.reviewsFn = reviewPage(sampleReview("1"))
	env.sentiment.analysis = domain.SentimentAnalysis{
		SentimentDistribution: domain.SentimentDistribution{Positive: 1},
	}

	resp, body := env.get(t, "/reviews/appstore/42/sentiment")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var analysis domain.SentimentAnalysis
	require.NoError(t, json.Unmarshal(body, &analysis))
	assert.Equal(t, 1, analysis.SentimentDistribution.Positive)
	assert.Equal(t, int64(1), env.sentiment.calls.Load())
}

func TestSentimentNoReviewsIs404(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.get(t, "/reviews/appstore/42/sentiment")

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	errorBody(t, body)
	assert.Equal(t, int64(0), env.sentiment.calls.Load(), "no analysis without reviews")
}

func TestSentimentProviderFailure(t *testing.T) {
	env := newTestEnv(t)
	env.appstore.reviewsFn = reviewPage(sampleReview("1"))
	env.sentiment.err = apperrors.Sentiment(errors.New("model down"))

	resp, body := env.get(t, "/reviews/appstore/42/sentiment")

	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	errorBody(t, body)
}

func TestReviewsCSVEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.appstore.reviewsFn = reviewPage(sampleReview("1"), sampleReview("2"))

	resp, body := env.get(t, "/reviews/appstore/42/csv?country=de")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/csv")
	assert.Equal(t, "attachment; filename=reviews-42-DE.csv", resp.Header.Get("Content-Disposition"))

	records, err := csv.NewReader(strings.NewReader(string(body))).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"id", "userName", "title", "text", "rating", "version", "updated", "store"}, records[0])
	assert.Equal(t, "1", records[1][0])
	assert.Equal(t, "4", records[1][4])
	assert.Equal(t, "appstore", records[1][7])
}

func TestReviewsCSVNoReviewsIs404(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.get(t, "/reviews/appstore/42/csv")

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	errorBody(t, body)
}
