// Package playstore implements the catalog adapter for Google Play, backed
// by a scraper-API-compatible HTTP service (the catalog has no official API;
// the base URL points at a deployment of the scraper service).
package playstore

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/utafrali/storescope/internal/domain"
	"github.com/utafrali/storescope/internal/normalize"
	"github.com/utafrali/storescope/internal/store"
	apperrors "github.com/utafrali/storescope/pkg/errors"
)

// reviewBatchSize is the number of reviews requested per batch. The scraper
// service supports large batches, which is what makes the parallel fan-out
// worthwhile.
const reviewBatchSize = 100

// Adapter is the Google Play implementation of store.Adapter.
type Adapter struct {
	client  store.Doer
	logger  *slog.Logger
	baseURL string
}

// New creates a Play Store adapter against the given scraper service URL.
func New(client store.Doer, logger *slog.Logger, baseURL string) *Adapter {
	return &Adapter{
		client:  client,
		logger:  logger.With(slog.String("adapter", domain.PlayStore.String())),
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}
}

// Store implements store.Adapter.
func (a *Adapter) Store() domain.Store { return domain.PlayStore }

type listResponse struct {
	Results []normalize.Raw `json:"results"`
}

type reviewsResponse struct {
	Data                []normalize.Raw `json:"data"`
	NextPaginationToken string          `json:"nextPaginationToken"`
}

// Search implements store.Adapter.
func (a *Adapter) Search(ctx context.Context, term, country, lang string, limit int) ([]domain.UnifiedApp, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return []domain.UnifiedApp{}, nil
	}

	q := a.baseQuery(country, lang)
	q.Set("q", term)
	q.Set("num", strconv.Itoa(limit))

	var resp listResponse
	if err := store.FetchJSON(ctx, a.client, domain.PlayStore, "search",
		a.baseURL+"/apps/?"+q.Encode(), &resp); err != nil {
		return nil, err
	}
	return normalize.Apps(resp.Results, domain.PlayStore, a.logger), nil
}

// AppDetail implements store.Adapter. Play detail records carry the native
// rating histogram, so no enrichment round-trips are needed.
func (a *Adapter) AppDetail(ctx context.Context, id, country, lang string) (domain.UnifiedApp, error) {
	q := a.baseQuery(country, lang)

	var raw normalize.Raw
	if err := store.FetchJSON(ctx, a.client, domain.PlayStore, "detail",
		a.baseURL+"/apps/"+url.PathEscape(id)+"?"+q.Encode(), &raw); err != nil {
		return domain.UnifiedApp{}, err
	}

	app, err := normalize.App(raw, domain.PlayStore)
	if err != nil {
		return domain.UnifiedApp{}, apperrors.Upstream(domain.PlayStore.String(), err)
	}
	return app, nil
}

// ReviewsPage implements store.Adapter. An empty token fetches the first
// batch; a numeric token selects a guessed batch index for the parallel
// fan-out; any other token is passed through as the upstream continuation
// token.
func (a *Adapter) ReviewsPage(ctx context.Context, id, country, lang, pageToken string) (store.ReviewsResult, error) {
	q := a.baseQuery(country, lang)
	q.Set("num", strconv.Itoa(reviewBatchSize))
	q.Set("sort", "newest")
	if pageToken != "" {
		if _, err := strconv.Atoi(pageToken); err == nil {
			q.Set("batch", pageToken)
		} else {
			q.Set("nextPaginationToken", pageToken)
		}
	}

	var resp reviewsResponse
	if err := store.FetchJSON(ctx, a.client, domain.PlayStore, "reviews",
		a.baseURL+"/apps/"+url.PathEscape(id)+"/reviews/?"+q.Encode(), &resp); err != nil {
		return store.ReviewsResult{}, err
	}

	return store.ReviewsResult{
		Reviews:       normalize.Reviews(resp.Data, domain.PlayStore, a.logger),
		NextPageToken: resp.NextPaginationToken,
	}, nil
}

// Similar implements store.Adapter.
func (a *Adapter) Similar(ctx context.Context, id, country, lang string) ([]domain.UnifiedApp, error) {
	q := a.baseQuery(country, lang)

	var resp listResponse
	err := store.FetchJSON(ctx, a.client, domain.PlayStore, "similar",
		a.baseURL+"/apps/"+url.PathEscape(id)+"/similar/?"+q.Encode(), &resp)
	if err != nil {
		return advisory(nil, err)
	}
	return normalize.Apps(resp.Results, domain.PlayStore, a.logger), nil
}

// ByDeveloper implements store.Adapter.
func (a *Adapter) ByDeveloper(ctx context.Context, devID, country, lang string) ([]domain.UnifiedApp, error) {
	q := a.baseQuery(country, lang)

	var resp listResponse
	err := store.FetchJSON(ctx, a.client, domain.PlayStore, "developer",
		a.baseURL+"/developers/"+url.PathEscape(devID)+"/?"+q.Encode(), &resp)
	if err != nil {
		return advisory(nil, err)
	}
	return normalize.Apps(resp.Results, domain.PlayStore, a.logger), nil
}

// ByCollection implements store.Adapter.
func (a *Adapter) ByCollection(ctx context.Context, collectionKey, country, lang string, limit int) ([]domain.UnifiedApp, error) {
	q := a.baseQuery(country, lang)
	q.Set("collection", collectionKey)
	q.Set("num", strconv.Itoa(limit))
	return a.fetchList(ctx, "collection", q)
}

// ByCategory implements store.Adapter. Category listings default to the
// top-selling free chart within the category.
func (a *Adapter) ByCategory(ctx context.Context, categoryID, country, lang string, limit int) ([]domain.UnifiedApp, error) {
	q := a.baseQuery(country, lang)
	q.Set("category", categoryID)
	q.Set("collection", "topselling_free")
	q.Set("num", strconv.Itoa(limit))
	return a.fetchList(ctx, "category", q)
}

func (a *Adapter) fetchList(ctx context.Context, operation string, q url.Values) ([]domain.UnifiedApp, error) {
	var resp listResponse
	err := store.FetchJSON(ctx, a.client, domain.PlayStore, operation,
		a.baseURL+"/apps/?"+q.Encode(), &resp)
	if err != nil {
		return advisory(nil, err)
	}
	return normalize.Apps(resp.Results, domain.PlayStore, a.logger), nil
}

func (a *Adapter) baseQuery(country, lang string) url.Values {
	q := url.Values{}
	q.Set("country", strings.ToLower(country))
	if lang != "" {
		q.Set("lang", lang)
	}
	return q
}

// advisory maps upstream not-found to an empty listing; other errors pass
// through.
func advisory(apps []domain.UnifiedApp, err error) ([]domain.UnifiedApp, error) {
	if err != nil {
		if apperrors.HTTPStatus(err) == http.StatusNotFound {
			return []domain.UnifiedApp{}, nil
		}
		return nil, err
	}
	return apps, nil
}
