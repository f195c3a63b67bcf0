// Package appstore implements the catalog adapter for the Apple App Store,
// backed by the iTunes search/lookup APIs and the RSS JSON feeds.
package appstore

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/utafrali/storescope/internal/domain"
	"github.com/utafrali/storescope/internal/normalize"
	"github.com/utafrali/storescope/internal/store"
	apperrors "github.com/utafrali/storescope/pkg/errors"
)

const (
	// DefaultBaseURL is the public iTunes API host.
	DefaultBaseURL = "https://itunes.apple.com"

	// maxReviewPages is the upstream RSS feed page cap.
	maxReviewPages = 10

	// countryProbeWorkers bounds the availability probe fan-out.
	countryProbeWorkers = 8
)

// storefronts maps supported country codes to Apple storefront identifiers,
// required by the similar-apps endpoint.
var storefronts = map[string]string{
	"AE": "143481", "AU": "143460", "BE": "143446", "BR": "143503",
	"CA": "143455", "CH": "143459", "CN": "143465", "DE": "143443",
	"DK": "143458", "ES": "143454", "FI": "143447", "FR": "143442",
	"GB": "143444", "HK": "143463", "ID": "143476", "IN": "143467",
	"IT": "143450", "JP": "143462", "KR": "143466", "LU": "143451",
	"MX": "143468", "NL": "143452", "NO": "143457", "PL": "143478",
	"RU": "143469", "SA": "143479", "SE": "143456", "SG": "143464",
	"TR": "143480", "TW": "143470", "US": "143441",
}

var similarAppsPattern = regexp.MustCompile(`"customersAlsoBoughtApps":\s*(\[[^\]]*\])`)

// Adapter is the App Store implementation of store.Adapter.
type Adapter struct {
	client  store.Doer
	logger  *slog.Logger
	baseURL string
}

// New creates an App Store adapter. An empty baseURL selects the public
// iTunes host.
func New(client store.Doer, logger *slog.Logger, baseURL string) *Adapter {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Adapter{
		client:  client,
		logger:  logger.With(slog.String("adapter", domain.AppStore.String())),
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}
}

// Store implements store.Adapter.
func (a *Adapter) Store() domain.Store { return domain.AppStore }

type lookupResponse struct {
	ResultCount int             `json:"resultCount"`
	Results     []normalize.Raw `json:"results"`
}

// Search implements store.Adapter.
func (a *Adapter) Search(ctx context.Context, term, country, lang string, limit int) ([]domain.UnifiedApp, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return []domain.UnifiedApp{}, nil
	}

	q := url.Values{}
	q.Set("term", term)
	q.Set("country", country)
	q.Set("media", "software")
	q.Set("entity", "software")
	q.Set("limit", strconv.Itoa(limit))
	if lang != "" {
		q.Set("lang", lang)
	}

	var resp lookupResponse
	if err := store.FetchJSON(ctx, a.client, domain.AppStore, "search",
		a.baseURL+"/search?"+q.Encode(), &resp); err != nil {
		return nil, err
	}
	return normalize.Apps(resp.Results, domain.AppStore, a.logger), nil
}

// AppDetail implements store.Adapter. The core lookup and the per-country
// availability probes run concurrently; probe failure degrades to an empty
// availability list. A miss for a non-US country is retried against the US
// storefront before reporting not found.
func (a *Adapter) AppDetail(ctx context.Context, id, country, lang string) (domain.UnifiedApp, error) {
	countriesCh := make(chan []domain.CountryAvailability, 1)
	go func() {
		countriesCh <- a.availableCountries(ctx, id)
	}()

	raw, err := a.lookupOne(ctx, id, country, lang)
	if err != nil && country != "US" && apperrors.HTTPStatus(err) == http.StatusNotFound {
		a.logger.Debug("app not found, retrying against US storefront", slog.String("id", id))
		raw, err = a.lookupOne(ctx, id, "US", lang)
	}
	if err != nil {
		return domain.UnifiedApp{}, err
	}

	app, err := normalize.App(raw, domain.AppStore)
	if err != nil {
		return domain.UnifiedApp{}, apperrors.Upstream(domain.AppStore.String(), err)
	}

	select {
	case app.AvailableCountries = <-countriesCh:
	case <-ctx.Done():
		return domain.UnifiedApp{}, ctx.Err()
	}
	return app, nil
}

// lookupOne fetches a single app record via the lookup API.
func (a *Adapter) lookupOne(ctx context.Context, id, country, lang string) (normalize.Raw, error) {
	raws, err := a.lookup(ctx, "lookup", id, country, lang)
	if err != nil {
		return nil, err
	}
	if len(raws) == 0 {
		return nil, apperrors.NotFound("app", id)
	}
	return raws[0], nil
}

func (a *Adapter) lookup(ctx context.Context, operation, ids, country, lang string) ([]normalize.Raw, error) {
	q := url.Values{}
	q.Set("id", ids)
	q.Set("country", country)
	q.Set("entity", "software")
	if lang != "" {
		q.Set("lang", lang)
	}

	var resp lookupResponse
	if err := store.FetchJSON(ctx, a.client, domain.AppStore, operation,
		a.baseURL+"/lookup?"+q.Encode(), &resp); err != nil {
		return nil, err
	}
	return resp.Results, nil
}

// availableCountries probes every supported storefront for the app. Probe
// errors are skipped; this is enrichment, never fatal.
func (a *Adapter) availableCountries(ctx context.Context, id string) []domain.CountryAvailability {
	supported := domain.CountryList()

	sem := make(chan struct{}, countryProbeWorkers)
	results := make([]bool, len(supported))

	var wg sync.WaitGroup
	for i, c := range supported {
		wg.Add(1)
		go func(i int, code string) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				return
			}
			raws, err := a.lookup(ctx, "availability", id, code, "")
			results[i] = err == nil && len(raws) > 0
		}(i, c.Code)
	}
	wg.Wait()

	available := make([]domain.CountryAvailability, 0, len(supported))
	for i, ok := range results {
		if ok {
			available = append(available, supported[i])
		}
	}
	return available
}

// ReviewsPage implements store.Adapter. The token is a 1-based RSS page
// index; pages beyond the feed cap return an empty terminal page.
func (a *Adapter) ReviewsPage(ctx context.Context, id, country, lang, pageToken string) (store.ReviewsResult, error) {
	page := 1
	if pageToken != "" {
		n, err := strconv.Atoi(pageToken)
		if err != nil || n < 1 {
			return store.ReviewsResult{}, apperrors.InvalidInput(fmt.Sprintf("invalid review page token %q", pageToken))
		}
		page = n
	}
	if page > maxReviewPages {
		return store.ReviewsResult{}, nil
	}

	feedURL := fmt.Sprintf("%s/%s/rss/customerreviews/page=%d/id=%s/sortby=mostrecent/json",
		a.baseURL, strings.ToLower(country), page, url.PathEscape(id))

	var feed rssFeed
	if err := store.FetchJSON(ctx, a.client, domain.AppStore, "reviews", feedURL, &feed); err != nil {
		return store.ReviewsResult{}, err
	}

	raws := make([]normalize.Raw, 0, len(feed.Feed.Entry))
	for _, entry := range feed.Feed.Entry {
		if isReviewEntry(entry) {
			raws = append(raws, reviewEntryToRaw(entry))
		}
	}

	result := store.ReviewsResult{
		Reviews: normalize.Reviews(raws, domain.AppStore, a.logger),
	}
	if len(result.Reviews) > 0 && page < maxReviewPages {
		result.NextPageToken = strconv.Itoa(page + 1)
	}
	return result, nil
}

// Similar implements store.Adapter. The storefront page embeds the related
// app ids, which are then resolved through a bulk lookup.
func (a *Adapter) Similar(ctx context.Context, id, country, lang string) ([]domain.UnifiedApp, error) {
	storefront, ok := storefronts[strings.ToUpper(country)]
	if !ok {
		storefront = storefronts["US"]
	}

	pageURL := fmt.Sprintf("%s/%s/app/app/id%s", a.baseURL, strings.ToLower(country), url.PathEscape(id))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, http.NoBody)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	req.Header.Set("X-Apple-Store-Front", storefront+",24 t:native")

	resp, err := a.client.Do(ctx, req)
	if err != nil {
		a.logger.Warn("similar apps fetch failed", slog.String("id", id), slog.String("error", err.Error()))
		return []domain.UnifiedApp{}, nil
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil || resp.StatusCode < 200 || resp.StatusCode > 299 {
		return []domain.UnifiedApp{}, nil
	}

	ids := extractSimilarIDs(body)
	if len(ids) == 0 {
		return []domain.UnifiedApp{}, nil
	}

	raws, err := a.lookup(ctx, "similar", strings.Join(ids, ","), country, lang)
	if err != nil {
		return advisory(nil, err)
	}
	return normalize.Apps(raws, domain.AppStore, a.logger), nil
}

func extractSimilarIDs(body []byte) []string {
	match := similarAppsPattern.FindSubmatch(body)
	if match == nil {
		return nil
	}
	trimmed := strings.Trim(string(match[1]), "[]")
	if trimmed == "" {
		return nil
	}
	parts := strings.Split(trimmed, ",")
	ids := make([]string, 0, len(parts))
	for _, p := range parts {
		if id := strings.Trim(strings.TrimSpace(p), `"`); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// ByDeveloper implements store.Adapter. The lookup returns the artist record
// first, which lacks app fields and is dropped by the normalizer.
func (a *Adapter) ByDeveloper(ctx context.Context, devID, country, lang string) ([]domain.UnifiedApp, error) {
	raws, err := a.lookup(ctx, "developer", devID, country, lang)
	if err != nil {
		return advisory(nil, err)
	}
	return normalize.Apps(raws, domain.AppStore, a.logger), nil
}

// ByCollection implements store.Adapter, serving the RSS chart feeds.
func (a *Adapter) ByCollection(ctx context.Context, collectionKey, country, lang string, limit int) ([]domain.UnifiedApp, error) {
	feedURL := fmt.Sprintf("%s/%s/rss/%s/limit=%d/json",
		a.baseURL, strings.ToLower(country), url.PathEscape(collectionKey), limit)
	return a.fetchChart(ctx, "collection", feedURL)
}

// ByCategory implements store.Adapter. Category charts are the top-free feed
// scoped to a numeric genre.
func (a *Adapter) ByCategory(ctx context.Context, categoryID, country, lang string, limit int) ([]domain.UnifiedApp, error) {
	feedURL := fmt.Sprintf("%s/%s/rss/topfreeapplications/genre=%s/limit=%d/json",
		a.baseURL, strings.ToLower(country), url.PathEscape(categoryID), limit)
	return a.fetchChart(ctx, "category", feedURL)
}

func (a *Adapter) fetchChart(ctx context.Context, operation, feedURL string) ([]domain.UnifiedApp, error) {
	var feed rssFeed
	if err := store.FetchJSON(ctx, a.client, domain.AppStore, operation, feedURL, &feed); err != nil {
		return advisory(nil, err)
	}

	raws := make([]normalize.Raw, 0, len(feed.Feed.Entry))
	for _, entry := range feed.Feed.Entry {
		raws = append(raws, collectionEntryToRaw(entry))
	}
	return normalize.Apps(raws, domain.AppStore, a.logger), nil
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
