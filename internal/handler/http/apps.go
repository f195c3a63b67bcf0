package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/storescope/internal/collection"
	"github.com/utafrali/storescope/internal/domain"
	"github.com/utafrali/storescope/internal/store"
	"github.com/utafrali/storescope/pkg/cache"
	"github.com/utafrali/storescope/pkg/httputil"
)

// AppHandler handles HTTP requests for the catalog endpoints. Listing
// responses are memoized in a TTL cache keyed on the full request tuple.
type AppHandler struct {
	registry   *store.Registry
	cache      cache.Store
	listingTTL time.Duration
	logger     *slog.Logger
}

// NewAppHandler creates a new catalog HTTP handler. cache may be nil to
// disable listing memoization.
func NewAppHandler(registry *store.Registry, listingCache cache.Store, listingTTL time.Duration, logger *slog.Logger) *AppHandler {
	return &AppHandler{
		registry:   registry,
		cache:      listingCache,
		listingTTL: listingTTL,
		logger:     logger,
	}
}

// Search handles GET /search. When no store is given, both catalogs are
// queried concurrently and the results interleaved; a single failing store
// degrades to its half being empty.
func (h *AppHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	term := strings.TrimSpace(q.Get("term"))
	country, err := countryParam(r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	limit, err := limitParam(r, defaultListingLimit, maxListingLimit)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	lang := langParam(r)

	if err := validateQuery(searchQuery{Term: term, Country: country, Lang: lang, Limit: limit}); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	storeQ := q.Get("store")
	key := fmt.Sprintf("search:%s:%s:%s:%d:%s", storeQ, country, lang, limit, term)

	apps, err := h.listCached(r.Context(), key, func() ([]domain.UnifiedApp, error) {
		if storeQ != "" {
			s, err := domain.ParseStore(storeQ)
			if err != nil {
				return nil, err
			}
			adapter, err := h.registry.ForStore(s)
			if err != nil {
				return nil, err
			}
			return adapter.Search(r.Context(), term, country, lang, limit)
		}
		return h.searchAll(r.Context(), term, country, lang, limit), nil
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, apps)
}

// searchAll queries every configured store concurrently. Per-store failures
// degrade to an empty contribution.
func (h *AppHandler) searchAll(ctx context.Context, term, country, lang string, limit int) []domain.UnifiedApp {
	adapters := h.registry.All()
	results := make([][]domain.UnifiedApp, len(adapters))

	var wg sync.WaitGroup
	for i, adapter := range adapters {
		wg.Add(1)
		go func(i int, adapter store.Adapter) {
			defer wg.Done()
			apps, err := adapter.Search(ctx, term, country, lang, limit)
			if err != nil {
				h.logger.WarnContext(ctx, "store search failed, degrading to empty result",
					slog.String("store", adapter.Store().String()),
					slog.String("error", err.Error()),
				)
				return
			}
			results[i] = apps
		}(i, adapter)
	}
	wg.Wait()

	return interleave(results)
}

// interleave merges per-store result lists by alternating entries, so one
// store never monopolizes the top of a combined listing.
func interleave(lists [][]domain.UnifiedApp) []domain.UnifiedApp {
	total := 0
	longest := 0
	for _, l := range lists {
		total += len(l)
		if len(l) > longest {
			longest = len(l)
		}
	}

	merged := make([]domain.UnifiedApp, 0, total)
	for i := 0; i < longest; i++ {
		for _, l := range lists {
			if i < len(l) {
				merged = append(merged, l[i])
			}
		}
	}
	return merged
}

// AppDetail handles GET /app/{store}/{id}.
func (h *AppHandler) AppDetail(w http.ResponseWriter, r *http.Request) {
	s, err := storeParam(r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	country, err := countryParam(r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	adapter, err := h.registry.ForStore(s)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	app, err := adapter.AppDetail(r.Context(), chi.URLParam(r, "id"), country, langParam(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, app)
}

// Collection handles GET /collection/{store}/{type}.
func (h *AppHandler) Collection(w http.ResponseWriter, r *http.Request) {
	s, err := storeParam(r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	key, err := collection.Resolve(s, chi.URLParam(r, "type"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	h.serveListing(w, r, s, "collection:"+key, func(ctx context.Context, adapter store.Adapter, country, lang string, limit int) ([]domain.UnifiedApp, error) {
		return adapter.ByCollection(ctx, key, country, lang, limit)
	})
}

// CategoryApps handles GET /category-apps/{store}.
func (h *AppHandler) CategoryApps(w http.ResponseWriter, r *http.Request) {
	s, err := storeParam(r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	categoryID, err := collection.ResolveCategory(s, r.URL.Query().Get("categoryId"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	h.serveListing(w, r, s, "category:"+categoryID, func(ctx context.Context, adapter store.Adapter, country, lang string, limit int) ([]domain.UnifiedApp, error) {
		return adapter.ByCategory(ctx, categoryID, country, lang, limit)
	})
}

// DeveloperApps handles GET /developer-apps/{store}/{id}.
func (h *AppHandler) DeveloperApps(w http.ResponseWriter, r *http.Request) {
	s, err := storeParam(r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	devID := chi.URLParam(r, "id")
	h.serveListing(w, r, s, "developer:"+devID, func(ctx context.Context, adapter store.Adapter, country, lang string, limit int) ([]domain.UnifiedApp, error) {
		return adapter.ByDeveloper(ctx, devID, country, lang)
	})
}

// Similar handles GET /similar/{store}/{id}.
func (h *AppHandler) Similar(w http.ResponseWriter, r *http.Request) {
	s, err := storeParam(r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	id := chi.URLParam(r, "id")
	h.serveListing(w, r, s, "similar:"+id, func(ctx context.Context, adapter store.Adapter, country, lang string, limit int) ([]domain.UnifiedApp, error) {
		return adapter.Similar(ctx, id, country, lang)
	})
}

// Countries handles GET /countries.
func (h *AppHandler) Countries(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, domain.CountryList())
}

// serveListing runs the shared validate/cache/fetch/respond flow of the
// listing endpoints.
func (h *AppHandler) serveListing(
	w http.ResponseWriter,
	r *http.Request,
	s domain.Store,
	keyPrefix string,
	fetch func(ctx context.Context, adapter store.Adapter, country, lang string, limit int) ([]domain.UnifiedApp, error),
) {
	country, err := countryParam(r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	limit, err := limitParam(r, defaultListingLimit, maxListingLimit)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	lang := langParam(r)

	adapter, err := h.registry.ForStore(s)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	key := fmt.Sprintf("%s:%s:%s:%s:%d", keyPrefix, s, country, lang, limit)
	apps, err := h.listCached(r.Context(), key, func() ([]domain.UnifiedApp, error) {
		return fetch(r.Context(), adapter, country, lang, limit)
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, apps)
}

// listCached memoizes a listing fetch in the TTL cache. Cache failures only
// cost the memoization, never the request.
func (h *AppHandler) listCached(ctx context.Context, key string, fetch func() ([]domain.UnifiedApp, error)) ([]domain.UnifiedApp, error) {
	if h.cache != nil {
		var apps []domain.UnifiedApp
		ok, err := h.cache.Get(ctx, key, &apps)
		if err != nil {
			h.logger.WarnContext(ctx, "listing cache read failed",
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
		} else if ok {
			return apps, nil
		}
	}

	apps, err := fetch()
	if err != nil {
		return nil, err
	}
	if apps == nil {
		apps = []domain.UnifiedApp{}
	}

	if h.cache != nil {
		if err := h.cache.Set(ctx, key, apps, h.listingTTL); err != nil {
			h.logger.WarnContext(ctx, "listing cache write failed",
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
		}
	}
	return apps, nil
}
