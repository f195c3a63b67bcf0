package http

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/storescope/internal/domain"
	apperrors "github.com/utafrali/storescope/pkg/errors"
	"github.com/utafrali/storescope/pkg/validator"
)

// Limit bounds per endpoint family.
const (
	defaultListingLimit = 50
	maxListingLimit     = 100
	defaultReviewLimit  = 100
	maxReviewLimit      = 200
)

// storeParam resolves the {store} path parameter.
func storeParam(r *http.Request) (domain.Store, error) {
	return domain.ParseStore(chi.URLParam(r, "store"))
}

// countryParam validates the country query parameter, defaulting to US.
func countryParam(r *http.Request) (string, error) {
	return domain.NormalizeCountry(r.URL.Query().Get("country"))
}

// langParam returns the lang query parameter as-is; upstream catalogs accept
// a broad set of locale spellings, so it is passed through.
func langParam(r *http.Request) string {
	return r.URL.Query().Get("lang")
}

// limitParam parses the limit query parameter against the given bounds. Zero
// is allowed and means "no results"; exceeding max is rejected rather than
// clamped so callers learn the bound.
func limitParam(r *http.Request, def, max int) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0, apperrors.InvalidInput(fmt.Sprintf("invalid limit %q, must be a non-negative integer", raw))
	}
	if limit > max {
		return 0, apperrors.InvalidInput(fmt.Sprintf("limit %d exceeds maximum of %d", limit, max))
	}
	return limit, nil
}

// dateRangeParams parses the optional startDate/endDate query parameters.
func dateRangeParams(r *http.Request) (*domain.DateRange, error) {
	q := r.URL.Query()
	return domain.NewDateRange(q.Get("startDate"), q.Get("endDate"))
}

// searchQuery carries the validated /search parameters.
type searchQuery struct {
	Term    string `validate:"required,min=1,max=200"`
	Country string `validate:"required,len=2"`
	Lang    string `validate:"omitempty,min=2,max=10"`
	Limit   int    `validate:"gte=0,lte=100"`
}

// validateQuery runs struct validation and maps failures onto the 400 error
// taxonomy.
func validateQuery(q any) error {
	if err := validator.Validate(q); err != nil {
		var vErr *validator.ValidationError
		if errors.As(err, &vErr) {
			return apperrors.InvalidInput(vErr.Error())
		}
		return apperrors.Internal(err)
	}
	return nil
}
