package normalize

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/utafrali/storescope/internal/domain"
)

// essentialAppFields must all resolve for a record to be usable; records
// missing any of them are dropped from result sets rather than failing the
// whole fetch.
var essentialAppFields = []string{"id", "title", "icon", "developer", "url"}

// App maps a raw store record into a UnifiedApp. It returns an error naming
// the missing fields when the record lacks any essential field.
func App(raw Raw, store domain.Store) (domain.UnifiedApp, error) {
	paths := appFieldPaths[store]

	var missing []string
	for _, field := range essentialAppFields {
		if firstString(raw, paths[field]) == "" {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return domain.UnifiedApp{}, fmt.Errorf("record missing required fields: %s", strings.Join(missing, ", "))
	}

	price := firstNumber(raw, paths["price"])
	currency := firstString(raw, paths["currency"])
	if currency == "" {
		currency = "USD"
	}

	app := domain.UnifiedApp{
		ID:                firstString(raw, paths["id"]),
		Title:             firstString(raw, paths["title"]),
		Icon:              firstString(raw, paths["icon"]),
		Developer:         firstString(raw, paths["developer"]),
		DeveloperID:       firstString(raw, paths["developerId"]),
		DeveloperURL:      firstString(raw, paths["developerUrl"]),
		DeveloperWebsite:  firstString(raw, paths["developerWebsite"]),
		URL:               firstString(raw, paths["url"]),
		Description:       firstString(raw, paths["description"]),
		Price:             price,
		Free:              price == 0,
		Currency:          currency,
		Version:           firstString(raw, paths["version"]),
		Released:          firstString(raw, paths["released"]),
		Updated:           firstString(raw, paths["updated"]),
		ReleaseNotes:      firstString(raw, paths["releaseNotes"]),
		Size:              firstString(raw, paths["size"]),
		ContentRating:     firstString(raw, paths["contentRating"]),
		RequiredOSVersion: firstString(raw, paths["requiredOsVersion"]),
		AndroidVersion:    firstString(raw, paths["androidVersion"]),
		Installs:          firstString(raw, paths["installs"]),
		Screenshots:       firstStringSlice(raw, paths["screenshots"]),
		Genres:            genresWithPrimary(raw, paths),
		GenreIDs:          genreIDsWithPrimary(raw, paths),
		Languages:         firstStringSlice(raw, paths["languages"]),
		Ratings:           Ratings(raw, store),
		Store:             store,
	}
	app.Score = app.Ratings.Average
	if app.Screenshots == nil {
		app.Screenshots = []string{}
	}
	if app.Genres == nil {
		app.Genres = []string{}
	}

	return app, nil
}

// Apps maps a batch of raw records, dropping and logging any that lack
// essential fields. A fetch of N records may legitimately yield fewer than N
// unified apps.
func Apps(raws []Raw, store domain.Store, logger *slog.Logger) []domain.UnifiedApp {
	apps := make([]domain.UnifiedApp, 0, len(raws))
	for i, raw := range raws {
		app, err := App(raw, store)
		if err != nil {
			logger.Warn("dropping unmappable app record",
				slog.String("store", store.String()),
				slog.Int("index", i),
				slog.String("reason", err.Error()),
			)
			continue
		}
		apps = append(apps, app)
	}
	return apps
}

// Ratings extracts the rating summary from a raw record. Play Store records
// carry a native per-star histogram; App Store records only expose a total
// and an average, so the histogram is synthesized and flagged as estimated.
func Ratings(raw Raw, store domain.Store) domain.RatingSummary {
	paths := appFieldPaths[store]
	total := int(firstNumber(raw, paths["ratingsTotal"]))
	average := firstNumber(raw, paths["ratingsAverage"])

	if store == domain.PlayStore {
		counts := make(map[int]int, 5)
		if h, ok := lookup(raw, "histogram"); ok {
			if hist, ok := h.(map[string]any); ok {
				for star := 1; star <= 5; star++ {
					if v, ok := hist[fmt.Sprint(star)].(float64); ok {
						counts[star] = int(v)
					}
				}
			}
		}
		return domain.RatingSummary{
			Total:     total,
			Average:   average,
			Histogram: HistogramFromCounts(counts, total),
		}
	}

	estimated := EstimateHistogram(total, average)
	counts := make(map[int]int, 5)
	for i, c := range estimated {
		counts[i+1] = c
	}
	return domain.RatingSummary{
		Total:     total,
		Average:   average,
		Histogram: HistogramFromCounts(counts, total),
		Estimated: true,
	}
}

// genresWithPrimary prepends the primary genre to the genre list when it is
// not already present.
func genresWithPrimary(raw Raw, paths map[string][]string) []string {
	genres := firstStringSlice(raw, paths["genres"])
	primary := firstString(raw, paths["genre"])
	if primary == "" {
		return genres
	}
	for _, g := range genres {
		if g == primary {
			return genres
		}
	}
	return append([]string{primary}, genres...)
}

func genreIDsWithPrimary(raw Raw, paths map[string][]string) []string {
	ids := firstStringSlice(raw, paths["genreIds"])
	primary := firstString(raw, paths["genreId"])
	if primary == "" {
		return ids
	}
	for _, id := range ids {
		if id == primary {
			return ids
		}
	}
	return append([]string{primary}, ids...)
}
