package normalize

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/utafrali/storescope/internal/domain"
)

// reviewDateLayouts are tried in order when the upstream encodes the review
// date as a string. RFC3339 covers both catalogs' primary formats.
var reviewDateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Review maps a raw review record into a UnifiedReview. Records without an id
// are rejected; everything else degrades to zero values.
func Review(raw Raw, store domain.Store) (domain.UnifiedReview, error) {
	paths := reviewFieldPaths[store]

	id := firstString(raw, paths["id"])
	if id == "" {
		return domain.UnifiedReview{}, fmt.Errorf("review record missing id")
	}

	score := firstNumber(raw, paths["score"])

	return domain.UnifiedReview{
		ID:       id,
		UserName: firstString(raw, paths["userName"]),
		Title:    firstString(raw, paths["title"]),
		Text:     firstString(raw, paths["text"]),
		Rating:   int(score),
		Score:    int(score),
		Version:  firstString(raw, paths["version"]),
		Updated:  reviewDate(raw, paths["date"]),
		Store:    store,
		UserURL:  firstString(raw, paths["userUrl"]),
		URL:      firstString(raw, paths["url"]),
	}, nil
}

// Reviews maps a batch of raw review records, dropping and logging records
// without an id.
func Reviews(raws []Raw, store domain.Store, logger *slog.Logger) []domain.UnifiedReview {
	reviews := make([]domain.UnifiedReview, 0, len(raws))
	for i, raw := range raws {
		review, err := Review(raw, store)
		if err != nil {
			logger.Warn("dropping unmappable review record",
				slog.String("store", store.String()),
				slog.Int("index", i),
				slog.String("reason", err.Error()),
			)
			continue
		}
		reviews = append(reviews, review)
	}
	return reviews
}

// reviewDate resolves the review timestamp, accepting either a string date or
// a millisecond epoch number. Unparseable dates yield the zero time, which
// sorts last and never matches a date-range filter.
func reviewDate(m Raw, paths []string) time.Time {
	for _, path := range paths {
		v, ok := lookup(m, path)
		if !ok {
			continue
		}
		switch val := v.(type) {
		case string:
			for _, layout := range reviewDateLayouts {
				if t, err := time.Parse(layout, val); err == nil {
					return t.UTC()
				}
			}
		case float64:
			return time.UnixMilli(int64(val)).UTC()
		}
	}
	return time.Time{}
}
