package normalize

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/storescope/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func validAppStoreRaw() Raw {
	return Raw{
		"trackId":           float64(553834731),
		"trackName":         "Candy Crush Saga",
		"artworkUrl100":     "https://example.com/icon.png",
		"artistName":        "King",
		"artistId":          float64(526656015),
		"trackViewUrl":      "https://apps.apple.com/us/app/id553834731",
		"description":       "Match three candies.",
		"price":             0.0,
		"currency":          "USD",
		"version":           "1.284.0",
		"primaryGenreName":  "Games",
		"genres":            []any{"Games", "Puzzle"},
		"userRatingCount":   float64(100),
		"averageUserRating": 4.5,
	}
}

func validPlayStoreRaw() Raw {
	return Raw{
		"appId":     "com.king.candycrushsaga",
		"title":     "Candy Crush Saga",
		"icon":      "https://example.com/icon.png",
		"developer": "King",
		"url":       "https://play.google.com/store/apps/details?id=com.king.candycrushsaga",
		"price":     2.99,
		"currency":  "EUR",
		"score":     4.3,
		"ratings":   float64(10),
		"histogram": map[string]any{
			"1": float64(1), "2": float64(0), "3": float64(1), "4": float64(3), "5": float64(5),
		},
	}
}

func TestAppMapsAppStoreRecord(t *testing.T) {
	app, err := App(validAppStoreRaw(), domain.AppStore)

	require.NoError(t, err)
	assert.Equal(t, "553834731", app.ID)
	assert.Equal(t, "Candy Crush Saga", app.Title)
	assert.Equal(t, "King", app.Developer)
	assert.Equal(t, "526656015", app.DeveloperID)
	assert.Equal(t, domain.AppStore, app.Store)
	assert.True(t, app.Free)
	assert.Equal(t, "USD", app.Currency)
	assert.Equal(t, []string{"Games", "Puzzle"}, app.Genres)
	assert.Equal(t, 4.5, app.Score)
	assert.True(t, app.Ratings.Estimated)
	assert.Equal(t, 100, app.Ratings.Total)
}

func TestAppMapsPlayStoreRecordWithNativeHistogram(t *testing.T) {
	app, err := App(validPlayStoreRaw(), domain.PlayStore)

	require.NoError(t, err)
	assert.Equal(t, "com.king.candycrushsaga", app.ID)
	assert.False(t, app.Free)
	assert.Equal(t, "EUR", app.Currency)
	assert.False(t, app.Ratings.Estimated)
	assert.Equal(t, 5, app.Ratings.Histogram[5].Count)
	assert.Equal(t, "50.0%", app.Ratings.Histogram[5].Percentage)
	assert.Equal(t, 0, app.Ratings.Histogram[2].Count)
}

func TestAppRejectsRecordMissingEssentialFields(t *testing.T) {
	raw := validAppStoreRaw()
	delete(raw, "trackName")
	delete(raw, "artistName")

	_, err := App(raw, domain.AppStore)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "title")
	assert.Contains(t, err.Error(), "developer")
}

func TestAppDefaultsCurrencyToUSD(t *testing.T) {
	raw := validPlayStoreRaw()
	delete(raw, "currency")

	app, err := App(raw, domain.PlayStore)

	require.NoError(t, err)
	assert.Equal(t, "USD", app.Currency)
}

func TestAppPrependsPrimaryGenre(t *testing.T) {
	raw := validAppStoreRaw()
	raw["primaryGenreName"] = "Entertainment"

	app, err := App(raw, domain.AppStore)

	require.NoError(t, err)
	assert.Equal(t, []string{"Entertainment", "Games", "Puzzle"}, app.Genres)
}

func TestAppDoesNotDuplicatePrimaryGenre(t *testing.T) {
	app, err := App(validAppStoreRaw(), domain.AppStore)

	require.NoError(t, err)
	assert.Equal(t, []string{"Games", "Puzzle"}, app.Genres)
}

func TestAppsDropsUnmappableRecords(t *testing.T) {
	raws := []Raw{
		validAppStoreRaw(),
		{"trackId": float64(1)}, // missing everything else
		validAppStoreRaw(),
	}

	apps := Apps(raws, domain.AppStore, discardLogger())

	assert.Len(t, apps, 2)
}

func TestRatingsEstimatedHistogramSumsToTotal(t *testing.T) {
	raw := Raw{
		"userRatingCount":   float64(1000),
		"averageUserRating": 4.7,
	}

	summary := Ratings(raw, domain.AppStore)

	require.True(t, summary.Estimated)
	sum := 0
	for star := 1; star <= 5; star++ {
		sum += summary.Histogram[star].Count
	}
	assert.Equal(t, 1000, sum)
	assert.Equal(t, summary.Total, sum)
}

func TestFirstStringStringifiesNumericIDs(t *testing.T) {
	raw := Raw{"trackId": float64(553834731)}
	assert.Equal(t, "553834731", firstString(raw, []string{"trackId"}))
}

func TestLookupResolvesNestedPaths(t *testing.T) {
	raw := Raw{"attributes": map[string]any{"artwork": map[string]any{"url": "x"}}}

	v, ok := lookup(raw, "attributes.artwork.url")
	require.True(t, ok)
	assert.Equal(t, "x", v)

	_, ok = lookup(raw, "attributes.missing.url")
	assert.False(t, ok)
}
