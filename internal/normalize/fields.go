// Package normalize maps raw store API records into the unified app and
// review schemas. Upstream responses are not guaranteed to use one consistent
// shape, so every field is resolved through an ordered list of candidate
// paths; adding support for a new upstream shape means extending a table, not
// hunting through call sites.
package normalize

import (
	"strconv"
	"strings"

	"github.com/utafrali/storescope/internal/domain"
)

// Raw is an untyped upstream record as decoded from JSON.
type Raw = map[string]any

// appFieldPaths lists, per store and per unified field, the dotted paths
// tried in order against the raw record. The first path yielding a non-empty
// value wins.
var appFieldPaths = map[domain.Store]map[string][]string{
	domain.AppStore: {
		"id":                {"id", "attributes.id", "trackId"},
		"title":             {"title", "attributes.name", "name", "trackName"},
		"icon":              {"icon", "attributes.artwork.url", "artworkUrl", "artworkUrl512", "artworkUrl100"},
		"developer":         {"developer", "attributes.artistName", "artist", "artistName"},
		"developerId":       {"developerId", "attributes.artistId", "artistId"},
		"developerUrl":      {"developerUrl", "attributes.artistViewUrl", "artistViewUrl"},
		"developerWebsite":  {"developerWebsite", "attributes.sellerUrl", "sellerUrl"},
		"url":               {"url", "href", "attributes.url", "trackViewUrl"},
		"description":       {"description", "attributes.description"},
		"price":             {"price", "attributes.price"},
		"currency":          {"currency", "attributes.currency"},
		"version":           {"version", "attributes.version"},
		"released":          {"released", "attributes.releaseDate", "releaseDate"},
		"updated":           {"updated", "attributes.currentVersionReleaseDate", "currentVersionReleaseDate"},
		"releaseNotes":      {"releaseNotes", "attributes.releaseNotes"},
		"size":              {"size", "attributes.fileSizeBytes", "fileSizeBytes"},
		"contentRating":     {"contentRating", "attributes.contentAdvisoryRating"},
		"requiredOsVersion": {"requiredOsVersion", "attributes.minimumOsVersion", "minimumOsVersion"},
		"screenshots":       {"screenshots", "attributes.screenshotUrls", "screenshotUrls"},
		"genre":             {"genre", "attributes.primaryGenreName", "primaryGenreName"},
		"genreId":           {"genreId", "attributes.primaryGenreId", "primaryGenreId"},
		"genres":            {"genres", "attributes.genres"},
		"genreIds":          {"genreIds", "attributes.genreIds"},
		"languages":         {"languages", "attributes.languageCodesISO2A"},
		"ratingsTotal":      {"userRatingCount", "ratingCount", "attributes.userRatingCount"},
		"ratingsAverage":    {"averageUserRating", "averageRating", "attributes.averageUserRating", "score"},
	},
	domain.PlayStore: {
		"id":               {"appId", "id"},
		"title":            {"title", "name"},
		"icon":             {"icon"},
		"developer":        {"developer"},
		"developerId":      {"developerId"},
		"developerUrl":     {"developerUrl", "developerPageUrl"},
		"developerWebsite": {"developerWebsite"},
		"url":              {"url", "href"},
		"description":      {"description", "descriptionHTML", "summary"},
		"price":            {"price"},
		"currency":         {"currency"},
		"version":          {"version"},
		"released":         {"released"},
		"updated":          {"updated"},
		"releaseNotes":     {"recentChanges"},
		"size":             {"size"},
		"contentRating":    {"contentRating"},
		"androidVersion":   {"androidVersion", "androidVersionText"},
		"installs":         {"installs", "installsText", "minInstalls"},
		"screenshots":      {"screenshots"},
		"genre":            {"genre"},
		"genreId":          {"genreId"},
		"genres":           {"genres", "categories"},
		"genreIds":         {"genreIds"},
		"languages":        {"supportedLanguages"},
		"ratingsTotal":     {"ratings"},
		"ratingsAverage":   {"score"},
	},
}

// reviewFieldPaths lists the candidate paths for unified review fields.
var reviewFieldPaths = map[domain.Store]map[string][]string{
	domain.AppStore: {
		"id":       {"id"},
		"userName": {"userName", "author"},
		"title":    {"title"},
		"text":     {"text", "content"},
		"score":    {"score", "rating"},
		"version":  {"version"},
		"date":     {"updated", "date"},
		"userUrl":  {"userUrl"},
		"url":      {"url"},
	},
	domain.PlayStore: {
		"id":       {"id", "reviewId"},
		"userName": {"userName"},
		"text":     {"text"},
		"score":    {"score", "rating"},
		"version":  {"version"},
		"date":     {"date", "updated", "at"},
		// Play Store exposes only the review permalink, which points at the
		// reviewer, so it maps to userUrl.
		"userUrl": {"url"},
	},
}

// lookup resolves a dotted path against a raw record.
func lookup(m Raw, path string) (any, bool) {
	parts := strings.Split(path, ".")
	var current any = m
	for _, part := range parts {
		obj, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = obj[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// firstString resolves the given paths in order and returns the first
// non-empty string. Numeric values are stringified, which covers numeric IDs.
func firstString(m Raw, paths []string) string {
	for _, path := range paths {
		v, ok := lookup(m, path)
		if !ok {
			continue
		}
		switch val := v.(type) {
		case string:
			if val != "" {
				return val
			}
		case float64:
			return formatNumber(val)
		case int:
			return strconv.Itoa(val)
		}
	}
	return ""
}

// firstNumber resolves the given paths in order and returns the first numeric
// value, tolerating numbers encoded as strings.
func firstNumber(m Raw, paths []string) float64 {
	for _, path := range paths {
		v, ok := lookup(m, path)
		if !ok {
			continue
		}
		switch val := v.(type) {
		case float64:
			return val
		case int:
			return float64(val)
		case string:
			if f, err := strconv.ParseFloat(val, 64); err == nil {
				return f
			}
		}
	}
	return 0
}

// firstStringSlice resolves the given paths in order and returns the first
// non-empty string slice.
func firstStringSlice(m Raw, paths []string) []string {
	for _, path := range paths {
		v, ok := lookup(m, path)
		if !ok {
			continue
		}
		items, ok := v.([]any)
		if !ok || len(items) == 0 {
			continue
		}
		out := make([]string, 0, len(items))
		for _, item := range items {
			switch val := item.(type) {
			case string:
				out = append(out, val)
			case float64:
				out = append(out, formatNumber(val))
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return nil
}

// formatNumber renders a JSON number without a trailing ".000000" when it is
// integral (JSON decodes all numbers as float64).
func formatNumber(f float64) string {
	if f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
