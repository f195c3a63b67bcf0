package domain

// HistogramEntry is one star-rating bucket of a rating histogram.
type HistogramEntry struct {
	Count      int    `json:"count"`
	Percentage string `json:"percentage"`
}

// RatingSummary aggregates an app's user ratings. Histogram always contains
// the keys 1..5, zero-filled when unknown. For the App Store the histogram is
// synthesized from the average (the native API exposes no per-star counts) and
// is an estimate, not a measured distribution; Estimated is set in that case.
type RatingSummary struct {
	Total     int                    `json:"total"`
	Average   float64                `json:"average"`
	Histogram map[int]HistogramEntry `json:"histogram"`
	Estimated bool                   `json:"estimated,omitempty"`
}

// CountryAvailability is one entry of an app's per-country availability list.
type CountryAvailability struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// UnifiedApp is the store-independent app record served by every catalog
// endpoint. ID and Store together uniquely identify an app; IDs from
// different stores may collide.
type UnifiedApp struct {
	ID               string                `json:"id"`
	Title            string                `json:"title"`
	Icon             string                `json:"icon"`
	Developer        string                `json:"developer"`
	DeveloperID      string                `json:"developerId,omitempty"`
	DeveloperURL     string                `json:"developerUrl,omitempty"`
	DeveloperWebsite string                `json:"developerWebsite,omitempty"`
	URL              string                `json:"url"`
	Description      string                `json:"description"`
	Score            float64               `json:"score"`
	Ratings          RatingSummary         `json:"ratings"`
	Price            float64               `json:"price"`
	Free             bool                  `json:"free"`
	Currency         string                `json:"currency"`
	Version          string                `json:"version,omitempty"`
	Released         string                `json:"released,omitempty"`
	Updated          string                `json:"updated,omitempty"`
	ReleaseNotes     string                `json:"releaseNotes,omitempty"`
	Size             string                `json:"size,omitempty"`
	ContentRating    string                `json:"contentRating,omitempty"`
	RequiredOSVersion string               `json:"requiredOsVersion,omitempty"`
	AndroidVersion   string                `json:"androidVersion,omitempty"`
	Installs         string                `json:"installs,omitempty"`
	Screenshots      []string              `json:"screenshots"`
	Genres           []string              `json:"genres"`
	GenreIDs         []string              `json:"genreIds,omitempty"`
	Languages        []string              `json:"languages,omitempty"`
	AvailableCountries []CountryAvailability `json:"availableCountries,omitempty"`
	Store            Store                 `json:"store"`
}

// ZeroRatings returns an empty rating summary with a zero-filled 1..5
// histogram, used when rating enrichment fails or is unavailable.
func ZeroRatings() RatingSummary {
	histogram := make(map[int]HistogramEntry, 5)
	for star := 1; star <= 5; star++ {
		histogram[star] = HistogramEntry{Count: 0, Percentage: "0.0%"}
	}
	return RatingSummary{Total: 0, Average: 0, Histogram: histogram}
}
