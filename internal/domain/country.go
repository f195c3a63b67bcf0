package domain

import (
	"fmt"
	"sort"
	"strings"

	apperrors "github.com/utafrali/storescope/pkg/errors"
)

// SupportedCountries maps the ISO 3166-1 alpha-2 codes the service accepts to
// their display names. Both upstream catalogs are regionalized; requests for
// countries outside this list are rejected before any upstream call.
var SupportedCountries = map[string]string{
	"AE": "United Arab Emirates",
	"AU": "Australia",
	"BE": "Belgium",
	"BR": "Brazil",
	"CA": "Canada",
	"CH": "Switzerland",
	"CN": "China",
	"DE": "Germany",
	"DK": "Denmark",
	"ES": "Spain",
	"FI": "Finland",
	"FR": "France",
	"GB": "United Kingdom",
	"HK": "Hong Kong",
	"ID": "Indonesia",
	"IN": "India",
	"IT": "Italy",
	"JP": "Japan",
	"KR": "South Korea",
	"LU": "Luxembourg",
	"MX": "Mexico",
	"NL": "Netherlands",
	"NO": "Norway",
	"PL": "Poland",
	"RU": "Russia",
	"SA": "Saudi Arabia",
	"SE": "Sweden",
	"SG": "Singapore",
	"TR": "Turkey",
	"TW": "Taiwan",
	"US": "United States",
}

// IsValidCountry reports whether code is a supported country code.
// Matching is case-insensitive.
func IsValidCountry(code string) bool {
	_, ok := SupportedCountries[strings.ToUpper(code)]
	return ok
}

// NormalizeCountry validates and upper-cases a country parameter, defaulting
// to US when empty.
func NormalizeCountry(code string) (string, error) {
	if code == "" {
		return "US", nil
	}
	normalized := strings.ToUpper(code)
	if !IsValidCountry(normalized) {
		return "", apperrors.InvalidInput(fmt.Sprintf(
			"invalid country code: %s, must be a supported ISO 3166-1 alpha-2 code", code))
	}
	return normalized, nil
}

// CountryList returns the supported countries sorted by code, for the
// /countries endpoint.
func CountryList() []CountryAvailability {
	list := make([]CountryAvailability, 0, len(SupportedCountries))
	for code, name := range SupportedCountries {
		list = append(list, CountryAvailability{Code: code, Name: name})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Code < list[j].Code })
	return list
}
