// Package collection validates collection and category identifiers per store.
// The two catalogs use disjoint vocabularies, so a key valid for one store is
// always invalid for the other; resolution never falls through across stores.
package collection

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/utafrali/storescope/internal/domain"
	apperrors "github.com/utafrali/storescope/pkg/errors"
)

// appStoreCollections are the iTunes RSS feed names accepted for the App
// Store, covering iOS, iPad and Mac charts.
var appStoreCollections = map[string]struct{}{
	"topfreeapplications":         {},
	"topgrossingapplications":     {},
	"toppaidapplications":         {},
	"newapplications":             {},
	"newfreeapplications":         {},
	"newpaidapplications":         {},
	"topfreeipadapplications":     {},
	"topgrossingipadapplications": {},
	"toppaidipadapplications":     {},
	"topmacapplications":          {},
	"topfreemacapplications":      {},
	"topgrossingmacapplications":  {},
	"toppaidmacapplications":      {},
}

// playStoreCollections are the chart identifiers accepted for Google Play.
var playStoreCollections = map[string]struct{}{
	"topselling_free": {},
	"topselling_paid": {},
	"topgrossing":     {},
}

// playStoreCategories is the fixed Google Play category vocabulary.
var playStoreCategories = map[string]struct{}{
	"APPLICATION":         {},
	"ANDROID_WEAR":        {},
	"ART_AND_DESIGN":      {},
	"AUTO_AND_VEHICLES":   {},
	"BEAUTY":              {},
	"BOOKS_AND_REFERENCE": {},
	"BUSINESS":            {},
	"COMICS":              {},
	"COMMUNICATION":       {},
	"DATING":              {},
	"EDUCATION":           {},
	"ENTERTAINMENT":       {},
	"EVENTS":              {},
	"FINANCE":             {},
	"FOOD_AND_DRINK":      {},
	"HEALTH_AND_FITNESS":  {},
	"HOUSE_AND_HOME":      {},
	"LIBRARIES_AND_DEMO":  {},
	"LIFESTYLE":           {},
	"MAPS_AND_NAVIGATION": {},
	"MEDICAL":             {},
	"MUSIC_AND_AUDIO":     {},
	"NEWS_AND_MAGAZINES":  {},
	"PARENTING":           {},
	"PERSONALIZATION":     {},
	"PHOTOGRAPHY":         {},
	"PRODUCTIVITY":        {},
	"SHOPPING":            {},
	"SOCIAL":              {},
	"SPORTS":              {},
	"TOOLS":               {},
	"TRAVEL_AND_LOCAL":    {},
	"VIDEO_PLAYERS":       {},
	"WEATHER":             {},
	"GAME":                {},
	"GAME_ACTION":         {},
	"GAME_ADVENTURE":      {},
	"GAME_ARCADE":         {},
	"GAME_BOARD":          {},
	"GAME_CARD":           {},
	"GAME_CASINO":         {},
	"GAME_CASUAL":         {},
	"GAME_EDUCATIONAL":    {},
	"GAME_MUSIC":          {},
	"GAME_PUZZLE":         {},
	"GAME_RACING":         {},
	"GAME_ROLE_PLAYING":   {},
	"GAME_SIMULATION":     {},
	"GAME_SPORTS":         {},
	"GAME_STRATEGY":       {},
	"GAME_TRIVIA":         {},
	"GAME_WORD":           {},
	"FAMILY":              {},
}

// Resolve validates a collection key for the given store and returns it
// unchanged when valid. Unknown keys are rejected with the list of valid keys
// for that store.
func Resolve(store domain.Store, key string) (string, error) {
	table := appStoreCollections
	if store == domain.PlayStore {
		table = playStoreCollections
	}
	if _, ok := table[key]; !ok {
		return "", apperrors.InvalidCollection(key, store.String(), Keys(store))
	}
	return key, nil
}

// ResolveCategory validates a category identifier for the given store. The
// App Store addresses categories by numeric genre id, Google Play by a named
// category constant.
func ResolveCategory(store domain.Store, category string) (string, error) {
	if category == "" {
		return "", apperrors.InvalidInput("categoryId is required")
	}
	if store == domain.AppStore {
		if _, err := strconv.Atoi(category); err != nil {
			return "", apperrors.InvalidInput(fmt.Sprintf(
				"invalid appstore category %q, must be a numeric genre id", category))
		}
		return category, nil
	}
	if _, ok := playStoreCategories[category]; !ok {
		return "", apperrors.InvalidInput(fmt.Sprintf(
			"invalid playstore category %q, must be a known category constant", category))
	}
	return category, nil
}

// Keys returns the valid collection keys for a store, sorted.
func Keys(store domain.Store) []string {
	table := appStoreCollections
	if store == domain.PlayStore {
		table = playStoreCollections
	}
	keys := make([]string, 0, len(table))
	for k := range table {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
