package domain

import (
	"time"

	apperrors "github.com/utafrali/storescope/pkg/errors"
)

// UnifiedReview is the store-independent review record. Score is a legacy
// alias of Rating kept for the single-page client. ID uniqueness is scoped
// per (store, app); reviews from different stores may share an ID.
type UnifiedReview struct {
	ID       string    `json:"id"`
	UserName string    `json:"userName"`
	Title    string    `json:"title"`
	Text     string    `json:"text"`
	Rating   int       `json:"rating"`
	Score    int       `json:"score"`
	Version  string    `json:"version,omitempty"`
	Updated  time.Time `json:"updated"`
	Store    Store     `json:"store"`
	UserURL  string    `json:"userUrl,omitempty"`
	URL      string    `json:"url,omitempty"`
}

// DateRange bounds a review query by review date, inclusive on both ends.
// A zero End means the range is open-ended toward the present.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// NewDateRange parses optional ISO-8601 date parameters into a DateRange.
// Returns nil when both are empty. A start after the end is rejected.
func NewDateRange(startDate, endDate string) (*DateRange, error) {
	if startDate == "" && endDate == "" {
		return nil, nil
	}

	var r DateRange
	var err error
	if startDate != "" {
		r.Start, err = parseDate(startDate)
		if err != nil {
			return nil, apperrors.InvalidInput("invalid startDate, must be an ISO-8601 date")
		}
	}
	if endDate != "" {
		r.End, err = parseDate(endDate)
		if err != nil {
			return nil, apperrors.InvalidInput("invalid endDate, must be an ISO-8601 date")
		}
		// An end given as a bare date means "through the end of that day".
		if len(endDate) == len("2006-01-02") {
			r.End = r.End.Add(24*time.Hour - time.Nanosecond)
		}
	}
	if !r.Start.IsZero() && !r.End.IsZero() && r.Start.After(r.End) {
		return nil, apperrors.InvalidInput("startDate must not be after endDate")
	}
	return &r, nil
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

// Contains reports whether t falls within the range.
func (r *DateRange) Contains(t time.Time) bool {
	if r == nil {
		return true
	}
	if !r.Start.IsZero() && t.Before(r.Start) {
		return false
	}
	if !r.End.IsZero() && t.After(r.End) {
		return false
	}
	return true
}

// Before reports whether t falls entirely before the range start. Reviews
// arrive in descending date order from both stores, so a review before the
// start means every subsequent review is out of range too.
func (r *DateRange) Before(t time.Time) bool {
	return r != nil && !r.Start.IsZero() && t.Before(r.Start)
}
