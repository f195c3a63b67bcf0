package domain

import "time"

// SentimentDistribution buckets the analyzed reviews by sentiment. Counts
// should sum to the number of reviews analyzed, but the external model is not
// guaranteed to honor that; the counts are advisory.
type SentimentDistribution struct {
	Positive int `json:"Positive"`
	Neutral  int `json:"Neutral"`
	Negative int `json:"Negative"`
}

// SentimentIssue is one recurring issue extracted from negative and neutral
// reviews.
type SentimentIssue struct {
	Issue       string `json:"Issue"`
	Mentions    int    `json:"Mentions"`
	Description string `json:"Description"`
}

// SentimentInsights summarizes the overall sentiment and notable patterns.
type SentimentInsights struct {
	OverallSentiment string   `json:"OverallSentiment"`
	KeyPatterns      []string `json:"KeyPatterns"`
}

// SentimentAnalysis is the schema-constrained result returned by the external
// classification model. Field names match the JSON schema sent to the model.
type SentimentAnalysis struct {
	SentimentDistribution SentimentDistribution `json:"SentimentDistribution"`
	TopIssues             []SentimentIssue      `json:"TopIssues"`
	Insights              SentimentInsights     `json:"Insights"`
}

// CachedSentiment is the persisted cache record for one
// (app, country, date range) analysis. It is exclusively owned by the
// sentiment cache: entries are overwritten in place once stale and never
// explicitly deleted.
type CachedSentiment struct {
	AppID        string            `json:"appId"`
	Country      string            `json:"country"`
	DateRangeKey string            `json:"dateRangeKey"`
	Analysis     SentimentAnalysis `json:"analysis"`
	LastUpdated  time.Time         `json:"lastUpdated"`
}
