// Package event publishes domain events to Kafka.
package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/utafrali/storescope/internal/domain"
	pkgkafka "github.com/utafrali/storescope/pkg/kafka"
	"github.com/utafrali/storescope/pkg/logger"
)

// TopicSentimentCompleted carries one event per freshly computed sentiment
// analysis (cache hits do not publish).
const TopicSentimentCompleted = "sentiment.analysis.completed"

// Aggregate type constant.
const AggregateTypeApp = "app"

// Source identifier for events originating from this service.
const SourceStoreScope = "storescope"

// SentimentCompletedData is the payload for a sentiment.analysis.completed
// event.
type SentimentCompletedData struct {
	AppID        string `json:"app_id"`
	Country      string `json:"country"`
	DateRangeKey string `json:"date_range_key"`
	Positive     int    `json:"positive"`
	Neutral      int    `json:"neutral"`
	Negative     int    `json:"negative"`
}

// Producer publishes sentiment domain events to Kafka.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// AnalysisCompleted publishes a sentiment.analysis.completed event.
func (p *Producer) AnalysisCompleted(ctx context.Context, entry *domain.CachedSentiment) error {
	data := SentimentCompletedData{
		AppID:        entry.AppID,
		Country:      entry.Country,
		DateRangeKey: entry.DateRangeKey,
		Positive:     entry.Analysis.SentimentDistribution.Positive,
		Neutral:      entry.Analysis.SentimentDistribution.Neutral,
		Negative:     entry.Analysis.SentimentDistribution.Negative,
	}

	event, err := pkgkafka.NewEvent(TopicSentimentCompleted, entry.AppID, AggregateTypeApp, SourceStoreScope, data)
	if err != nil {
		return fmt.Errorf("create sentiment.analysis.completed event: %w", err)
	}
	event.WithCorrelationID(logger.CorrelationIDFromContext(ctx))

	if err := p.kafka.Publish(ctx, TopicSentimentCompleted, event); err != nil {
		return fmt.Errorf("publish sentiment.analysis.completed event: %w", err)
	}

	p.logger.DebugContext(ctx, "sentiment event published",
		slog.String("app_id", entry.AppID),
		slog.String("country", entry.Country),
	)
	return nil
}
