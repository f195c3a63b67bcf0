package http

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/storescope/internal/aggregate"
	"github.com/utafrali/storescope/internal/domain"
	apperrors "github.com/utafrali/storescope/pkg/errors"
	"github.com/utafrali/storescope/pkg/httputil"
)

// SentimentProvider is the sentiment cache contract the review handler
// depends on.
type SentimentProvider interface {
	GetOrCompute(ctx context.Context, appID, country string, dateRange *domain.DateRange, reviews []domain.UnifiedReview) (domain.SentimentAnalysis, error)
}

// ReviewHandler handles HTTP requests for the review endpoints.
type ReviewHandler struct {
	aggregator *aggregate.Aggregator
	sentiment  SentimentProvider
	logger     *slog.Logger
}

// NewReviewHandler creates a new review HTTP handler.
func NewReviewHandler(aggregator *aggregate.Aggregator, sentiment SentimentProvider, logger *slog.Logger) *ReviewHandler {
	return &ReviewHandler{
		aggregator: aggregator,
		sentiment:  sentiment,
		logger:     logger,
	}
}

// reviewRequest parses the shared path and query parameters of the review
// endpoints. Validation happens before any upstream call.
func (h *ReviewHandler) reviewRequest(r *http.Request, limit int) (domain.Store, aggregate.Request, error) {
	s, err := storeParam(r)
	if err != nil {
		return "", aggregate.Request{}, err
	}
	country, err := countryParam(r)
	if err != nil {
		return "", aggregate.Request{}, err
	}
	dateRange, err := dateRangeParams(r)
	if err != nil {
		return "", aggregate.Request{}, err
	}

	return s, aggregate.Request{
		AppID:     chi.URLParam(r, "id"),
		Country:   country,
		Lang:      langParam(r),
		Limit:     limit,
		DateRange: dateRange,
	}, nil
}

// Reviews handles GET /reviews/{store}/{id}.
func (h *ReviewHandler) Reviews(w http.ResponseWriter, r *http.Request) {
	limit, err := limitParam(r, defaultReviewLimit, maxReviewLimit)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	s, req, err := h.reviewRequest(r, limit)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	reviews, err := h.aggregator.Reviews(r.Context(), s, req)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, reviews)
}

// Sentiment handles GET /reviews/{store}/{id}/sentiment. The review fetch
// always uses the maximum review limit; the analyzer caps its own prompt.
func (h *ReviewHandler) Sentiment(w http.ResponseWriter, r *http.Request) {
	s, req, err := h.reviewRequest(r, maxReviewLimit)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	reviews, err := h.aggregator.Reviews(r.Context(), s, req)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if len(reviews) == 0 {
		httputil.WriteError(w, r, apperrors.NotFound("reviews for app", req.AppID), h.logger)
		return
	}

	analysis, err := h.sentiment.GetOrCompute(r.Context(), req.AppID, req.Country, req.DateRange, reviews)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, analysis)
}

// ReviewsCSV handles GET /reviews/{store}/{id}/csv. A partial fetch still
// emits whatever was collected; only zero reviews yields a 404.
func (h *ReviewHandler) ReviewsCSV(w http.ResponseWriter, r *http.Request) {
	s, req, err := h.reviewRequest(r, maxReviewLimit)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	reviews, err := h.aggregator.Reviews(r.Context(), s, req)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if len(reviews) == 0 {
		httputil.WriteError(w, r, apperrors.NotFound("reviews for app", req.AppID), h.logger)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=reviews-%s-%s.csv", req.AppID, req.Country))

	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"id", "userName", "title", "text", "rating", "version", "updated", "store"})
	for _, review := range reviews {
		_ = cw.Write([]string{
			review.ID,
			review.UserName,
			review.Title,
			review.Text,
			strconv.Itoa(review.Rating),
			review.Version,
			review.Updated.UTC().Format(time.RFC3339),
			review.Store.String(),
		})
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		h.logger.ErrorContext(r.Context(), "csv write failed",
			slog.String("appId", req.AppID),
			slog.String("error", err.Error()),
		)
	}
}
