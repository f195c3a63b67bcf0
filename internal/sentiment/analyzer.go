// Package sentiment analyzes review text through an external
// chat-completions model and caches the results with a staleness window.
package sentiment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/utafrali/storescope/internal/domain"
	apperrors "github.com/utafrali/storescope/pkg/errors"
)

const (
	// DefaultBaseURL is the public Mistral API host.
	DefaultBaseURL = "https://api.mistral.ai"

	// DefaultModel is the chat model used for classification.
	DefaultModel = "mistral-large-latest"

	// DefaultMaxReviews caps the number of review texts included in one
	// prompt, respecting the model's input limits.
	DefaultMaxReviews = 200
)

const systemMessage = "You will analyze app store reviews and provide sentiment analysis."

const promptHeader = `You are a Mobile Product Manager conducting a comprehensive sentiment analysis on the reviews below.
Your task is to: Categorize with your own analysis (no external code and library)
sentiment into three distinct groups: Positive, Negative, and Neutral based on the text reviews.
Count the number of reviews falling into each sentiment category and present the results
in a structured format. Identify the top 5 recurring issues from negative and neutral reviews.
Summarize each issue and provide the number of occurrences.
Provide insights on the overall sentiment distribution and any notable patterns found in the dataset.
Please provide your answers in english.
Reviews to analyze: `

// analysisSchema constrains the model output to the SentimentAnalysis shape.
const analysisSchema = `{
	"title": "SentimentAnalysis",
	"type": "object",
	"properties": {
		"SentimentDistribution": {
			"title": "Sentiment Distribution",
			"type": "object",
			"properties": {
				"Positive": {"title": "Positive Reviews", "type": "integer", "minimum": 0},
				"Neutral": {"title": "Neutral Reviews", "type": "integer", "minimum": 0},
				"Negative": {"title": "Negative Reviews", "type": "integer", "minimum": 0}
			},
			"required": ["Positive", "Neutral", "Negative"],
			"additionalProperties": false
		},
		"TopIssues": {
			"title": "Top Issues",
			"type": "array",
			"items": {
				"type": "object",
				"properties": {
					"Issue": {"title": "Issue", "type": "string"},
					"Mentions": {"title": "Mentions Count", "type": "integer", "minimum": 1},
					"Description": {"title": "Issue Description", "type": "string"}
				},
				"required": ["Issue", "Mentions", "Description"],
				"additionalProperties": false
			}
		},
		"Insights": {
			"title": "Insights",
			"type": "object",
			"properties": {
				"OverallSentiment": {"title": "Overall Sentiment Summary", "type": "string"},
				"KeyPatterns": {"title": "Key Patterns", "type": "array", "items": {"type": "string"}}
			},
			"required": ["OverallSentiment", "KeyPatterns"],
			"additionalProperties": false
		}
	},
	"required": ["SentimentDistribution", "TopIssues", "Insights"],
	"additionalProperties": false
}`

// httpDoer is the subset of the HTTP client the analyzer needs.
type httpDoer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// AnalyzerConfig holds the external classification service settings.
type AnalyzerConfig struct {
	BaseURL    string
	APIKey     string
	Model      string
	MaxReviews int
}

// Analyzer calls the external classification service with a
// schema-constrained chat-completions request.
type Analyzer struct {
	client httpDoer
	cfg    AnalyzerConfig
	logger *slog.Logger
}

// NewAnalyzer creates an analyzer. Zero config fields get defaults.
func NewAnalyzer(client httpDoer, cfg AnalyzerConfig, logger *slog.Logger) *Analyzer {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxReviews <= 0 {
		cfg.MaxReviews = DefaultMaxReviews
	}
	return &Analyzer{
		client: client,
		cfg:    cfg,
		logger: logger,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	ResponseFormat responseFormat `json:"response_format"`
	MaxTokens      int            `json:"max_tokens"`
	Temperature    float64        `json:"temperature"`
}

type responseFormat struct {
	Type       string     `json:"type"`
	JSONSchema jsonSchema `json:"json_schema"`
}

type jsonSchema struct {
	Schema json.RawMessage `json:"schema"`
	Name   string          `json:"name"`
	Strict bool            `json:"strict"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Analyze classifies the given reviews. Every failure mode (transport,
// non-2xx, malformed model output) maps to a sentiment service error; the
// caller never receives a fabricated analysis.
func (a *Analyzer) Analyze(ctx context.Context, reviews []domain.UnifiedReview) (domain.SentimentAnalysis, error) {
	body, err := json.Marshal(chatRequest{
		Model: a.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemMessage},
			{Role: "user", Content: a.buildPrompt(reviews)},
		},
		ResponseFormat: responseFormat{
			Type: "json_schema",
			JSONSchema: jsonSchema{
				Schema: json.RawMessage(analysisSchema),
				Name:   "sentiment_analysis",
				Strict: true,
			},
		},
		MaxTokens:   1024,
		Temperature: 0,
	})
	if err != nil {
		return domain.SentimentAnalysis{}, apperrors.Sentiment(fmt.Errorf("marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		a.cfg.BaseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return domain.SentimentAnalysis{}, apperrors.Sentiment(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.cfg.APIKey)

	resp, err := a.client.Do(ctx, req)
	if err != nil {
		return domain.SentimentAnalysis{}, apperrors.Sentiment(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return domain.SentimentAnalysis{}, apperrors.Sentiment(
			fmt.Errorf("classification service returned status %d", resp.StatusCode))
	}

	var chat chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil {
		return domain.SentimentAnalysis{}, apperrors.Sentiment(fmt.Errorf("decode response: %w", err))
	}
	if len(chat.Choices) == 0 {
		return domain.SentimentAnalysis{}, apperrors.Sentiment(fmt.Errorf("response contained no choices"))
	}

	var analysis domain.SentimentAnalysis
	if err := json.Unmarshal([]byte(chat.Choices[0].Message.Content), &analysis); err != nil {
		return domain.SentimentAnalysis{}, apperrors.Sentiment(fmt.Errorf("malformed analysis payload: %w", err))
	}
	return analysis, nil
}

// buildPrompt concatenates review texts, one per line, capped at the
// configured review count.
func (a *Analyzer) buildPrompt(reviews []domain.UnifiedReview) string {
	if len(reviews) > a.cfg.MaxReviews {
		a.logger.Debug("capping reviews included in sentiment prompt",
			slog.Int("total", len(reviews)),
			slog.Int("cap", a.cfg.MaxReviews),
		)
		reviews = reviews[:a.cfg.MaxReviews]
	}

	var sb strings.Builder
	sb.WriteString(promptHeader)
	for i, review := range reviews {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(review.Text)
	}
	return sb.String()
}
