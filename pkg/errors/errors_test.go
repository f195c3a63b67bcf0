package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPStatusMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "not found", err: NotFound("app", "42"), want: http.StatusNotFound},
		{name: "invalid input", err: InvalidInput("bad limit"), want: http.StatusBadRequest},
		{name: "invalid collection", err: InvalidCollection("x", "appstore", []string{"a"}), want: http.StatusBadRequest},
		{name: "upstream", err: Upstream("appstore", errors.New("down")), want: http.StatusBadGateway},
		{name: "sentiment", err: Sentiment(errors.New("down")), want: http.StatusBadGateway},
		{name: "internal", err: Internal(errors.New("oops")), want: http.StatusInternalServerError},
		{name: "unknown error", err: errors.New("mystery"), want: http.StatusInternalServerError},
		{name: "wrapped app error", err: fmt.Errorf("context: %w", NotFound("app", "42")), want: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}

func TestAppErrorUnwrapsToSentinel(t *testing.T) {
	assert.ErrorIs(t, NotFound("app", "42"), ErrNotFound)
	assert.ErrorIs(t, InvalidInput("x"), ErrInvalidInput)
	assert.ErrorIs(t, InvalidCollection("x", "appstore", nil), ErrInvalidInput)
	assert.ErrorIs(t, Upstream("appstore", errors.New("down")), ErrUpstream)
	assert.ErrorIs(t, Sentiment(errors.New("down")), ErrSentiment)
}

func TestUpstreamPreservesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Upstream("playstore", cause)
	assert.ErrorIs(t, err, cause)
}

func TestInvalidCollectionMessageListsValidKeys(t *testing.T) {
	err := InvalidCollection("topgrossing", "appstore", []string{"topfreeapplications", "toppaidapplications"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid appstore collection "topgrossing"`)
	assert.Contains(t, err.Error(), "topfreeapplications, toppaidapplications")
}
