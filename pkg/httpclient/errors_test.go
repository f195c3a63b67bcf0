package httpclient

import (
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/utafrali/storescope/pkg/errors"
)

func response(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func TestParseResponseErrorNotFound(t *testing.T) {
	err := ParseResponseError(response(http.StatusNotFound, ""), "appstore")

	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, apperrors.HTTPStatus(err))
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestParseResponseErrorUpstream(t *testing.T) {
	err := ParseResponseError(response(http.StatusBadGateway, "backend exploded"), "playstore")

	require.Error(t, err)
	assert.Equal(t, http.StatusBadGateway, apperrors.HTTPStatus(err))
	assert.ErrorIs(t, err, apperrors.ErrUpstream)
	assert.Contains(t, err.Error(), "status 502")
}

func TestParseResponseErrorTruncatesLongBody(t *testing.T) {
	err := ParseResponseError(response(http.StatusInternalServerError, strings.Repeat("x", 1000)), "appstore")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "...")
	assert.Less(t, len(err.Error()), 600)
}
