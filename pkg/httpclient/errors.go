package httpclient

import (
	"fmt"
	"io"
	"net/http"

	apperrors "github.com/utafrali/storescope/pkg/errors"
)

// ParseResponseError reads the body of a non-2xx HTTP response from an
// upstream catalog API and translates it into an appropriate AppError.
// A 404 maps to NotFound; anything else is an upstream error.
//
// The caller should only invoke this when resp.StatusCode indicates an error
// (i.e., not 2xx). The response body is fully consumed and closed.
func ParseResponseError(resp *http.Response, upstreamName string) error {
	defer func() { _ = resp.Body.Close() }()

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16)) // 64 KB is plenty for an error body
	if err != nil {
		bodyBytes = nil
	}

	if resp.StatusCode == http.StatusNotFound {
		return apperrors.NotFound(upstreamName, "resource")
	}

	return apperrors.Upstream(upstreamName,
		fmt.Errorf("status %d: %s", resp.StatusCode, truncate(string(bodyBytes), 256)))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
