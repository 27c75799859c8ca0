package transport

import (
	"fmt"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-bullhorn-auth/core"
)

// The two rate-limit headers that may be captured for diagnostics. Nothing
// else from a failed response body or request is ever attached to an error.
const (
	HeaderRateLimitRemaining = "X-RateLimit-Remaining-Minute"
	HeaderRateLimitLimit     = "X-RateLimit-Limit-Minute"
)

func statusRetryable(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests || statusCode >= 500
}

// retryableStatusError converts a well-formed 429/5xx response into a raised
// failure carrying the status code. Only the status line and the two
// rate-limit headers travel with it.
func retryableStatusError(res core.TransportResponse) *goerrors.Error {
	category := goerrors.CategoryExternal
	if res.StatusCode == http.StatusTooManyRequests {
		category = goerrors.CategoryRateLimit
	}

	metadata := map[string]any{
		"status_code": res.StatusCode,
		"status":      strings.TrimSpace(res.Status),
	}
	for _, header := range []string{HeaderRateLimitRemaining, HeaderRateLimitLimit} {
		if value := strings.TrimSpace(res.Headers[header]); value != "" {
			metadata[header] = value
		}
	}

	return core.NewError(
		fmt.Sprintf("transport: retryable status %d", res.StatusCode),
		category,
		metadata,
	).WithCode(res.StatusCode)
}
