// Package delivery holds shared HTTP plumbing for chat-platform delivery
// adapters (Discord, Telegram): rate limiting, retryable-error
// classification and 429 Retry-After handling. Each platform package wraps
// this with its own wire format.
package delivery

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter wraps golang.org/x/time/rate to pace outbound sends to a chat
// platform's API, independent of the platform's own per-channel rate limit
// response (handled separately via RetryAfter).
type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter builds a token-bucket limiter allowing ratePerSecond steady
// sends with a burst of burst.
func NewRateLimiter(ratePerSecond float64, burst int) *RateLimiter {
	return &RateLimiter{limiter: rate.NewLimiter(rate.Limit(ratePerSecond), burst)}
}

// Wait blocks until a send is permitted or ctx is done.
func (r *RateLimiter) Wait(ctx context.Context) error {
	return r.limiter.Wait(ctx)
}

// ClientError is a non-retryable 4xx response (other than 429).
type ClientError struct {
	StatusCode int
	Body       string
}

func (e *ClientError) Error() string {
	return fmt.Sprintf("client error: HTTP %d: %s", e.StatusCode, e.Body)
}

// ServerError is a retryable 5xx response.
type ServerError struct {
	StatusCode int
	Body       string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server error: HTTP %d: %s", e.StatusCode, e.Body)
}

// RateLimitError is a 429 Too Many Requests response, carrying the duration
// the caller should back off before retrying.
type RateLimitError struct {
	RetryAfter time.Duration
	Body       string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited: retry after %s: %s", e.RetryAfter, e.Body)
}

// ClassifyResponse reads resp's body (closing it) and returns nil for 2xx,
// or one of RateLimitError / ClientError / ServerError otherwise.
func ClassifyResponse(resp *http.Response) error {
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return &RateLimitError{RetryAfter: extractRetryAfter(resp, body), Body: string(body)}
	case resp.StatusCode >= 500:
		return &ServerError{StatusCode: resp.StatusCode, Body: string(body)}
	default:
		return &ClientError{StatusCode: resp.StatusCode, Body: string(body)}
	}
}

// extractRetryAfter looks first for a JSON body field ("retry_after", as
// Discord's API returns, in seconds, possibly fractional), then falls back
// to the standard Retry-After header (seconds or HTTP date).
func extractRetryAfter(resp *http.Response, body []byte) time.Duration {
	var payload struct {
		RetryAfter float64 `json:"retry_after"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.RetryAfter > 0 {
		return time.Duration(payload.RetryAfter * float64(time.Second))
	}

	if header := resp.Header.Get("Retry-After"); header != "" {
		if secs, err := strconv.Atoi(header); err == nil {
			return time.Duration(secs) * time.Second
		}
		if when, err := http.ParseTime(header); err == nil {
			if d := time.Until(when); d > 0 {
				return d
			}
		}
	}

	return 1 * time.Second
}

// IsRetryable reports whether err (as returned by ClassifyResponse, or a
// network-level error) is worth retrying.
func IsRetryable(err error) bool {
	switch err.(type) {
	case *RateLimitError, *ServerError:
		return true
	default:
		return false
	}
}
