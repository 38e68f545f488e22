// Package contentfetch implements optional full-article enrichment for feed
// entries whose RSS/Atom summary is too
// short to translate or display well. Fetch failures, timeouts or
// SSRF-blocked targets fall back silently to the original summary -- this is
// an enrichment, never a requirement.
package contentfetch

import (
	"context"
	"errors"
)

// Fetcher fetches and extracts full article content from a URL.
// Implementations must prevent SSRF, enforce a size limit and a timeout, and
// validate every redirect target.
type Fetcher interface {
	// FetchContent fetches and extracts article content from url, returning
	// clean article text without HTML tags or navigation elements.
	FetchContent(ctx context.Context, url string) (string, error)
}

// Sentinel errors for content fetching operations, allowing callers to
// distinguish failure modes and decide whether to fall back to RSS content.
var (
	// ErrInvalidURL indicates the URL format is invalid or uses an unsupported scheme.
	ErrInvalidURL = errors.New("invalid URL or unsupported scheme")

	// ErrPrivateIP indicates the URL resolves to a private IP address (SSRF prevention).
	ErrPrivateIP = errors.New("private IP access denied (SSRF prevention)")

	// ErrTooManyRedirects indicates the redirect chain exceeded the configured maximum.
	ErrTooManyRedirects = errors.New("too many redirects")

	// ErrBodyTooLarge indicates the response body exceeded the size limit.
	ErrBodyTooLarge = errors.New("response body too large")

	// ErrTimeout indicates the request exceeded the configured timeout.
	ErrTimeout = errors.New("request timeout")

	// ErrReadabilityFailed indicates content extraction failed or found no
	// readable content; callers should fall back to RSS content.
	ErrReadabilityFailed = errors.New("content extraction failed")
)
