// Package entity defines the core domain entities and validation logic for the application.
// It contains the fundamental business objects such as Feed, FeedEntry, Subscription and
// SentReceipt, along with their validation rules and domain-specific errors.
package entity

import "time"

// maxConsecutiveErrors is the number of consecutive failed fetches after which
// a Feed is automatically deactivated.
const maxConsecutiveErrors = 10

// Feed represents one upstream syndication URL (RSS 2.0 or Atom 1.0).
type Feed struct {
	ID          int64
	URL         string
	Title       string
	Description string
	SiteURL     string

	IsActive   bool
	ErrorCount int
	LastError  string

	// ETag/LastModified are opaque validators used for conditional GET.
	ETag         string
	LastModified string

	LastFetchedAt          *time.Time
	LastSuccessfulFetchAt  *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate checks the structural invariants of a Feed before it is persisted.
func (f *Feed) Validate() error {
	if f.URL == "" {
		return &ValidationError{Field: "url", Message: "is required"}
	}
	if err := ValidateURL(f.URL); err != nil {
		return err
	}
	return nil
}

// MarkSuccess resets the error streak and refreshes the fetch timestamps and
// conditional-GET validators after a successful fetch. Any successful fetch
// clears error_count unconditionally, independent of how high it had
// climbed.
func (f *Feed) MarkSuccess(now time.Time, etag, lastModified string) {
	f.ErrorCount = 0
	f.LastError = ""
	f.ETag = etag
	f.LastModified = lastModified
	f.LastFetchedAt = &now
	f.LastSuccessfulFetchAt = &now
	f.UpdatedAt = now
}

// MarkError increments the consecutive-error streak and deactivates the feed
// once it reaches maxConsecutiveErrors; any successful fetch resets the
// streak.
func (f *Feed) MarkError(now time.Time, errMsg string) {
	f.ErrorCount++
	f.LastError = errMsg
	f.LastFetchedAt = &now
	f.UpdatedAt = now
	if f.ErrorCount >= maxConsecutiveErrors {
		f.IsActive = false
	}
}
