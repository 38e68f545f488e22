// Package repository declares the persistence-port interfaces the domain and
// usecase layers depend on. Concrete implementations live under
// internal/infra/adapter/persistence.
package repository

import (
	"context"
	"time"

	"newsflow-bridge/internal/domain/entity"
)

// FeedRepository is the narrow contract over the feeds table.
type FeedRepository interface {
	Get(ctx context.Context, id int64) (*entity.Feed, error)
	GetByURL(ctx context.Context, url string) (*entity.Feed, error)
	ListActive(ctx context.Context) ([]*entity.Feed, error)
	// ListNeedingFetch returns active feeds whose last_fetched_at is null or
	// older than minInterval.
	ListNeedingFetch(ctx context.Context, minInterval time.Duration) ([]*entity.Feed, error)
	Create(ctx context.Context, feed *entity.Feed) error
	// GetOrCreate returns the existing feed for url, or creates one. created
	// reports whether a new row was inserted.
	GetOrCreate(ctx context.Context, url string) (feed *entity.Feed, created bool, err error)
	// Update persists metadata + validators and clears the error streak.
	Update(ctx context.Context, feed *entity.Feed) error
	// MarkError increments error_count and deactivates at the threshold.
	MarkError(ctx context.Context, id int64, now time.Time, errMsg string) error
	// MarkSuccess resets the error streak and stores fresh validators.
	MarkSuccess(ctx context.Context, id int64, now time.Time, etag, lastModified string) error
	Delete(ctx context.Context, id int64) error
}
