package repository

import (
	"context"

	"newsflow-bridge/internal/domain/entity"
)

// SubscriptionRepository is the narrow contract over the subscriptions table.
type SubscriptionRepository interface {
	Get(ctx context.Context, id int64) (*entity.Subscription, error)
	// GetByBinding looks up the unique (platform, platform_channel_id, feed_id) row.
	GetByBinding(ctx context.Context, platform, channelID string, feedID int64) (*entity.Subscription, error)
	ListByChannel(ctx context.Context, platform, channelID string) ([]*entity.Subscription, error)
	ListByFeed(ctx context.Context, feedID int64) ([]*entity.Subscription, error)
	ListAllActive(ctx context.Context) ([]*entity.Subscription, error)
	// GetOrCreate returns the existing binding, reactivating it if it was
	// inactive, or creates a new one. created reports whether a new row was
	// inserted.
	GetOrCreate(ctx context.Context, sub *entity.Subscription) (result *entity.Subscription, created bool, err error)
	UpdateSettings(ctx context.Context, sub *entity.Subscription) error
	Deactivate(ctx context.Context, id int64) error
	Delete(ctx context.Context, id int64) error
	CountByChannel(ctx context.Context, platform, channelID string) (int, error)
}
