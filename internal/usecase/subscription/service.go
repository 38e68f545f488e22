// Package subscription implements the Subscription Service (C6): CRUD over
// channel<->feed bindings, quota enforcement and settings updates.
package subscription

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"newsflow-bridge/internal/domain/entity"
	"newsflow-bridge/internal/observability/metrics"
	"newsflow-bridge/internal/repository"
)

// FeedAdder is the narrow interface the Subscription Service needs from the
// Feed Service: add-or-get a feed by url.
type FeedAdder interface {
	AddFeed(ctx context.Context, url string) (feed *entity.Feed, created bool, err error)
}

// Config controls quota enforcement.
type Config struct {
	// MaxFeedsPerChannel caps the number of distinct feed subscriptions a
	// single channel may hold. Zero means unlimited.
	MaxFeedsPerChannel int
}

// DefaultConfig returns the engine's default subscription quota.
func DefaultConfig() Config {
	return Config{MaxFeedsPerChannel: 0}
}

// LoadConfigFromEnv loads Config from MAX_FEEDS_PER_CHANNEL, falling back to
// the default and logging a warning on an unparsable value. It never fails.
func LoadConfigFromEnv() Config {
	cfg := DefaultConfig()
	if val := os.Getenv("MAX_FEEDS_PER_CHANNEL"); val != "" {
		parsed, err := strconv.Atoi(val)
		if err != nil || parsed < 0 {
			slog.Warn("invalid MAX_FEEDS_PER_CHANNEL, falling back to default",
				slog.String("value", val), slog.Int("default", cfg.MaxFeedsPerChannel))
			return cfg
		}
		cfg.MaxFeedsPerChannel = parsed
	}
	return cfg
}

// Service manages channel<->feed subscriptions.
type Service struct {
	subRepo  repository.SubscriptionRepository
	feedRepo repository.FeedRepository
	feedSvc  FeedAdder
	config   Config
}

// NewService builds a Subscription Service.
func NewService(subRepo repository.SubscriptionRepository, feedRepo repository.FeedRepository, feedSvc FeedAdder, config Config) *Service {
	return &Service{subRepo: subRepo, feedRepo: feedRepo, feedSvc: feedSvc, config: config}
}

// SubscribeResult is the outcome of a subscribe call.
type SubscribeResult struct {
	Success      bool
	Subscription *entity.Subscription
	Feed         *entity.Feed
	Message      string
	IsNew        bool
}

// Subscribe binds channelID on platform to feedURL, adding the feed first if
// necessary. Enforces Config.MaxFeedsPerChannel before touching the feed.
func (s *Service) Subscribe(ctx context.Context, platform, userID, channelID, feedURL, guildID string) (*SubscribeResult, error) {
	if s.config.MaxFeedsPerChannel > 0 {
		count, err := s.subRepo.CountByChannel(ctx, platform, channelID)
		if err != nil {
			return nil, fmt.Errorf("count channel subscriptions: %w", err)
		}
		if count >= s.config.MaxFeedsPerChannel {
			metrics.RecordSubscriptionChange("subscribe", "quota_exceeded")
			return &SubscribeResult{
				Success: false,
				Message: fmt.Sprintf("Maximum feeds (%d) reached", s.config.MaxFeedsPerChannel),
			}, nil
		}
	}

	feed, _, err := s.feedSvc.AddFeed(ctx, feedURL)
	if err != nil {
		return &SubscribeResult{Success: false, Message: err.Error()}, nil
	}

	sub := &entity.Subscription{
		Platform:          platform,
		PlatformChannelID: channelID,
		PlatformUserID:    userID,
		PlatformGuildID:   guildID,
		FeedID:            feed.ID,
		IsActive:          true,
		ShowSummary:       true,
		ShowImage:         true,
	}
	if err := sub.Validate(); err != nil {
		return &SubscribeResult{Success: false, Message: err.Error()}, nil
	}

	result, isNew, err := s.subRepo.GetOrCreate(ctx, sub)
	if err != nil {
		return nil, fmt.Errorf("get or create subscription: %w", err)
	}

	if !isNew {
		metrics.RecordSubscriptionChange("subscribe", "already_exists")
		return &SubscribeResult{
			Success:      true,
			Subscription: result,
			Feed:         feed,
			Message:      "Already subscribed to this feed",
			IsNew:        false,
		}, nil
	}

	metrics.RecordSubscriptionChange("subscribe", "created")
	title := feed.Title
	if title == "" {
		title = feedURL
	}
	slog.Info("new subscription",
		slog.String("platform", platform), slog.String("channel_id", channelID), slog.String("feed_url", feedURL))

	return &SubscribeResult{
		Success:      true,
		Subscription: result,
		Feed:         feed,
		Message:      fmt.Sprintf("Subscribed to %s", title),
		IsNew:        true,
	}, nil
}

// UnsubscribeResult is the outcome of an unsubscribe call.
type UnsubscribeResult struct {
	Success bool
	Message string
}

// Unsubscribe removes the (platform, channelID, feedURL) binding.
func (s *Service) Unsubscribe(ctx context.Context, platform, channelID, feedURL string) (*UnsubscribeResult, error) {
	feed, err := s.feedRepo.GetByURL(ctx, feedURL)
	if err != nil {
		return nil, fmt.Errorf("get feed by url: %w", err)
	}
	if feed == nil {
		metrics.RecordSubscriptionChange("unsubscribe", "not_found")
		return &UnsubscribeResult{Success: false, Message: "Feed not found"}, nil
	}

	sub, err := s.subRepo.GetByBinding(ctx, platform, channelID, feed.ID)
	if err != nil {
		return nil, fmt.Errorf("get subscription binding: %w", err)
	}
	if sub == nil {
		metrics.RecordSubscriptionChange("unsubscribe", "not_found")
		return &UnsubscribeResult{Success: false, Message: "Subscription not found"}, nil
	}

	if err := s.subRepo.Delete(ctx, sub.ID); err != nil {
		return nil, fmt.Errorf("delete subscription: %w", err)
	}

	metrics.RecordSubscriptionChange("unsubscribe", "removed")
	slog.Info("unsubscribed",
		slog.String("platform", platform), slog.String("channel_id", channelID), slog.String("feed_url", feedURL))

	title := feed.Title
	if title == "" {
		title = feedURL
	}
	return &UnsubscribeResult{Success: true, Message: fmt.Sprintf("Unsubscribed from %s", title)}, nil
}

// ChannelSubscription pairs a subscription with its feed, so callers
// rendering a channel's list don't have to issue one feed lookup each.
type ChannelSubscription struct {
	Subscription *entity.Subscription
	Feed         *entity.Feed
}

// ListChannelSubscriptions returns all subscriptions for a channel with
// their feeds loaded.
func (s *Service) ListChannelSubscriptions(ctx context.Context, platform, channelID string) ([]*ChannelSubscription, error) {
	subs, err := s.subRepo.ListByChannel(ctx, platform, channelID)
	if err != nil {
		return nil, fmt.Errorf("list channel subscriptions: %w", err)
	}

	out := make([]*ChannelSubscription, 0, len(subs))
	for _, sub := range subs {
		feed, err := s.feedRepo.Get(ctx, sub.FeedID)
		if err != nil {
			return nil, fmt.Errorf("load feed %d for subscription %d: %w", sub.FeedID, sub.ID, err)
		}
		out = append(out, &ChannelSubscription{Subscription: sub, Feed: feed})
	}
	return out, nil
}

// SettingsUpdate describes which subscription settings fields to change.
// A nil pointer leaves the corresponding field untouched.
type SettingsUpdate struct {
	FeedURL        string // when empty, applies to every subscription on the channel
	Translate      *bool
	TargetLanguage *string
}

// UpdateSettings applies translate/target_language changes to the matching
// subscriptions on a channel, returning false if the channel has none.
func (s *Service) UpdateSettings(ctx context.Context, platform, channelID string, update SettingsUpdate) (bool, error) {
	subs, err := s.subRepo.ListByChannel(ctx, platform, channelID)
	if err != nil {
		return false, fmt.Errorf("list channel subscriptions: %w", err)
	}
	if len(subs) == 0 {
		return false, nil
	}

	for _, sub := range subs {
		if update.FeedURL != "" {
			feed, err := s.feedRepo.Get(ctx, sub.FeedID)
			if err != nil {
				return false, fmt.Errorf("get feed for subscription %d: %w", sub.ID, err)
			}
			if feed == nil || feed.URL != update.FeedURL {
				continue
			}
		}
		if update.Translate != nil {
			sub.Translate = *update.Translate
		}
		if update.TargetLanguage != nil {
			sub.TargetLanguage = *update.TargetLanguage
		}
		if err := s.subRepo.UpdateSettings(ctx, sub); err != nil {
			return false, fmt.Errorf("update subscription %d settings: %w", sub.ID, err)
		}
	}

	return true, nil
}

// ListAllActive returns every active subscription across all channels, used
// by the Dispatcher to drive one dispatch cycle.
func (s *Service) ListAllActive(ctx context.Context) ([]*entity.Subscription, error) {
	subs, err := s.subRepo.ListAllActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list all active subscriptions: %w", err)
	}
	return subs, nil
}
