// Package discord implements dispatch.DeliveryAdapter for Discord, posting
// each Message as an embed via the bot REST API. A single bot token serves
// every subscribed guild/channel -- unlike a single incoming webhook, this
// lets one installation fan out to the many distinct platform_channel_id
// values a Subscription can carry.
package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"newsflow-bridge/internal/infra/adapter/delivery"
	"newsflow-bridge/internal/resilience/circuitbreaker"
	"newsflow-bridge/internal/resilience/retry"
	"newsflow-bridge/internal/usecase/dispatch"
)

const apiBase = "https://discord.com/api/v10"

// Config controls the Discord adapter's credentials and pacing.
type Config struct {
	// BotToken authenticates REST calls ("Bot <token>" authorization header).
	BotToken string
	// RatePerSecond bounds steady-state outbound requests, keeping clear of
	// Discord's per-route rate limit even before a 429 is seen.
	RatePerSecond float64
	// Burst is the token-bucket burst size.
	Burst int
	// RequestTimeout bounds each individual HTTP call.
	RequestTimeout time.Duration
}

// DefaultConfig returns conservative pacing suitable for a single bot
// serving many guilds.
func DefaultConfig() Config {
	return Config{
		RatePerSecond:  5,
		Burst:          5,
		RequestTimeout: 10 * time.Second,
	}
}

// Adapter implements dispatch.DeliveryAdapter for Discord.
type Adapter struct {
	config  Config
	client  *http.Client
	limiter *delivery.RateLimiter
	breaker *circuitbreaker.CircuitBreaker
	// baseURL defaults to apiBase; overridable in tests.
	baseURL string
}

// New builds a Discord delivery adapter. BotToken must be non-empty.
func New(config Config) (*Adapter, error) {
	if config.BotToken == "" {
		return nil, fmt.Errorf("discord: bot token is required")
	}
	return &Adapter{
		config:  config,
		client:  &http.Client{Timeout: config.RequestTimeout},
		limiter: delivery.NewRateLimiter(config.RatePerSecond, config.Burst),
		breaker: circuitbreaker.New(circuitbreaker.DeliveryConfig()),
		baseURL: apiBase,
	}, nil
}

// PlatformName implements dispatch.DeliveryAdapter.
func (a *Adapter) PlatformName() string { return "discord" }

// Start implements dispatch.DeliveryAdapter; the Discord REST client is
// stateless so there is nothing to start.
func (a *Adapter) Start(ctx context.Context) error { return nil }

// Stop implements dispatch.DeliveryAdapter.
func (a *Adapter) Stop(ctx context.Context) error {
	a.client.CloseIdleConnections()
	return nil
}

// SendMessage implements dispatch.DeliveryAdapter, posting msg as an embed.
func (a *Adapter) SendMessage(ctx context.Context, channelID string, msg *dispatch.Message) error {
	embed := embedFromMessage(msg)
	return a.post(ctx, channelID, map[string]any{"embeds": []any{embed}})
}

// SendText implements dispatch.DeliveryAdapter.
func (a *Adapter) SendText(ctx context.Context, channelID, text string) error {
	return a.post(ctx, channelID, map[string]any{"content": text})
}

func embedFromMessage(msg *dispatch.Message) map[string]any {
	embed := map[string]any{
		"title":       truncate(msg.DisplayTitle(), 256),
		"description": truncate(msg.DisplaySummary(), 4096),
		"url":         msg.Link,
	}
	if msg.Source != "" {
		embed["footer"] = map[string]any{"text": msg.Source}
	}
	if msg.PublishedAt != nil {
		embed["timestamp"] = msg.PublishedAt.UTC().Format(time.RFC3339)
	}
	if msg.ImageURL != "" {
		embed["image"] = map[string]any{"url": msg.ImageURL}
	}
	return embed
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}

func (a *Adapter) post(ctx context.Context, channelID string, body map[string]any) error {
	if err := a.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("discord: rate limiter: %w", err)
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("discord: marshal payload: %w", err)
	}

	cfg := retry.DeliveryConfig()
	return retry.WithBackoff(ctx, cfg, func() error {
		_, err := a.breaker.Execute(func() (interface{}, error) {
			return nil, a.doRequest(ctx, channelID, payload)
		})
		if err != nil {
			var rateLimited *delivery.RateLimitError
			if ok := asRateLimitError(err, &rateLimited); ok {
				slog.Warn("discord send rate limited",
					slog.String("channel_id", channelID), slog.Duration("retry_after", rateLimited.RetryAfter))
				select {
				case <-time.After(rateLimited.RetryAfter):
				case <-ctx.Done():
					return ctx.Err()
				}
				return asRetryHTTPError(rateLimited)
			}
			return asRetryErr(err)
		}
		return nil
	})
}

func (a *Adapter) doRequest(ctx context.Context, channelID string, payload []byte) error {
	url := fmt.Sprintf("%s/channels/%s/messages", a.baseURL, channelID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("discord: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bot "+a.config.BotToken)

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("discord: request failed: %w", err)
	}
	return delivery.ClassifyResponse(resp)
}

// asRateLimitError type-asserts err (possibly wrapped by gobreaker) into a
// *delivery.RateLimitError.
func asRateLimitError(err error, target **delivery.RateLimitError) bool {
	if rl, ok := err.(*delivery.RateLimitError); ok {
		*target = rl
		return true
	}
	return false
}

// asRetryErr maps a delivery classification error onto retry.IsRetryable's
// expected *retry.HTTPError shape so WithBackoff's generic classifier still
// applies to server errors.
func asRetryErr(err error) error {
	if se, ok := err.(*delivery.ServerError); ok {
		return &retry.HTTPError{StatusCode: se.StatusCode, Message: se.Body}
	}
	return err
}

func asRetryHTTPError(rl *delivery.RateLimitError) error {
	return &retry.HTTPError{StatusCode: http.StatusTooManyRequests, Message: rl.Body}
}
