// Package telegram implements dispatch.DeliveryAdapter for Telegram,
// delivering each Message as an HTML-formatted text message via the Bot
// API's sendMessage method.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"newsflow-bridge/internal/infra/adapter/delivery"
	"newsflow-bridge/internal/resilience/circuitbreaker"
	"newsflow-bridge/internal/resilience/retry"
	"newsflow-bridge/internal/usecase/dispatch"
)

const apiBase = "https://api.telegram.org"

// Config controls the Telegram adapter's credentials and pacing.
type Config struct {
	// BotToken authenticates Bot API calls.
	BotToken string
	// RatePerSecond bounds steady-state outbound requests. Telegram's
	// global limit is roughly 30 messages/second across all chats.
	RatePerSecond float64
	// Burst is the token-bucket burst size.
	Burst int
	// RequestTimeout bounds each individual HTTP call.
	RequestTimeout time.Duration
}

// DefaultConfig returns conservative pacing for a single bot.
func DefaultConfig() Config {
	return Config{
		RatePerSecond:  20,
		Burst:          10,
		RequestTimeout: 10 * time.Second,
	}
}

// Adapter implements dispatch.DeliveryAdapter for Telegram.
type Adapter struct {
	config  Config
	client  *http.Client
	limiter *delivery.RateLimiter
	breaker *circuitbreaker.CircuitBreaker
	// baseURL defaults to apiBase; overridable in tests.
	baseURL string
}

// New builds a Telegram delivery adapter. BotToken must be non-empty.
func New(config Config) (*Adapter, error) {
	if config.BotToken == "" {
		return nil, fmt.Errorf("telegram: bot token is required")
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
func (a *Adapter) PlatformName() string { return "telegram" }

// Start implements dispatch.DeliveryAdapter; the Bot API client is
// stateless so there is nothing to start.
func (a *Adapter) Start(ctx context.Context) error { return nil }

// Stop implements dispatch.DeliveryAdapter.
func (a *Adapter) Stop(ctx context.Context) error {
	a.client.CloseIdleConnections()
	return nil
}

// SendMessage implements dispatch.DeliveryAdapter, formatting msg as
// HTML-escaped text linking back to the source entry.
func (a *Adapter) SendMessage(ctx context.Context, chatID string, msg *dispatch.Message) error {
	return a.sendMessage(ctx, chatID, formatMessage(msg), true)
}

// SendText implements dispatch.DeliveryAdapter.
func (a *Adapter) SendText(ctx context.Context, chatID, text string) error {
	return a.sendMessage(ctx, chatID, html.EscapeString(text), false)
}

func formatMessage(msg *dispatch.Message) string {
	var b strings.Builder
	b.WriteString("<b>")
	b.WriteString(html.EscapeString(msg.DisplayTitle()))
	b.WriteString("</b>\n")
	if summary := msg.DisplaySummary(); summary != "" {
		b.WriteString(html.EscapeString(summary))
		b.WriteString("\n\n")
	}
	if msg.Source != "" {
		b.WriteString(html.EscapeString(msg.Source))
		b.WriteString(" - ")
	}
	b.WriteString(fmt.Sprintf(`<a href="%s">%s</a>`, html.EscapeString(msg.Link), "Read more"))
	return b.String()
}

func (a *Adapter) sendMessage(ctx context.Context, chatID, text string, disablePreview bool) error {
	if err := a.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("telegram: rate limiter: %w", err)
	}

	body, err := json.Marshal(map[string]any{
		"chat_id":                  chatID,
		"text":                     text,
		"parse_mode":               "HTML",
		"disable_web_page_preview": disablePreview,
	})
	if err != nil {
		return fmt.Errorf("telegram: marshal payload: %w", err)
	}

	cfg := retry.DeliveryConfig()
	return retry.WithBackoff(ctx, cfg, func() error {
		_, execErr := a.breaker.Execute(func() (interface{}, error) {
			return nil, a.doRequest(ctx, body)
		})
		if execErr != nil {
			if rl, ok := execErr.(*delivery.RateLimitError); ok {
				slog.Warn("telegram send rate limited",
					slog.String("chat_id", chatID), slog.Duration("retry_after", rl.RetryAfter))
				select {
				case <-time.After(rl.RetryAfter):
				case <-ctx.Done():
					return ctx.Err()
				}
				return &retry.HTTPError{StatusCode: http.StatusTooManyRequests, Message: rl.Body}
			}
			if se, ok := execErr.(*delivery.ServerError); ok {
				return &retry.HTTPError{StatusCode: se.StatusCode, Message: se.Body}
			}
			return execErr
		}
		return nil
	})
}

func (a *Adapter) doRequest(ctx context.Context, body []byte) error {
	url := fmt.Sprintf("%s/bot%s/sendMessage", a.baseURL, a.config.BotToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("telegram: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram: request failed: %w", err)
	}
	return delivery.ClassifyResponse(resp)
}
