package translate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/google/uuid"
	"github.com/sony/gobreaker"

	"newsflow-bridge/internal/resilience/circuitbreaker"
	"newsflow-bridge/internal/resilience/retry"
	"newsflow-bridge/internal/utils/text"
)

// ClaudeConfig holds configuration parameters for the Claude translation
// provider.
type ClaudeConfig struct {
	Model     string
	MaxTokens int
	Timeout   time.Duration
}

// LoadClaudeConfig loads configuration from environment variables, falling
// back to sensible defaults.
//
// Environment variables:
//   - TRANSLATE_CLAUDE_MAX_TOKENS: max response tokens (default: 1024)
func LoadClaudeConfig() ClaudeConfig {
	maxTokens := 1024
	if v := os.Getenv("TRANSLATE_CLAUDE_MAX_TOKENS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			maxTokens = parsed
		} else {
			slog.Warn("invalid TRANSLATE_CLAUDE_MAX_TOKENS, using default",
				slog.String("value", v), slog.Int("default", maxTokens))
		}
	}
	return ClaudeConfig{
		Model:     string(anthropic.ModelClaudeSonnet4_5_20250929),
		MaxTokens: maxTokens,
		Timeout:   60 * time.Second,
	}
}

// Claude implements Provider using Anthropic's Claude API.
type Claude struct {
	client         anthropic.Client
	circuitBreaker *circuitbreaker.CircuitBreaker
	retryConfig    retry.Config
	config         ClaudeConfig
}

// NewClaude creates a new Claude translation provider with the given API key.
func NewClaude(apiKey string) *Claude {
	config := LoadClaudeConfig()
	slog.Info("initialized claude translation provider",
		slog.String("model", config.Model))

	return &Claude{
		client:         anthropic.NewClient(option.WithAPIKey(apiKey)),
		circuitBreaker: circuitbreaker.New(circuitbreaker.ClaudeAPIConfig()),
		retryConfig:    retry.AIAPIConfig(),
		config:         config,
	}
}

// Name implements Provider.
func (c *Claude) Name() string { return "claude" }

// Supports implements Provider. The model translates any language in the
// prompt table.
func (c *Claude) Supports(languageCode string) bool {
	_, ok := languageName(languageCode)
	return ok
}

// Normalize implements Provider, resolving a language code to the English
// language name the prompt uses.
func (c *Claude) Normalize(languageCode string) string {
	if name, ok := languageName(languageCode); ok {
		return name
	}
	return languageCode
}

// Translate implements Provider using circuit breaker and retry wrapping,
// mirroring the resilience pattern used for every other outbound API call
// in this engine.
func (c *Claude) Translate(ctx context.Context, inputText, targetLanguage string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	var result string
	retryErr := retry.WithBackoff(ctx, c.retryConfig, func() error {
		cbResult, err := c.circuitBreaker.Execute(func() (interface{}, error) {
			return c.doTranslate(ctx, inputText, targetLanguage)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) {
				slog.Warn("claude api circuit breaker open, request rejected",
					slog.String("service", "claude-api"),
					slog.String("state", c.circuitBreaker.State().String()))
				return fmt.Errorf("claude api unavailable: circuit breaker open")
			}
			return err
		}
		result = cbResult.(string)
		return nil
	})
	if retryErr != nil {
		return "", fmt.Errorf("claude translate failed after retries: %w", retryErr)
	}
	return result, nil
}

func (c *Claude) buildPrompt(inputText, targetLanguage string) string {
	return fmt.Sprintf(
		"Translate the following text into %s. Return only the translation, with no preamble or explanation:\n\n%s",
		c.Normalize(targetLanguage), inputText)
}

func (c *Claude) doTranslate(ctx context.Context, inputText, targetLanguage string) (string, error) {
	requestID := uuid.New().String()

	const maxChars = 10000
	truncated := inputText
	if len(inputText) > maxChars {
		truncated = inputText[:maxChars] + "... (truncated)"
		slog.Warn("text truncated for claude api",
			slog.String("request_id", requestID),
			slog.Int("original_length", len(inputText)))
	}

	prompt := c.buildPrompt(truncated, targetLanguage)

	start := time.Now()
	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.config.Model),
		MaxTokens: int64(c.config.MaxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	duration := time.Since(start)

	if err != nil {
		slog.ErrorContext(ctx, "translation failed",
			slog.String("request_id", requestID),
			slog.Duration("duration", duration),
			slog.String("error", err.Error()))
		return "", fmt.Errorf("claude api error: %w", err)
	}
	if len(message.Content) == 0 {
		return "", fmt.Errorf("claude api returned empty response")
	}
	textBlock, ok := message.Content[0].AsAny().(anthropic.TextBlock)
	if !ok {
		return "", fmt.Errorf("claude api returned unexpected response type")
	}

	translated := textBlock.Text
	slog.InfoContext(ctx, "translation completed",
		slog.String("request_id", requestID),
		slog.Int("output_length", text.CountRunes(translated)),
		slog.Duration("duration", duration))

	return translated, nil
}
