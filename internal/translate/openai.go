package translate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker"

	"newsflow-bridge/internal/resilience/circuitbreaker"
	"newsflow-bridge/internal/resilience/retry"
	"newsflow-bridge/internal/utils/text"
)

// OpenAIConfig holds configuration parameters for the OpenAI translation
// provider.
type OpenAIConfig struct {
	Model   string
	Timeout time.Duration
}

// DefaultOpenAIConfig returns a sensible default OpenAI translation config.
func DefaultOpenAIConfig() OpenAIConfig {
	return OpenAIConfig{
		Model:   "gpt-3.5-turbo",
		Timeout: 60 * time.Second,
	}
}

// OpenAI implements Provider using OpenAI's chat completion API.
type OpenAI struct {
	client         *openai.Client
	circuitBreaker *circuitbreaker.CircuitBreaker
	retryConfig    retry.Config
	config         OpenAIConfig
}

// NewOpenAI creates a new OpenAI translation provider with the given API key.
func NewOpenAI(apiKey string, config OpenAIConfig) *OpenAI {
	slog.Info("initialized openai translation provider",
		slog.String("model", config.Model))

	return &OpenAI{
		client:         openai.NewClient(apiKey),
		circuitBreaker: circuitbreaker.New(circuitbreaker.OpenAIAPIConfig()),
		retryConfig:    retry.AIAPIConfig(),
		config:         config,
	}
}

// Name implements Provider.
func (o *OpenAI) Name() string { return "openai" }

// Supports implements Provider.
func (o *OpenAI) Supports(languageCode string) bool {
	_, ok := languageName(languageCode)
	return ok
}

// Normalize implements Provider, resolving a language code to the English
// language name the system prompt uses.
func (o *OpenAI) Normalize(languageCode string) string {
	if name, ok := languageName(languageCode); ok {
		return name
	}
	return languageCode
}

// Translate implements Provider.
func (o *OpenAI) Translate(ctx context.Context, inputText, targetLanguage string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, o.config.Timeout)
	defer cancel()

	var result string
	retryErr := retry.WithBackoff(ctx, o.retryConfig, func() error {
		cbResult, err := o.circuitBreaker.Execute(func() (interface{}, error) {
			return o.doTranslate(ctx, inputText, targetLanguage)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) {
				slog.Warn("openai api circuit breaker open, request rejected",
					slog.String("service", "openai-api"),
					slog.String("state", o.circuitBreaker.State().String()))
				return fmt.Errorf("openai api unavailable: circuit breaker open")
			}
			return err
		}
		result = cbResult.(string)
		return nil
	})
	if retryErr != nil {
		return "", fmt.Errorf("openai translate failed after retries: %w", retryErr)
	}
	return result, nil
}

func (o *OpenAI) buildPrompt(targetLanguage string) string {
	return fmt.Sprintf(
		"Translate the user's message into %s. Return only the translation, with no preamble or explanation.",
		o.Normalize(targetLanguage))
}

func (o *OpenAI) doTranslate(ctx context.Context, inputText, targetLanguage string) (string, error) {
	const maxChars = 10000
	truncated := inputText
	if len(inputText) > maxChars {
		truncated = inputText[:maxChars] + "... (truncated)"
		slog.Warn("text truncated for openai api", slog.Int("original_length", len(inputText)))
	}

	start := time.Now()
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.config.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: "system", Content: o.buildPrompt(targetLanguage)},
			{Role: "user", Content: truncated},
		},
	})
	duration := time.Since(start)

	if err != nil {
		slog.ErrorContext(ctx, "translation failed",
			slog.Duration("duration", duration),
			slog.String("error", err.Error()))
		return "", fmt.Errorf("openai api error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai api returned empty response")
	}

	translated := resp.Choices[0].Message.Content
	slog.InfoContext(ctx, "translation completed",
		slog.Int("output_length", text.CountRunes(translated)),
		slog.Duration("duration", duration))

	return translated, nil
}
