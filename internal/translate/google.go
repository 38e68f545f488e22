package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"newsflow-bridge/internal/resilience/circuitbreaker"
	"newsflow-bridge/internal/resilience/retry"
	"newsflow-bridge/internal/utils/text"
)

const googleAPIBase = "https://translation.googleapis.com"

// googleLanguages is the set of target languages the Cloud Translation API
// accepts, keyed by base subtag.
var googleLanguages = map[string]struct{}{
	"af": {}, "sq": {}, "am": {}, "ar": {}, "hy": {}, "az": {}, "eu": {}, "be": {}, "bn": {}, "bs": {},
	"bg": {}, "ca": {}, "ceb": {}, "zh": {}, "co": {}, "hr": {}, "cs": {},
	"da": {}, "nl": {}, "en": {}, "eo": {}, "et": {}, "fi": {}, "fr": {}, "fy": {}, "gl": {}, "ka": {},
	"de": {}, "el": {}, "gu": {}, "ht": {}, "ha": {}, "haw": {}, "he": {}, "hi": {}, "hmn": {}, "hu": {},
	"is": {}, "ig": {}, "id": {}, "ga": {}, "it": {}, "ja": {}, "jv": {}, "kn": {}, "kk": {}, "km": {},
	"rw": {}, "ko": {}, "ku": {}, "ky": {}, "lo": {}, "la": {}, "lv": {}, "lt": {}, "lb": {}, "mk": {},
	"mg": {}, "ms": {}, "ml": {}, "mt": {}, "mi": {}, "mr": {}, "mn": {}, "my": {}, "ne": {}, "no": {},
	"ny": {}, "or": {}, "ps": {}, "fa": {}, "pl": {}, "pt": {}, "pa": {}, "ro": {}, "ru": {}, "sm": {},
	"gd": {}, "sr": {}, "st": {}, "sn": {}, "sd": {}, "si": {}, "sk": {}, "sl": {}, "so": {}, "es": {},
	"su": {}, "sw": {}, "sv": {}, "tl": {}, "tg": {}, "ta": {}, "tt": {}, "te": {}, "th": {}, "tr": {},
	"tk": {}, "uk": {}, "ur": {}, "ug": {}, "uz": {}, "vi": {}, "cy": {}, "xh": {}, "yi": {}, "yo": {},
	"zu": {},
}

// GoogleConfig holds configuration parameters for the Google Cloud
// Translation provider.
type GoogleConfig struct {
	APIKey  string
	Timeout time.Duration
}

// DefaultGoogleConfig returns a sensible default Google translation config.
func DefaultGoogleConfig() GoogleConfig {
	return GoogleConfig{Timeout: 30 * time.Second}
}

// Google implements Provider using the Cloud Translation v2 REST API.
type Google struct {
	client         *http.Client
	circuitBreaker *circuitbreaker.CircuitBreaker
	retryConfig    retry.Config
	config         GoogleConfig
	// baseURL defaults to googleAPIBase; overridable in tests.
	baseURL string
}

// NewGoogle creates a new Google Cloud Translation provider.
func NewGoogle(config GoogleConfig) (*Google, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("google translate: api key is required")
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	slog.Info("initialized google translation provider")

	return &Google{
		client:         &http.Client{Timeout: config.Timeout},
		circuitBreaker: circuitbreaker.New(circuitbreaker.GoogleTranslateAPIConfig()),
		retryConfig:    retry.AIAPIConfig(),
		config:         config,
		baseURL:        googleAPIBase,
	}, nil
}

// Name implements Provider.
func (g *Google) Name() string { return "google" }

// Supports implements Provider, checking the base subtag against the Cloud
// Translation language set.
func (g *Google) Supports(languageCode string) bool {
	base, _, _ := strings.Cut(normalizeCode(languageCode), "-")
	_, ok := googleLanguages[base]
	return ok
}

// Normalize implements Provider. The API expects lowercase codes except the
// Chinese variants, which keep an uppercase region ("zh-CN", "zh-TW").
func (g *Google) Normalize(languageCode string) string {
	switch code := normalizeCode(languageCode); code {
	case "zh-cn", "zh-hans":
		return "zh-CN"
	case "zh-tw", "zh-hant":
		return "zh-TW"
	default:
		return code
	}
}

// Translate implements Provider.
func (g *Google) Translate(ctx context.Context, inputText, targetLanguage string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.config.Timeout)
	defer cancel()

	var result string
	retryErr := retry.WithBackoff(ctx, g.retryConfig, func() error {
		cbResult, err := g.circuitBreaker.Execute(func() (interface{}, error) {
			return g.doTranslate(ctx, inputText, targetLanguage)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) {
				slog.Warn("google translate api circuit breaker open, request rejected",
					slog.String("service", "google-translate-api"),
					slog.String("state", g.circuitBreaker.State().String()))
				return fmt.Errorf("google translate api unavailable: circuit breaker open")
			}
			return err
		}
		result = cbResult.(string)
		return nil
	})
	if retryErr != nil {
		return "", fmt.Errorf("google translate failed after retries: %w", retryErr)
	}
	return result, nil
}

func (g *Google) doTranslate(ctx context.Context, inputText, targetLanguage string) (string, error) {
	const maxChars = 10000
	truncated := inputText
	if len(inputText) > maxChars {
		truncated = inputText[:maxChars]
		slog.Warn("text truncated for google translate api", slog.Int("original_length", len(inputText)))
	}

	payload, err := json.Marshal(map[string]any{
		"q":      []string{truncated},
		"target": g.Normalize(targetLanguage),
		"format": "text",
	})
	if err != nil {
		return "", fmt.Errorf("google translate: marshal request: %w", err)
	}

	url := g.baseURL + "/language/translate/v2?key=" + g.config.APIKey
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("google translate: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := g.client.Do(req)
	duration := time.Since(start)
	if err != nil {
		slog.ErrorContext(ctx, "translation failed",
			slog.Duration("duration", duration), slog.String("error", err.Error()))
		return "", fmt.Errorf("google translate api error: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("google translate: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", &retry.HTTPError{StatusCode: resp.StatusCode, Message: string(body)}
	}

	var decoded struct {
		Data struct {
			Translations []struct {
				TranslatedText         string `json:"translatedText"`
				DetectedSourceLanguage string `json:"detectedSourceLanguage"`
			} `json:"translations"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", fmt.Errorf("google translate: decode response: %w", err)
	}
	if len(decoded.Data.Translations) == 0 {
		return "", fmt.Errorf("google translate api returned empty response")
	}

	translated := decoded.Data.Translations[0].TranslatedText
	slog.InfoContext(ctx, "translation completed",
		slog.String("detected_source", decoded.Data.Translations[0].DetectedSourceLanguage),
		slog.Int("output_length", text.CountRunes(translated)),
		slog.Duration("duration", duration))

	return translated, nil
}
