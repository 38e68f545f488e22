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

const deeplAPIBase = "https://api-free.deepl.com"

// deeplLanguages maps lowercase codes to the uppercase target codes the
// DeepL API expects. Unlisted languages are unsupported.
var deeplLanguages = map[string]string{
	"bg":      "BG",
	"cs":      "CS",
	"da":      "DA",
	"de":      "DE",
	"el":      "EL",
	"en":      "EN",
	"en-gb":   "EN-GB",
	"en-us":   "EN-US",
	"es":      "ES",
	"et":      "ET",
	"fi":      "FI",
	"fr":      "FR",
	"hu":      "HU",
	"id":      "ID",
	"it":      "IT",
	"ja":      "JA",
	"ko":      "KO",
	"lt":      "LT",
	"lv":      "LV",
	"nb":      "NB",
	"nl":      "NL",
	"pl":      "PL",
	"pt":      "PT",
	"pt-br":   "PT-BR",
	"pt-pt":   "PT-PT",
	"ro":      "RO",
	"ru":      "RU",
	"sk":      "SK",
	"sl":      "SL",
	"sv":      "SV",
	"tr":      "TR",
	"uk":      "UK",
	"zh":      "ZH",
	"zh-cn":   "ZH",
	"zh-hans": "ZH",
}

// DeepLConfig holds configuration parameters for the DeepL provider.
type DeepLConfig struct {
	APIKey  string
	Timeout time.Duration
}

// DefaultDeepLConfig returns a sensible default DeepL translation config.
func DefaultDeepLConfig() DeepLConfig {
	return DeepLConfig{Timeout: 30 * time.Second}
}

// DeepL implements Provider using the DeepL REST API.
type DeepL struct {
	client         *http.Client
	circuitBreaker *circuitbreaker.CircuitBreaker
	retryConfig    retry.Config
	config         DeepLConfig
	// baseURL defaults to deeplAPIBase; overridable in tests.
	baseURL string
}

// NewDeepL creates a new DeepL translation provider.
func NewDeepL(config DeepLConfig) (*DeepL, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("deepl: api key is required")
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	slog.Info("initialized deepl translation provider")

	return &DeepL{
		client:         &http.Client{Timeout: config.Timeout},
		circuitBreaker: circuitbreaker.New(circuitbreaker.DeepLAPIConfig()),
		retryConfig:    retry.AIAPIConfig(),
		config:         config,
		baseURL:        deeplAPIBase,
	}, nil
}

// Name implements Provider.
func (d *DeepL) Name() string { return "deepl" }

// Supports implements Provider; DeepL's target set is closed, so only codes
// in the table qualify.
func (d *DeepL) Supports(languageCode string) bool {
	_, ok := deeplLanguages[normalizeCode(languageCode)]
	return ok
}

// Normalize implements Provider, converting a code to DeepL's uppercase
// form ("ja" -> "JA", "pt-br" -> "PT-BR").
func (d *DeepL) Normalize(languageCode string) string {
	code := normalizeCode(languageCode)
	if target, ok := deeplLanguages[code]; ok {
		return target
	}
	return strings.ToUpper(code)
}

// Translate implements Provider.
func (d *DeepL) Translate(ctx context.Context, inputText, targetLanguage string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, d.config.Timeout)
	defer cancel()

	var result string
	retryErr := retry.WithBackoff(ctx, d.retryConfig, func() error {
		cbResult, err := d.circuitBreaker.Execute(func() (interface{}, error) {
			return d.doTranslate(ctx, inputText, targetLanguage)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) {
				slog.Warn("deepl api circuit breaker open, request rejected",
					slog.String("service", "deepl-api"),
					slog.String("state", d.circuitBreaker.State().String()))
				return fmt.Errorf("deepl api unavailable: circuit breaker open")
			}
			return err
		}
		result = cbResult.(string)
		return nil
	})
	if retryErr != nil {
		return "", fmt.Errorf("deepl translate failed after retries: %w", retryErr)
	}
	return result, nil
}

func (d *DeepL) doTranslate(ctx context.Context, inputText, targetLanguage string) (string, error) {
	const maxChars = 10000
	truncated := inputText
	if len(inputText) > maxChars {
		truncated = inputText[:maxChars]
		slog.Warn("text truncated for deepl api", slog.Int("original_length", len(inputText)))
	}

	payload, err := json.Marshal(map[string]any{
		"text":        []string{truncated},
		"target_lang": d.Normalize(targetLanguage),
	})
	if err != nil {
		return "", fmt.Errorf("deepl: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+"/v2/translate", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("deepl: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "DeepL-Auth-Key "+d.config.APIKey)

	start := time.Now()
	resp, err := d.client.Do(req)
	duration := time.Since(start)
	if err != nil {
		slog.ErrorContext(ctx, "translation failed",
			slog.Duration("duration", duration), slog.String("error", err.Error()))
		return "", fmt.Errorf("deepl api error: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("deepl: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", &retry.HTTPError{StatusCode: resp.StatusCode, Message: string(body)}
	}

	var decoded struct {
		Translations []struct {
			DetectedSourceLanguage string `json:"detected_source_language"`
			Text                   string `json:"text"`
		} `json:"translations"`
	}
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", fmt.Errorf("deepl: decode response: %w", err)
	}
	if len(decoded.Translations) == 0 {
		return "", fmt.Errorf("deepl api returned empty response")
	}

	translated := decoded.Translations[0].Text
	slog.InfoContext(ctx, "translation completed",
		slog.String("detected_source", decoded.Translations[0].DetectedSourceLanguage),
		slog.Int("output_length", text.CountRunes(translated)),
		slog.Duration("duration", duration))

	return translated, nil
}
