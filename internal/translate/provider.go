// Package translate implements the Translation Layer: a provider-agnostic
// Translate call wrapped in a SHA-256 cache-keyed, in-process LRU+TTL cache.
package translate

import (
	"context"
	"errors"
)

// Provider is an AI or MT backend capable of translating text into a
// target language. Implementations wrap the provider's own retry/circuit
// breaker policy; Provider.Translate either succeeds or returns an error,
// never a partial result.
type Provider interface {
	// Translate returns text translated into targetLanguage (an ISO 639-1
	// code such as "en", "ja", "zh").
	Translate(ctx context.Context, text, targetLanguage string) (string, error)

	// Supports reports whether the provider can translate into the given
	// target language code.
	Supports(languageCode string) bool

	// Normalize converts a BCP-47-ish code into the provider's own form
	// (for the LLM providers, the English language name used in the prompt).
	Normalize(languageCode string) string

	// Name identifies the provider for metrics and logging.
	Name() string
}

// ErrUnsupportedLanguage identifies a target language a Provider cannot
// translate into. No Provider in this package returns it; callers check
// Supports before translating.
var ErrUnsupportedLanguage = errors.New("translate: unsupported target language")
