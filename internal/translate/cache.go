package translate

import (
	"container/list"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"newsflow-bridge/internal/observability/metrics"
)

// cacheEntry is one slot in the LRU, holding the translated text and its
// expiry time.
type cacheEntry struct {
	key       string
	value     string
	expiresAt time.Time
}

// memoryCache is an in-process LRU cache with per-entry TTL, ported from the
// engine's own cache abstraction (an ordered-map-backed LRU). No Redis
// client or LRU-cache library is available in this project's dependency
// set, so this is hand-rolled on container/list + sync.Mutex rather than
// reaching for an external cache backend.
type memoryCache struct {
	mu       sync.Mutex
	order    *list.List
	elements map[string]*list.Element
	maxSize  int
}

func newMemoryCache(maxSize int) *memoryCache {
	if maxSize <= 0 {
		maxSize = 10000
	}
	return &memoryCache{
		order:    list.New(),
		elements: make(map[string]*list.Element, maxSize),
		maxSize:  maxSize,
	}
}

func (c *memoryCache) get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.elements[key]
	if !ok {
		return "", false
	}
	entry := el.Value.(*cacheEntry)
	if time.Now().After(entry.expiresAt) {
		c.order.Remove(el)
		delete(c.elements, key)
		return "", false
	}
	c.order.MoveToFront(el)
	return entry.value, true
}

func (c *memoryCache) set(key, value string, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.elements[key]; ok {
		el.Value.(*cacheEntry).value = value
		el.Value.(*cacheEntry).expiresAt = time.Now().Add(ttl)
		c.order.MoveToFront(el)
		return
	}

	entry := &cacheEntry{key: key, value: value, expiresAt: time.Now().Add(ttl)}
	el := c.order.PushFront(entry)
	c.elements[key] = el

	if c.order.Len() > c.maxSize {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.elements, oldest.Value.(*cacheEntry).key)
		}
	}
}

// DefaultCacheTTL matches the original 7-day translation cache lifetime.
const DefaultCacheTTL = 7 * 24 * time.Hour

// Service wraps a Provider with a SHA-256 cache-keyed translation cache,
// collapsing repeated translation requests for identical (provider, target
// language, text) tuples.
type Service struct {
	provider Provider
	cache    *memoryCache
	ttl      time.Duration
}

// NewService builds a caching translation service around provider. maxSize
// bounds the number of distinct cached translations held at once.
func NewService(provider Provider, maxSize int, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Service{
		provider: provider,
		cache:    newMemoryCache(maxSize),
		ttl:      ttl,
	}
}

func (s *Service) cacheKey(text, targetLanguage string) string {
	sum := sha256.Sum256([]byte(text))
	return fmt.Sprintf("trans:%s:%s:%s", s.provider.Name(), targetLanguage, hex.EncodeToString(sum[:])[:16])
}

// Translate returns the cached translation for (text, targetLanguage) when
// present, otherwise calls the underlying provider and caches the result.
// An empty or whitespace-only text is returned unchanged without consulting
// the provider or cache.
func (s *Service) Translate(ctx context.Context, text, targetLanguage string) (string, error) {
	if trimmedEmpty(text) {
		return "", nil
	}

	key := s.cacheKey(text, targetLanguage)
	if cached, ok := s.cache.get(key); ok {
		metrics.RecordTranslationCacheHit()
		return cached, nil
	}
	metrics.RecordTranslationCacheMiss()

	start := time.Now()
	translated, err := s.provider.Translate(ctx, text, targetLanguage)
	duration := time.Since(start)
	metrics.RecordTranslationDuration(s.provider.Name(), duration)
	metrics.RecordTranslation(s.provider.Name(), err == nil)
	if err != nil {
		return "", err
	}

	if translated != "" {
		s.cache.set(key, translated, s.ttl)
	}
	return translated, nil
}

// Supports reports whether the underlying provider can translate into the
// given target language.
func (s *Service) Supports(languageCode string) bool {
	return s.provider.Supports(languageCode)
}

// batchParallelism bounds concurrent provider calls in TranslateBatch so a
// large batch cannot saturate a paid API.
const batchParallelism = 3

// TranslateBatch translates texts into targetLanguage, preserving input
// order in the returned slice. Provider calls run concurrently under a
// bounded permit; each text still goes through the cache individually, but
// duplicate texts that run at the same time can each miss the cache and
// call the provider. The first provider error aborts the batch.
func (s *Service) TranslateBatch(ctx context.Context, texts []string, targetLanguage string) ([]string, error) {
	results := make([]string, len(texts))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(batchParallelism)

	for i, t := range texts {
		i, t := i, t
		eg.Go(func() error {
			translated, err := s.Translate(egCtx, t, targetLanguage)
			if err != nil {
				return err
			}
			results[i] = translated
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func trimmedEmpty(s string) bool {
	for _, r := range s {
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
			return false
		}
	}
	return true
}
