package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"newsflow-bridge/internal/domain/entity"
	"newsflow-bridge/internal/normalize"
	"newsflow-bridge/internal/observability/metrics"
	"newsflow-bridge/internal/repository"
	"newsflow-bridge/internal/usecase/feedsvc"
)

// Circuit breaker constants for delivery adapters, one state machine per
// platform. Mirrors the threshold/cooldown used for notification channels.
const (
	circuitBreakerThreshold = 5
	circuitBreakerTimeout   = 5 * time.Minute
)

// FeedRefresher is the narrow interface the Dispatcher needs from the Feed
// Service to drive the fetching stage of a cycle.
type FeedRefresher interface {
	RefreshAll(ctx context.Context) (*feedsvc.CycleStats, error)
}

// SubscriptionLister is the narrow interface the Dispatcher needs from the
// Subscription Service to drive the collating stage of a cycle.
type SubscriptionLister interface {
	ListAllActive(ctx context.Context) ([]*entity.Subscription, error)
}

// Translator is the narrow interface the Dispatcher needs from the
// Translation Layer. A nil Translator disables translation; messages are
// sent with their original text.
type Translator interface {
	Translate(ctx context.Context, text, targetLanguage string) (string, error)
	// Supports reports whether the translation backend can produce the given
	// target language. Unsupported languages skip translation silently.
	Supports(languageCode string) bool
}

// Config controls batching and pacing of one dispatch cycle.
type Config struct {
	// UnsentLimit (K) bounds how many unsent entries are sent per
	// subscription per cycle.
	UnsentLimit int
	// SendDelay is slept between consecutive sends within one subscription,
	// to avoid bursting a platform's rate limit.
	SendDelay time.Duration
	// Parallelism bounds the number of subscriptions processed concurrently.
	// Sends within a single subscription are always sequential, preserving
	// published_at desc ordering.
	Parallelism int
}

// DefaultConfig returns the engine's default dispatch pacing.
func DefaultConfig() Config {
	return Config{
		UnsentLimit: 10,
		SendDelay:   500 * time.Millisecond,
		Parallelism: 5,
	}
}

// CycleResult summarizes one RunCycle invocation.
type CycleResult struct {
	FeedsFetched  int64
	FeedsErrored  int64
	NewEntries    int64
	MessagesSent  int64
	SendErrors    int64
	Subscriptions int
	Duration      time.Duration
}

// adapterHealth tracks a per-platform circuit breaker for delivery sends.
type adapterHealth struct {
	mu                  sync.Mutex
	consecutiveFailures int
	disabledUntil       time.Time
}

// Service runs dispatch cycles: fetch due feeds, then for every active
// subscription collate its unsent entries, translate on demand, hand each
// message to the subscription's platform adapter and record a SentReceipt
// only once the send succeeds.
type Service struct {
	feeds     FeedRefresher
	subs      SubscriptionLister
	entryRepo repository.FeedEntryRepository
	receipts  repository.SentReceiptRepository
	adapters  *AdapterRegistry
	translate Translator
	config    Config

	healthMu sync.Mutex
	health   map[string]*adapterHealth
}

// NewService builds a Dispatcher. translate may be nil to disable
// translation entirely regardless of per-subscription settings.
func NewService(
	feeds FeedRefresher,
	subs SubscriptionLister,
	entryRepo repository.FeedEntryRepository,
	receipts repository.SentReceiptRepository,
	adapters *AdapterRegistry,
	translate Translator,
	config Config,
) *Service {
	return &Service{
		feeds:     feeds,
		subs:      subs,
		entryRepo: entryRepo,
		receipts:  receipts,
		adapters:  adapters,
		translate: translate,
		config:    config,
		health:    make(map[string]*adapterHealth),
	}
}

// RunCycle executes one fetching -> collating -> translating/sending ->
// committing pass. Per-subscription errors are isolated: a failure on one
// subscription does not abort the cycle or affect another.
func (s *Service) RunCycle(ctx context.Context) (*CycleResult, error) {
	start := time.Now()
	result := &CycleResult{}

	fetchStats, err := s.feeds.RefreshAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("refresh feeds: %w", err)
	}
	result.FeedsFetched = fetchStats.FeedsFetched
	result.FeedsErrored = fetchStats.FeedsErrored
	result.NewEntries = fetchStats.EntriesCreated

	subs, err := s.subs.ListAllActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active subscriptions: %w", err)
	}
	result.Subscriptions = len(subs)

	sem := make(chan struct{}, s.config.Parallelism)
	eg, egCtx := errgroup.WithContext(ctx)

	var sentCount, errCount int64
	for _, sub := range subs {
		subscription := sub
		eg.Go(func() error {
			select {
			case sem <- struct{}{}:
			case <-egCtx.Done():
				return nil
			}
			defer func() { <-sem }()

			sent, sendErr := s.dispatchToSubscription(egCtx, subscription)
			atomic.AddInt64(&sentCount, int64(sent))
			if sendErr != nil {
				atomic.AddInt64(&errCount, 1)
				slog.Warn("dispatch to subscription failed",
					slog.Int64("subscription_id", subscription.ID),
					slog.String("platform", subscription.Platform),
					slog.Any("error", sendErr))
			}
			return nil
		})
	}
	_ = eg.Wait()

	result.MessagesSent = sentCount
	result.SendErrors = errCount
	result.Duration = time.Since(start)
	metrics.RecordDispatchCycle(result.Duration)

	slog.Info("dispatch cycle complete",
		slog.Int64("feeds_fetched", result.FeedsFetched),
		slog.Int64("new_entries", result.NewEntries),
		slog.Int("subscriptions", result.Subscriptions),
		slog.Int64("messages_sent", result.MessagesSent),
		slog.Int64("send_errors", result.SendErrors),
		slog.Duration("duration", result.Duration))

	return result, nil
}

// dispatchToSubscription sends every unsent entry for one subscription, in
// order, stopping on the first send failure so that later, older-published
// entries are not sent out of order ahead of it on the next cycle.
func (s *Service) dispatchToSubscription(ctx context.Context, sub *entity.Subscription) (sent int, err error) {
	adapter, ok := s.adapters.Get(sub.Platform)
	if !ok {
		return 0, fmt.Errorf("no delivery adapter registered for platform %q", sub.Platform)
	}

	if s.circuitOpen(sub.Platform) {
		return 0, fmt.Errorf("delivery adapter %q circuit open", sub.Platform)
	}

	entries, err := s.receipts.UnsentEntries(ctx, sub.ID, sub.FeedID, s.config.UnsentLimit)
	if err != nil {
		return 0, fmt.Errorf("list unsent entries: %w", err)
	}

	for i, entry := range entries {
		msg := s.createMessage(ctx, entry, sub)

		sendErr := adapter.SendMessage(ctx, sub.PlatformChannelID, msg)
		s.recordAdapterResult(sub.Platform, sendErr)
		metrics.RecordMessageSent(sub.Platform, sendErr == nil)
		if sendErr != nil {
			return sent, fmt.Errorf("send message: %w", sendErr)
		}

		if err := s.receipts.Insert(ctx, &entity.SentReceipt{
			SubscriptionID: sub.ID,
			EntryID:        entry.ID,
			SentAt:         time.Now(),
		}); err != nil {
			return sent, fmt.Errorf("record sent receipt: %w", err)
		}
		sent++

		if i < len(entries)-1 && s.config.SendDelay > 0 {
			select {
			case <-time.After(s.config.SendDelay):
			case <-ctx.Done():
				return sent, ctx.Err()
			}
		}
	}

	return sent, nil
}

// createMessage builds the Message for entry under sub, translating title
// and summary when the subscription requests it and no usable cached
// translation exists yet (translate lazily, cache by language, invalidate
// on language change). A translation failure is never
// fatal: the message falls back to the original text and delivery proceeds.
func (s *Service) createMessage(ctx context.Context, entry *entity.FeedEntry, sub *entity.Subscription) *Message {
	lang := "en"
	if sub.TargetLanguage != "" {
		lang = sub.TargetLanguage
	}

	msg := &Message{
		Title:       entry.Title,
		Summary:     entry.Summary,
		Link:        entry.Link,
		Source:      normalize.GetSourceName(entry.Link, sourceLanguage(lang)),
		PublishedAt: entry.PublishedAt,
		ImageURL:    entry.ImageURL,
	}

	if !sub.Translate || s.translate == nil || !s.translate.Supports(sub.TargetLanguage) {
		return msg
	}

	if entry.HasCachedTranslation(sub.TargetLanguage) {
		msg.TitleTranslated = entry.TitleTranslated
		msg.SummaryTranslated = entry.SummaryTranslated
		return msg
	}

	titleTranslated, err := s.translate.Translate(ctx, entry.Title, sub.TargetLanguage)
	if err != nil {
		slog.Warn("title translation failed, sending original text",
			slog.Int64("entry_id", entry.ID),
			slog.String("target_language", sub.TargetLanguage),
			slog.Any("error", err))
		return msg
	}
	var summaryTranslated string
	if entry.Summary != "" {
		summaryTranslated, err = s.translate.Translate(ctx, entry.Summary, sub.TargetLanguage)
		if err != nil {
			slog.Warn("summary translation failed, sending original text",
				slog.Int64("entry_id", entry.ID),
				slog.String("target_language", sub.TargetLanguage),
				slog.Any("error", err))
			return msg
		}
	}

	if err := s.entryRepo.SetTranslation(ctx, entry.ID, titleTranslated, summaryTranslated, sub.TargetLanguage); err != nil {
		slog.Warn("failed to persist translation cache",
			slog.Int64("entry_id", entry.ID), slog.Any("error", err))
	}
	entry.SetTranslation(titleTranslated, summaryTranslated, sub.TargetLanguage)

	msg.TitleTranslated = titleTranslated
	msg.SummaryTranslated = summaryTranslated
	return msg
}

// sourceLanguage maps a subscription's target_language to the "en"/"zh"
// column GetSourceName expects, matching the original dispatcher's rule.
func sourceLanguage(targetLanguage string) string {
	if len(targetLanguage) >= 2 && targetLanguage[:2] == "zh" {
		return "zh"
	}
	return "en"
}

// circuitOpen reports whether the platform's delivery circuit breaker is
// currently tripped.
func (s *Service) circuitOpen(platform string) bool {
	h := s.adapterHealth(platform)
	h.mu.Lock()
	defer h.mu.Unlock()
	return time.Now().Before(h.disabledUntil)
}

// recordAdapterResult updates the per-platform circuit breaker state after
// a send attempt.
func (s *Service) recordAdapterResult(platform string, sendErr error) {
	h := s.adapterHealth(platform)
	h.mu.Lock()
	defer h.mu.Unlock()
	if sendErr != nil {
		h.consecutiveFailures++
		if h.consecutiveFailures >= circuitBreakerThreshold {
			h.disabledUntil = time.Now().Add(circuitBreakerTimeout)
			slog.Error("delivery adapter circuit opened",
				slog.String("platform", platform),
				slog.Int("consecutive_failures", h.consecutiveFailures))
		}
		return
	}
	h.consecutiveFailures = 0
}

func (s *Service) adapterHealth(platform string) *adapterHealth {
	s.healthMu.Lock()
	defer s.healthMu.Unlock()
	h, ok := s.health[platform]
	if !ok {
		h = &adapterHealth{}
		s.health[platform] = h
	}
	return h
}
