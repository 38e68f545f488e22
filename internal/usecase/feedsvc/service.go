// Package feedsvc implements the Feed Service (C5): orchestrating
// fetch -> normalize -> persist for one feed, and the concurrent refresh of
// every feed due for a fetch.
package feedsvc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"newsflow-bridge/internal/domain/entity"
	"newsflow-bridge/internal/infra/fetch"
	"newsflow-bridge/internal/normalize"
	"newsflow-bridge/internal/observability/metrics"
	"newsflow-bridge/internal/repository"
)

// Fetcher is the interface the Feed Service needs from the Feed Fetcher
// component; kept narrow so tests can supply a stub.
type Fetcher interface {
	Fetch(ctx context.Context, url, etag, lastModified string) (*fetch.Result, error)
}

// ContentFetcher is the narrow interface the Feed Service needs from the
// Content Fetcher: full-article enrichment for entries whose RSS/Atom
// summary is too short. Errors are always non-fatal -- the caller falls
// back to the original summary.
type ContentFetcher interface {
	FetchContent(ctx context.Context, url string) (string, error)
}

// Config controls concurrency and default language for feed refresh cycles.
type Config struct {
	// Parallelism bounds the number of feeds fetched concurrently.
	Parallelism int
	// MinFetchInterval is the minimum time between fetches of the same feed.
	MinFetchInterval time.Duration
	// SourceNameLanguage picks which language column GetSourceName resolves
	// against when no subscription-specific target language applies yet.
	SourceNameLanguage string
	// ContentFetchThreshold is the minimum normalized content length (runes)
	// below which the Feed Service attempts full-article enrichment via
	// ContentFetcher, if one is configured. Zero disables enrichment even
	// when a ContentFetcher is set.
	ContentFetchThreshold int
}

// DefaultConfig returns the engine's default feed-refresh settings.
func DefaultConfig() Config {
	return Config{
		Parallelism:           10,
		MinFetchInterval:      15 * time.Minute,
		SourceNameLanguage:    "en",
		ContentFetchThreshold: 1500,
	}
}

// Service fetches feeds, normalizes their entries and persists new ones.
type Service struct {
	feedRepo       repository.FeedRepository
	entryRepo      repository.FeedEntryRepository
	fetcher        Fetcher
	contentFetcher ContentFetcher
	config         Config
}

// NewService builds a Feed Service. contentFetcher may be nil to disable
// full-article enrichment entirely.
func NewService(feedRepo repository.FeedRepository, entryRepo repository.FeedEntryRepository, fetcher Fetcher, contentFetcher ContentFetcher, config Config) *Service {
	return &Service{feedRepo: feedRepo, entryRepo: entryRepo, fetcher: fetcher, contentFetcher: contentFetcher, config: config}
}

// CycleStats summarizes one RefreshAll invocation. The Feeds* counters are
// written from concurrent goroutines via atomic.AddInt64, so they are typed
// int64 even though the values are small.
type CycleStats struct {
	FeedsChecked   int
	FeedsFetched   int64
	FeedsErrored   int64
	EntriesFound   int64
	EntriesCreated int64
	Duration       time.Duration
}

// AddFeed registers url as a new feed, or returns the existing one if
// already present. created reports whether a new row was inserted.
func (s *Service) AddFeed(ctx context.Context, url string) (feed *entity.Feed, created bool, err error) {
	feed, created, err = s.feedRepo.GetOrCreate(ctx, url)
	if err != nil {
		return nil, false, fmt.Errorf("AddFeed: %w", err)
	}
	return feed, created, nil
}

// RefreshAll fetches every feed due for a refresh (per MinFetchInterval) and
// persists any new entries, bounded by Config.Parallelism concurrent fetches.
func (s *Service) RefreshAll(ctx context.Context) (*CycleStats, error) {
	start := time.Now()
	stats := &CycleStats{}

	feeds, err := s.feedRepo.ListNeedingFetch(ctx, s.config.MinFetchInterval)
	if err != nil {
		return nil, fmt.Errorf("list feeds needing fetch: %w", err)
	}
	stats.FeedsChecked = len(feeds)

	sem := make(chan struct{}, s.config.Parallelism)
	eg, egCtx := errgroup.WithContext(ctx)

	for _, feed := range feeds {
		f := feed
		eg.Go(func() error {
			sem <- struct{}{}
			defer func() { <-sem }()

			created, found, err := s.refreshOne(egCtx, f)
			if errors.Is(err, errNotModified) {
				return nil // not-modified is neither a fetch nor an error
			}
			if err != nil {
				slog.Warn("feed refresh failed",
					slog.Int64("feed_id", f.ID), slog.String("url", f.URL), slog.Any("error", err))
				atomic.AddInt64(&stats.FeedsErrored, 1)
				return nil // per-feed failures never abort the cycle
			}
			atomic.AddInt64(&stats.FeedsFetched, 1)
			atomic.AddInt64(&stats.EntriesFound, int64(found))
			atomic.AddInt64(&stats.EntriesCreated, int64(created))
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return stats, err
	}

	stats.Duration = time.Since(start)
	metrics.RecordDispatchCycle(stats.Duration)
	slog.Info("feed refresh cycle completed",
		slog.Int("checked", stats.FeedsChecked),
		slog.Int64("fetched", stats.FeedsFetched),
		slog.Int64("errored", stats.FeedsErrored),
		slog.Int64("entries_found", stats.EntriesFound),
		slog.Int64("entries_created", stats.EntriesCreated),
		slog.Duration("duration", stats.Duration))

	return stats, nil
}

// errNotModified is returned by refreshOne when the server answered
// not-modified and the feed was marked checked with its validators unchanged.
var errNotModified = errors.New("feedsvc: feed not modified")

// refreshOne fetches and persists new entries for a single feed. Returns the
// number of entries created and found. Fetch errors are recorded onto the feed
// row via MarkError and also returned so the caller can count them.
func (s *Service) refreshOne(ctx context.Context, f *entity.Feed) (created, found int, err error) {
	cycleStart := time.Now()

	result, err := s.fetcher.Fetch(ctx, f.URL, f.ETag, f.LastModified)
	if err != nil {
		metrics.RecordFeedCrawlError(f.ID, string(fetch.Classify(err)))
		if markErr := s.feedRepo.MarkError(ctx, f.ID, time.Now(), err.Error()); markErr != nil {
			return 0, 0, fmt.Errorf("fetch feed: %w (mark error also failed: %v)", err, markErr)
		}
		return 0, 0, fmt.Errorf("fetch feed: %w", err)
	}

	if result.NotModified {
		if err := s.feedRepo.MarkSuccess(ctx, f.ID, time.Now(), f.ETag, f.LastModified); err != nil {
			return 0, 0, fmt.Errorf("mark not-modified: %w", err)
		}
		return 0, 0, errNotModified
	}

	found = len(result.Items)
	entries := make([]*entity.FeedEntry, 0, found)
	for _, item := range result.Items {
		processed := normalize.Process(item.Title, item.Summary, item.Content, item.Link, s.config.SourceNameLanguage)
		imageURL := item.ImageURL
		if imageURL == "" {
			imageURL = normalize.ExtractFirstImage(item.Content)
		}
		if imageURL != "" && !normalize.IsValidImageURL(imageURL) {
			imageURL = ""
		}

		content := processed.PlainText
		if s.contentFetcher != nil && s.config.ContentFetchThreshold > 0 &&
			normalize.CountRunes(content) < s.config.ContentFetchThreshold && item.Link != "" {
			fetchStart := time.Now()
			if enriched, fetchErr := s.contentFetcher.FetchContent(ctx, item.Link); fetchErr == nil && enriched != "" {
				enrichedProcessed := normalize.Process(item.Title, processed.Summary, enriched, item.Link, s.config.SourceNameLanguage)
				content = enrichedProcessed.PlainText
				metrics.RecordContentFetchSuccess(time.Since(fetchStart), len(enriched))
			} else if fetchErr != nil {
				metrics.RecordContentFetchFailed(time.Since(fetchStart))
				slog.Debug("content enrichment fell back to feed summary",
					slog.String("url", item.Link), slog.Any("error", fetchErr))
			}
		} else if s.contentFetcher != nil && item.Link != "" {
			metrics.RecordContentFetchSkipped()
		}

		entries = append(entries, &entity.FeedEntry{
			FeedID:      f.ID,
			GUID:        item.GUID,
			Title:       processed.Title,
			Link:        item.Link,
			Summary:     processed.Summary,
			Content:     content,
			Author:      item.Author,
			PublishedAt: item.PublishedAt,
			ImageURL:    imageURL,
		})
	}

	inserted, err := s.entryRepo.BulkInsert(ctx, entries)
	if err != nil {
		metrics.RecordFeedCrawlError(f.ID, "bulk_insert_failed")
		return 0, 0, fmt.Errorf("bulk insert entries: %w", err)
	}
	created = len(inserted)

	if err := s.feedRepo.MarkSuccess(ctx, f.ID, time.Now(), result.ETag, result.LastModified); err != nil {
		return created, found, fmt.Errorf("mark success: %w", err)
	}

	metrics.RecordFeedCrawl(f.ID, time.Since(cycleStart), int64(found))

	return created, found, nil
}

// ErrFeedNotFound is returned when a lookup by id or url finds nothing.
var ErrFeedNotFound = errors.New("feedsvc: feed not found")

// GetFeed returns the feed with the given id, or ErrFeedNotFound.
func (s *Service) GetFeed(ctx context.Context, id int64) (*entity.Feed, error) {
	feed, err := s.feedRepo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("GetFeed: %w", err)
	}
	if feed == nil {
		return nil, ErrFeedNotFound
	}
	return feed, nil
}

// GetFeedByURL returns the feed with the given url, or ErrFeedNotFound.
func (s *Service) GetFeedByURL(ctx context.Context, url string) (*entity.Feed, error) {
	feed, err := s.feedRepo.GetByURL(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("GetFeedByURL: %w", err)
	}
	if feed == nil {
		return nil, ErrFeedNotFound
	}
	return feed, nil
}
