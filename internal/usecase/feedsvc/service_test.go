package feedsvc

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsflow-bridge/internal/domain/entity"
	"newsflow-bridge/internal/infra/fetch"
)

// fakeFeedRepo is an in-memory stand-in for repository.FeedRepository.
type fakeFeedRepo struct {
	mu    sync.Mutex
	feeds map[int64]*entity.Feed
	next  int64
}

func newFakeFeedRepo(feeds ...*entity.Feed) *fakeFeedRepo {
	r := &fakeFeedRepo{feeds: make(map[int64]*entity.Feed)}
	for _, f := range feeds {
		r.next++
		f.ID = r.next
		r.feeds[f.ID] = f
	}
	return r
}

func (r *fakeFeedRepo) Get(_ context.Context, id int64) (*entity.Feed, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.feeds[id]
	if !ok {
		return nil, nil
	}
	return f, nil
}

func (r *fakeFeedRepo) GetByURL(_ context.Context, url string) (*entity.Feed, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, f := range r.feeds {
		if f.URL == url {
			return f, nil
		}
	}
	return nil, nil
}

func (r *fakeFeedRepo) ListActive(_ context.Context) ([]*entity.Feed, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.Feed
	for _, f := range r.feeds {
		if f.IsActive {
			out = append(out, f)
		}
	}
	return out, nil
}

func (r *fakeFeedRepo) ListNeedingFetch(_ context.Context, _ time.Duration) ([]*entity.Feed, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.Feed
	for _, f := range r.feeds {
		if f.IsActive {
			out = append(out, f)
		}
	}
	return out, nil
}

func (r *fakeFeedRepo) Create(_ context.Context, feed *entity.Feed) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	feed.ID = r.next
	r.feeds[feed.ID] = feed
	return nil
}

func (r *fakeFeedRepo) GetOrCreate(_ context.Context, url string) (*entity.Feed, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, f := range r.feeds {
		if f.URL == url {
			return f, false, nil
		}
	}
	r.next++
	f := &entity.Feed{ID: r.next, URL: url, IsActive: true}
	r.feeds[f.ID] = f
	return f, true, nil
}

func (r *fakeFeedRepo) Update(_ context.Context, feed *entity.Feed) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.feeds[feed.ID] = feed
	return nil
}

func (r *fakeFeedRepo) MarkError(_ context.Context, id int64, now time.Time, errMsg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.feeds[id]
	if !ok {
		return errors.New("feed not found")
	}
	f.MarkError(now, errMsg)
	return nil
}

func (r *fakeFeedRepo) MarkSuccess(_ context.Context, id int64, now time.Time, etag, lastModified string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.feeds[id]
	if !ok {
		return errors.New("feed not found")
	}
	f.MarkSuccess(now, etag, lastModified)
	return nil
}

func (r *fakeFeedRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.feeds, id)
	return nil
}

// fakeEntryRepo is an in-memory stand-in for repository.FeedEntryRepository.
type fakeEntryRepo struct {
	mu      sync.Mutex
	entries map[string]*entity.FeedEntry // keyed by feedID:guid
	nextID  int64
}

func newFakeEntryRepo() *fakeEntryRepo {
	return &fakeEntryRepo{entries: make(map[string]*entity.FeedEntry)}
}

func entryKey(feedID int64, guid string) string {
	return fmt.Sprintf("%d:%s", feedID, guid)
}

func (r *fakeEntryRepo) GetByGUID(_ context.Context, feedID int64, guid string) (*entity.FeedEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[entryKey(feedID, guid)]
	if !ok {
		return nil, nil
	}
	return e, nil
}

func (r *fakeEntryRepo) ListRecent(_ context.Context, feedID int64, limit int) ([]*entity.FeedEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.FeedEntry
	for _, e := range r.entries {
		if e.FeedID == feedID {
			out = append(out, e)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeEntryRepo) BulkInsert(_ context.Context, entries []*entity.FeedEntry) ([]*entity.FeedEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var inserted []*entity.FeedEntry
	for _, e := range entries {
		key := entryKey(e.FeedID, e.GUID)
		if _, exists := r.entries[key]; exists {
			continue
		}
		r.nextID++
		e.ID = r.nextID
		r.entries[key] = e
		inserted = append(inserted, e)
	}
	return inserted, nil
}

func (r *fakeEntryRepo) SetTranslation(_ context.Context, id int64, titleTranslated, summaryTranslated, lang string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.ID == id {
			e.SetTranslation(titleTranslated, summaryTranslated, lang)
			return nil
		}
	}
	return errors.New("entry not found")
}

func (r *fakeEntryRepo) DeleteOlderThan(_ context.Context, _ int) (int64, error) {
	return 0, nil
}

// fakeFetcher is a stub Fetcher for tests.
type fakeFetcher struct {
	mu      sync.Mutex
	results map[string]*fetch.Result
	errs    map[string]error
	calls   int
}

func (f *fakeFetcher) Fetch(_ context.Context, url, _, _ string) (*fetch.Result, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if err, ok := f.errs[url]; ok {
		return nil, err
	}
	if res, ok := f.results[url]; ok {
		return res, nil
	}
	return &fetch.Result{}, nil
}

func TestService_AddFeed_CreatesNew(t *testing.T) {
	feedRepo := newFakeFeedRepo()
	entryRepo := newFakeEntryRepo()
	svc := NewService(feedRepo, entryRepo, &fakeFetcher{}, nil, DefaultConfig())

	feed, created, err := svc.AddFeed(context.Background(), "https://example.com/rss.xml")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "https://example.com/rss.xml", feed.URL)
}

func TestService_AddFeed_ReturnsExisting(t *testing.T) {
	existing := &entity.Feed{URL: "https://example.com/rss.xml", IsActive: true}
	feedRepo := newFakeFeedRepo(existing)
	entryRepo := newFakeEntryRepo()
	svc := NewService(feedRepo, entryRepo, &fakeFetcher{}, nil, DefaultConfig())

	feed, created, err := svc.AddFeed(context.Background(), "https://example.com/rss.xml")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, existing.ID, feed.ID)
}

func TestService_GetFeed_NotFound(t *testing.T) {
	svc := NewService(newFakeFeedRepo(), newFakeEntryRepo(), &fakeFetcher{}, nil, DefaultConfig())

	_, err := svc.GetFeed(context.Background(), 42)
	assert.ErrorIs(t, err, ErrFeedNotFound)
}

func TestService_RefreshAll_NewEntriesPersisted(t *testing.T) {
	f := &entity.Feed{URL: "https://example.com/rss.xml", IsActive: true}
	feedRepo := newFakeFeedRepo(f)
	entryRepo := newFakeEntryRepo()

	published := time.Now()
	fetcher := &fakeFetcher{
		results: map[string]*fetch.Result{
			f.URL: {
				ETag:         "v2",
				LastModified: "Tue",
				Items: []fetch.Item{
					{GUID: "item-1", Title: "<b>Hello</b>", Link: "https://example.com/a", Summary: "world", PublishedAt: &published},
					{GUID: "item-2", Title: "Second", Link: "https://example.com/b", Summary: "other", PublishedAt: &published},
				},
			},
		},
	}

	svc := NewService(feedRepo, entryRepo, fetcher, nil, DefaultConfig())
	stats, err := svc.RefreshAll(context.Background())
	require.NoError(t, err)

	assert.EqualValues(t, 1, stats.FeedsChecked)
	assert.EqualValues(t, 1, stats.FeedsFetched)
	assert.EqualValues(t, 0, stats.FeedsErrored)
	assert.EqualValues(t, 2, stats.EntriesFound)
	assert.EqualValues(t, 2, stats.EntriesCreated)

	updated, err := feedRepo.Get(context.Background(), f.ID)
	require.NoError(t, err)
	assert.Equal(t, "v2", updated.ETag)
	assert.Equal(t, 0, updated.ErrorCount)
}

func TestService_RefreshAll_NotModifiedSkipsInsert(t *testing.T) {
	f := &entity.Feed{URL: "https://example.com/rss.xml", IsActive: true, ETag: "v1"}
	feedRepo := newFakeFeedRepo(f)
	entryRepo := newFakeEntryRepo()

	fetcher := &fakeFetcher{
		results: map[string]*fetch.Result{
			f.URL: {NotModified: true},
		},
	}

	svc := NewService(feedRepo, entryRepo, fetcher, nil, DefaultConfig())
	stats, err := svc.RefreshAll(context.Background())
	require.NoError(t, err)

	assert.EqualValues(t, 0, stats.EntriesFound)
	assert.EqualValues(t, 0, stats.EntriesCreated)
	assert.EqualValues(t, 0, stats.FeedsFetched, "not-modified is neither a fetch nor an error")

	updated, err := feedRepo.Get(context.Background(), f.ID)
	require.NoError(t, err)
	assert.Equal(t, "v1", updated.ETag, "validators untouched on 304")
}

func TestService_RefreshAll_PerFeedErrorIsolated(t *testing.T) {
	good := &entity.Feed{URL: "https://good.example.com/rss.xml", IsActive: true}
	bad := &entity.Feed{URL: "https://bad.example.com/rss.xml", IsActive: true}
	feedRepo := newFakeFeedRepo(good, bad)
	entryRepo := newFakeEntryRepo()

	fetcher := &fakeFetcher{
		results: map[string]*fetch.Result{
			good.URL: {ETag: "v2", Items: []fetch.Item{{GUID: "g1", Title: "ok", Link: "https://good.example.com/a"}}},
		},
		errs: map[string]error{
			bad.URL: errors.New("connection refused"),
		},
	}

	svc := NewService(feedRepo, entryRepo, fetcher, nil, DefaultConfig())
	stats, err := svc.RefreshAll(context.Background())
	require.NoError(t, err, "one feed failing must not abort the whole cycle")

	assert.EqualValues(t, 2, stats.FeedsChecked)
	assert.EqualValues(t, 1, stats.FeedsFetched)
	assert.EqualValues(t, 1, stats.FeedsErrored)

	updatedBad, err := feedRepo.Get(context.Background(), bad.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, updatedBad.ErrorCount)
	assert.Contains(t, updatedBad.LastError, "connection refused")
}

func TestService_RefreshAll_BulkInsertDedup(t *testing.T) {
	f := &entity.Feed{URL: "https://example.com/rss.xml", IsActive: true}
	feedRepo := newFakeFeedRepo(f)
	entryRepo := newFakeEntryRepo()
	// pre-seed one entry so the fetch result tries to recreate it
	require.NoError(t, seedEntry(entryRepo, f.ID, "dup-1"))

	fetcher := &fakeFetcher{
		results: map[string]*fetch.Result{
			f.URL: {
				Items: []fetch.Item{
					{GUID: "dup-1", Title: "already there", Link: "https://example.com/dup"},
					{GUID: "new-1", Title: "brand new", Link: "https://example.com/new"},
				},
			},
		},
	}

	svc := NewService(feedRepo, entryRepo, fetcher, nil, DefaultConfig())
	stats, err := svc.RefreshAll(context.Background())
	require.NoError(t, err)

	assert.EqualValues(t, 2, stats.EntriesFound)
	assert.EqualValues(t, 1, stats.EntriesCreated, "the duplicate guid must not be recounted")
}

func seedEntry(r *fakeEntryRepo, feedID int64, guid string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	e := &entity.FeedEntry{ID: r.nextID, FeedID: feedID, GUID: guid}
	r.entries[entryKey(feedID, guid)] = e
	return nil
}
