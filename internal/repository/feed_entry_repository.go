package repository

import (
	"context"

	"newsflow-bridge/internal/domain/entity"
)

// FeedEntryRepository is the narrow contract over the feed_entries table.
// Bulk insert silently skips entries whose (feed_id, guid) already exists --
// duplicates are not errors, they encode the dedup contract.
type FeedEntryRepository interface {
	GetByGUID(ctx context.Context, feedID int64, guid string) (*entity.FeedEntry, error)
	// ListRecent returns up to limit entries for a feed, newest published_at
	// first (entries with a null published_at sort last).
	ListRecent(ctx context.Context, feedID int64, limit int) ([]*entity.FeedEntry, error)
	// BulkInsert inserts entries, skipping ones whose (feed_id, guid) already
	// exists, and returns only the entries that were actually inserted.
	BulkInsert(ctx context.Context, entries []*entity.FeedEntry) ([]*entity.FeedEntry, error)
	SetTranslation(ctx context.Context, id int64, titleTranslated, summaryTranslated, lang string) error
	DeleteOlderThan(ctx context.Context, retentionDays int) (int64, error)
}
