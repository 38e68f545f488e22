package repository

import (
	"context"

	"newsflow-bridge/internal/domain/entity"
)

// SentReceiptRepository is the narrow contract over the sent_receipts table.
// UnsentEntries implements the core dispatch query: entries not
// in the receipts table for subscription S, ordered by published_at desc
// (nulls last), limited to K.
type SentReceiptRepository interface {
	Exists(ctx context.Context, subscriptionID, entryID int64) (bool, error)
	Insert(ctx context.Context, receipt *entity.SentReceipt) error
	// UnsentEntries returns up to limit FeedEntry rows belonging to feedID
	// that have no SentReceipt for subscriptionID yet.
	UnsentEntries(ctx context.Context, subscriptionID, feedID int64, limit int) ([]*entity.FeedEntry, error)
	DeleteOlderThan(ctx context.Context, retentionDays int) (int64, error)
}
