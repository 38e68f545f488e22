package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"newsflow-bridge/internal/domain/entity"
	"newsflow-bridge/internal/repository"
)

type SentReceiptRepo struct{ db *sql.DB }

func NewSentReceiptRepo(db *sql.DB) repository.SentReceiptRepository {
	return &SentReceiptRepo{db: db}
}

func (r *SentReceiptRepo) Exists(ctx context.Context, subscriptionID, entryID int64) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM sent_receipts WHERE subscription_id = ? AND entry_id = ?)`
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, subscriptionID, entryID).Scan(&exists); err != nil {
		return false, fmt.Errorf("Exists: %w", err)
	}
	return exists, nil
}

func (r *SentReceiptRepo) Insert(ctx context.Context, receipt *entity.SentReceipt) error {
	if receipt.SentAt.IsZero() {
		receipt.SentAt = time.Now()
	}
	const query = `
INSERT OR IGNORE INTO sent_receipts (subscription_id, entry_id, sent_at)
VALUES (?, ?, ?)`
	res, err := r.db.ExecContext(ctx, query, receipt.SubscriptionID, receipt.EntryID, receipt.SentAt)
	if err != nil {
		return fmt.Errorf("Insert: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil // already recorded by a previous or concurrent dispatch
	}
	receipt.ID, err = res.LastInsertId()
	return err
}

func (r *SentReceiptRepo) UnsentEntries(ctx context.Context, subscriptionID, feedID int64, limit int) ([]*entity.FeedEntry, error) {
	query := fmt.Sprintf(`
SELECT %s FROM feed_entries e
WHERE e.feed_id = ?
AND NOT EXISTS (
    SELECT 1 FROM sent_receipts r
    WHERE r.subscription_id = ? AND r.entry_id = e.id
)
ORDER BY (e.published_at IS NULL) ASC, e.published_at DESC, e.id DESC
LIMIT ?`, feedEntryColumns)
	rows, err := r.db.QueryContext(ctx, query, feedID, subscriptionID, limit)
	if err != nil {
		return nil, fmt.Errorf("UnsentEntries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	entries := make([]*entity.FeedEntry, 0, limit)
	for rows.Next() {
		e, err := scanFeedEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("UnsentEntries: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *SentReceiptRepo) DeleteOlderThan(ctx context.Context, retentionDays int) (int64, error) {
	const query = `DELETE FROM sent_receipts WHERE sent_at < ?`
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	res, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("DeleteOlderThan: %w", err)
	}
	return res.RowsAffected()
}
