package postgres

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
	const query = `SELECT EXISTS(SELECT 1 FROM sent_receipts WHERE subscription_id = $1 AND entry_id = $2)`
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, subscriptionID, entryID).Scan(&exists); err != nil {
		return false, fmt.Errorf("Exists: %w", err)
	}
	return exists, nil
}

// Insert is idempotent on (subscription_id, entry_id): a duplicate insert
// from a racing dispatch worker is silently absorbed, so at most one
// receipt ever exists per pair.
func (r *SentReceiptRepo) Insert(ctx context.Context, receipt *entity.SentReceipt) error {
	if receipt.SentAt.IsZero() {
		receipt.SentAt = time.Now()
	}
	const query = `
INSERT INTO sent_receipts (subscription_id, entry_id, sent_at)
VALUES ($1, $2, $3)
ON CONFLICT (subscription_id, entry_id) DO NOTHING
RETURNING id`
	err := r.db.QueryRowContext(ctx, query, receipt.SubscriptionID, receipt.EntryID, receipt.SentAt).Scan(&receipt.ID)
	if err == sql.ErrNoRows {
		return nil // already recorded by a previous or concurrent dispatch
	}
	if err != nil {
		return fmt.Errorf("Insert: %w", err)
	}
	return nil
}

func (r *SentReceiptRepo) UnsentEntries(ctx context.Context, subscriptionID, feedID int64, limit int) ([]*entity.FeedEntry, error) {
	query := fmt.Sprintf(`
SELECT %s FROM feed_entries e
WHERE e.feed_id = $1
AND NOT EXISTS (
    SELECT 1 FROM sent_receipts r
    WHERE r.subscription_id = $2 AND r.entry_id = e.id
)
ORDER BY e.published_at DESC NULLS LAST, e.id DESC
LIMIT $3`, feedEntryColumns)
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
	const query = `DELETE FROM sent_receipts WHERE sent_at < $1`
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	res, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("DeleteOlderThan: %w", err)
	}
	return res.RowsAffected()
}
