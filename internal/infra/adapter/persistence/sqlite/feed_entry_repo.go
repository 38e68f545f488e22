package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"newsflow-bridge/internal/domain/entity"
	"newsflow-bridge/internal/repository"
)

type FeedEntryRepo struct{ db *sql.DB }

func NewFeedEntryRepo(db *sql.DB) repository.FeedEntryRepository {
	return &FeedEntryRepo{db: db}
}

const feedEntryColumns = `id, feed_id, guid, title, link, summary, content, author, published_at,
       image_url, title_translated, summary_translated, translation_language, is_sent, created_at`

func scanFeedEntry(scanner interface{ Scan(...any) error }) (*entity.FeedEntry, error) {
	var e entity.FeedEntry
	if err := scanner.Scan(
		&e.ID, &e.FeedID, &e.GUID, &e.Title, &e.Link, &e.Summary, &e.Content, &e.Author, &e.PublishedAt,
		&e.ImageURL, &e.TitleTranslated, &e.SummaryTranslated, &e.TranslationLanguage, &e.IsSent, &e.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *FeedEntryRepo) GetByGUID(ctx context.Context, feedID int64, guid string) (*entity.FeedEntry, error) {
	query := fmt.Sprintf(`SELECT %s FROM feed_entries WHERE feed_id = ? AND guid = ? LIMIT 1`, feedEntryColumns)
	entry, err := scanFeedEntry(r.db.QueryRowContext(ctx, query, feedID, guid))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetByGUID: %w", err)
	}
	return entry, nil
}

func (r *FeedEntryRepo) ListRecent(ctx context.Context, feedID int64, limit int) ([]*entity.FeedEntry, error) {
	query := fmt.Sprintf(`
SELECT %s FROM feed_entries
WHERE feed_id = ?
ORDER BY (published_at IS NULL) ASC, published_at DESC, id DESC
LIMIT ?`, feedEntryColumns)
	rows, err := r.db.QueryContext(ctx, query, feedID, limit)
	if err != nil {
		return nil, fmt.Errorf("ListRecent: %w", err)
	}
	defer func() { _ = rows.Close() }()

	entries := make([]*entity.FeedEntry, 0, limit)
	for rows.Next() {
		e, err := scanFeedEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("ListRecent: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *FeedEntryRepo) BulkInsert(ctx context.Context, entries []*entity.FeedEntry) ([]*entity.FeedEntry, error) {
	if len(entries) == 0 {
		return nil, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("BulkInsert: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const insert = `
INSERT OR IGNORE INTO feed_entries (feed_id, guid, title, link, summary, content, author, published_at, image_url, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	inserted := make([]*entity.FeedEntry, 0, len(entries))
	now := time.Now()
	for _, e := range entries {
		if e.CreatedAt.IsZero() {
			e.CreatedAt = now
		}
		res, err := tx.ExecContext(ctx, insert,
			e.FeedID, e.GUID, e.Title, e.Link, e.Summary, e.Content, e.Author, e.PublishedAt, e.ImageURL, e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("BulkInsert: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			continue // duplicate (feed_id, guid); not an error
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("BulkInsert: %w", err)
		}
		e.ID = id
		inserted = append(inserted, e)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("BulkInsert: commit: %w", err)
	}
	return inserted, nil
}

func (r *FeedEntryRepo) SetTranslation(ctx context.Context, id int64, titleTranslated, summaryTranslated, lang string) error {
	const query = `
UPDATE feed_entries SET title_translated = ?, summary_translated = ?, translation_language = ?
WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query, titleTranslated, summaryTranslated, lang, id)
	if err != nil {
		return fmt.Errorf("SetTranslation: %w", err)
	}
	return nil
}

func (r *FeedEntryRepo) DeleteOlderThan(ctx context.Context, retentionDays int) (int64, error) {
	const query = `DELETE FROM feed_entries WHERE created_at < ?`
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	res, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("DeleteOlderThan: %w", err)
	}
	return res.RowsAffected()
}
