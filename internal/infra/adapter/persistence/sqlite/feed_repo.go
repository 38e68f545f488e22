// Package sqlite mirrors the postgres persistence adapters against an
// embedded single-file store, selected via DATABASE_DRIVER=sqlite (the
// default) in cmd/worker. Query text uses ?-placeholders and sqlite's 0/1
// boolean encoding; id assignment goes through res.LastInsertId() rather
// than RETURNING, since modernc.org/sqlite has no RETURNING support path
// exercised here.
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

type FeedRepo struct{ db *sql.DB }

func NewFeedRepo(db *sql.DB) repository.FeedRepository {
	return &FeedRepo{db: db}
}

const feedColumns = `id, url, title, description, site_url, is_active, error_count, last_error,
       etag, last_modified, last_fetched_at, last_successful_fetch_at, created_at, updated_at`

func scanFeed(scanner interface{ Scan(...any) error }) (*entity.Feed, error) {
	var f entity.Feed
	if err := scanner.Scan(
		&f.ID, &f.URL, &f.Title, &f.Description, &f.SiteURL, &f.IsActive, &f.ErrorCount, &f.LastError,
		&f.ETag, &f.LastModified, &f.LastFetchedAt, &f.LastSuccessfulFetchAt, &f.CreatedAt, &f.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *FeedRepo) Get(ctx context.Context, id int64) (*entity.Feed, error) {
	query := fmt.Sprintf(`SELECT %s FROM feeds WHERE id = ? LIMIT 1`, feedColumns)
	feed, err := scanFeed(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return feed, nil
}

func (r *FeedRepo) GetByURL(ctx context.Context, url string) (*entity.Feed, error) {
	query := fmt.Sprintf(`SELECT %s FROM feeds WHERE url = ? LIMIT 1`, feedColumns)
	feed, err := scanFeed(r.db.QueryRowContext(ctx, query, url))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetByURL: %w", err)
	}
	return feed, nil
}

func (r *FeedRepo) ListActive(ctx context.Context) ([]*entity.Feed, error) {
	query := fmt.Sprintf(`SELECT %s FROM feeds WHERE is_active = 1 ORDER BY id ASC`, feedColumns)
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ListActive: %w", err)
	}
	defer func() { _ = rows.Close() }()

	feeds := make([]*entity.Feed, 0, 50)
	for rows.Next() {
		f, err := scanFeed(rows)
		if err != nil {
			return nil, fmt.Errorf("ListActive: %w", err)
		}
		feeds = append(feeds, f)
	}
	return feeds, rows.Err()
}

func (r *FeedRepo) ListNeedingFetch(ctx context.Context, minInterval time.Duration) ([]*entity.Feed, error) {
	query := fmt.Sprintf(`
SELECT %s FROM feeds
WHERE is_active = 1
AND (last_fetched_at IS NULL OR last_fetched_at < ?)
ORDER BY id ASC`, feedColumns)
	cutoff := time.Now().Add(-minInterval)
	rows, err := r.db.QueryContext(ctx, query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("ListNeedingFetch: %w", err)
	}
	defer func() { _ = rows.Close() }()

	feeds := make([]*entity.Feed, 0, 50)
	for rows.Next() {
		f, err := scanFeed(rows)
		if err != nil {
			return nil, fmt.Errorf("ListNeedingFetch: %w", err)
		}
		feeds = append(feeds, f)
	}
	return feeds, rows.Err()
}

func (r *FeedRepo) Create(ctx context.Context, feed *entity.Feed) error {
	now := time.Now()
	feed.CreatedAt, feed.UpdatedAt = now, now
	feed.IsActive = true
	const query = `
INSERT INTO feeds (url, title, description, site_url, is_active, error_count, last_error,
                    etag, last_modified, last_fetched_at, last_successful_fetch_at, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, query,
		feed.URL, feed.Title, feed.Description, feed.SiteURL, feed.IsActive, feed.ErrorCount, feed.LastError,
		feed.ETag, feed.LastModified, feed.LastFetchedAt, feed.LastSuccessfulFetchAt, feed.CreatedAt, feed.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	feed.ID, err = res.LastInsertId()
	return err
}

func (r *FeedRepo) GetOrCreate(ctx context.Context, url string) (*entity.Feed, bool, error) {
	existing, err := r.GetByURL(ctx, url)
	if err != nil {
		return nil, false, fmt.Errorf("GetOrCreate: %w", err)
	}
	if existing != nil {
		return existing, false, nil
	}

	feed := &entity.Feed{URL: url}
	if err := r.Create(ctx, feed); err != nil {
		// Lost the insert race on the unique url constraint.
		existing, getErr := r.GetByURL(ctx, url)
		if getErr == nil && existing != nil {
			return existing, false, nil
		}
		return nil, false, fmt.Errorf("GetOrCreate: %w", err)
	}
	return feed, true, nil
}

func (r *FeedRepo) Update(ctx context.Context, feed *entity.Feed) error {
	feed.UpdatedAt = time.Now()
	const query = `
UPDATE feeds SET
       title = ?, description = ?, site_url = ?, is_active = ?,
       error_count = ?, last_error = ?, etag = ?, last_modified = ?,
       last_fetched_at = ?, last_successful_fetch_at = ?, updated_at = ?
WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query,
		feed.Title, feed.Description, feed.SiteURL, feed.IsActive,
		feed.ErrorCount, feed.LastError, feed.ETag, feed.LastModified,
		feed.LastFetchedAt, feed.LastSuccessfulFetchAt, feed.UpdatedAt, feed.ID,
	)
	if err != nil {
		return fmt.Errorf("Update: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("Update: no rows affected")
	}
	return nil
}

func (r *FeedRepo) MarkError(ctx context.Context, id int64, now time.Time, errMsg string) error {
	const query = `
UPDATE feeds SET
       error_count = error_count + 1,
       last_error = ?,
       last_fetched_at = ?,
       updated_at = ?,
       is_active = CASE WHEN error_count + 1 >= 10 THEN 0 ELSE is_active END
WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query, errMsg, now, now, id)
	if err != nil {
		return fmt.Errorf("MarkError: %w", err)
	}
	return nil
}

func (r *FeedRepo) MarkSuccess(ctx context.Context, id int64, now time.Time, etag, lastModified string) error {
	const query = `
UPDATE feeds SET
       error_count = 0, last_error = '',
       etag = ?, last_modified = ?,
       last_fetched_at = ?, last_successful_fetch_at = ?, updated_at = ?
WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query, etag, lastModified, now, now, now, id)
	if err != nil {
		return fmt.Errorf("MarkSuccess: %w", err)
	}
	return nil
}

func (r *FeedRepo) Delete(ctx context.Context, id int64) error {
	const query = `DELETE FROM feeds WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("Delete: no rows affected")
	}
	return nil
}
