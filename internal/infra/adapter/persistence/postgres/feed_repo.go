package postgres

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
	query := fmt.Sprintf(`SELECT %s FROM feeds WHERE id = $1 LIMIT 1`, feedColumns)
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
	query := fmt.Sprintf(`SELECT %s FROM feeds WHERE url = $1 LIMIT 1`, feedColumns)
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
	query := fmt.Sprintf(`SELECT %s FROM feeds WHERE is_active = TRUE ORDER BY id ASC`, feedColumns)
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
WHERE is_active = TRUE
AND (last_fetched_at IS NULL OR last_fetched_at < $1)
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
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
RETURNING id`
	return r.db.QueryRowContext(ctx, query,
		feed.URL, feed.Title, feed.Description, feed.SiteURL, feed.IsActive, feed.ErrorCount, feed.LastError,
		feed.ETag, feed.LastModified, feed.LastFetchedAt, feed.LastSuccessfulFetchAt, feed.CreatedAt, feed.UpdatedAt,
	).Scan(&feed.ID)
}

// GetOrCreate returns the existing feed for url, or inserts a new one under
// the unique constraint on feeds.url. The ON CONFLICT DO NOTHING + re-select
// pattern avoids a race between the existence check and the insert.
func (r *FeedRepo) GetOrCreate(ctx context.Context, url string) (*entity.Feed, bool, error) {
	existing, err := r.GetByURL(ctx, url)
	if err != nil {
		return nil, false, fmt.Errorf("GetOrCreate: %w", err)
	}
	if existing != nil {
		return existing, false, nil
	}

	now := time.Now()
	const query = `
INSERT INTO feeds (url, is_active, error_count, created_at, updated_at)
VALUES ($1, TRUE, 0, $2, $2)
ON CONFLICT (url) DO NOTHING
RETURNING id, url, title, description, site_url, is_active, error_count, last_error,
          etag, last_modified, last_fetched_at, last_successful_fetch_at, created_at, updated_at`
	feed, err := scanFeed(r.db.QueryRowContext(ctx, query, url, now))
	if errors.Is(err, sql.ErrNoRows) {
		// Lost the insert race; the row now exists.
		existing, err := r.GetByURL(ctx, url)
		if err != nil {
			return nil, false, fmt.Errorf("GetOrCreate: %w", err)
		}
		return existing, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("GetOrCreate: %w", err)
	}
	return feed, true, nil
}

func (r *FeedRepo) Update(ctx context.Context, feed *entity.Feed) error {
	feed.UpdatedAt = time.Now()
	const query = `
UPDATE feeds SET
       title = $1, description = $2, site_url = $3, is_active = $4,
       error_count = $5, last_error = $6, etag = $7, last_modified = $8,
       last_fetched_at = $9, last_successful_fetch_at = $10, updated_at = $11
WHERE id = $12`
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
       last_error = $1,
       last_fetched_at = $2,
       updated_at = $2,
       is_active = CASE WHEN error_count + 1 >= 10 THEN FALSE ELSE is_active END
WHERE id = $3`
	_, err := r.db.ExecContext(ctx, query, errMsg, now, id)
	if err != nil {
		return fmt.Errorf("MarkError: %w", err)
	}
	return nil
}

func (r *FeedRepo) MarkSuccess(ctx context.Context, id int64, now time.Time, etag, lastModified string) error {
	const query = `
UPDATE feeds SET
       error_count = 0, last_error = '',
       etag = $1, last_modified = $2,
       last_fetched_at = $3, last_successful_fetch_at = $3, updated_at = $3
WHERE id = $4`
	_, err := r.db.ExecContext(ctx, query, etag, lastModified, now, id)
	if err != nil {
		return fmt.Errorf("MarkSuccess: %w", err)
	}
	return nil
}

func (r *FeedRepo) Delete(ctx context.Context, id int64) error {
	const query = `DELETE FROM feeds WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("Delete: no rows affected")
	}
	return nil
}
