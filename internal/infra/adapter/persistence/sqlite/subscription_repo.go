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

type SubscriptionRepo struct{ db *sql.DB }

func NewSubscriptionRepo(db *sql.DB) repository.SubscriptionRepository {
	return &SubscriptionRepo{db: db}
}

const subscriptionColumns = `id, platform, platform_channel_id, platform_user_id, platform_guild_id,
       feed_id, is_active, translate, target_language, show_summary, show_image, created_at, updated_at`

func scanSubscription(scanner interface{ Scan(...any) error }) (*entity.Subscription, error) {
	var s entity.Subscription
	if err := scanner.Scan(
		&s.ID, &s.Platform, &s.PlatformChannelID, &s.PlatformUserID, &s.PlatformGuildID,
		&s.FeedID, &s.IsActive, &s.Translate, &s.TargetLanguage, &s.ShowSummary, &s.ShowImage,
		&s.CreatedAt, &s.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SubscriptionRepo) Get(ctx context.Context, id int64) (*entity.Subscription, error) {
	query := fmt.Sprintf(`SELECT %s FROM subscriptions WHERE id = ? LIMIT 1`, subscriptionColumns)
	sub, err := scanSubscription(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return sub, nil
}

func (r *SubscriptionRepo) GetByBinding(ctx context.Context, platform, channelID string, feedID int64) (*entity.Subscription, error) {
	query := fmt.Sprintf(`
SELECT %s FROM subscriptions
WHERE platform = ? AND platform_channel_id = ? AND feed_id = ?
LIMIT 1`, subscriptionColumns)
	sub, err := scanSubscription(r.db.QueryRowContext(ctx, query, platform, channelID, feedID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetByBinding: %w", err)
	}
	return sub, nil
}

func (r *SubscriptionRepo) ListByChannel(ctx context.Context, platform, channelID string) ([]*entity.Subscription, error) {
	query := fmt.Sprintf(`SELECT %s FROM subscriptions WHERE platform = ? AND platform_channel_id = ? ORDER BY id ASC`, subscriptionColumns)
	return querySubscriptions(ctx, r.db, query, platform, channelID)
}

func (r *SubscriptionRepo) ListByFeed(ctx context.Context, feedID int64) ([]*entity.Subscription, error) {
	query := fmt.Sprintf(`SELECT %s FROM subscriptions WHERE feed_id = ? ORDER BY id ASC`, subscriptionColumns)
	return querySubscriptions(ctx, r.db, query, feedID)
}

func (r *SubscriptionRepo) ListAllActive(ctx context.Context) ([]*entity.Subscription, error) {
	query := fmt.Sprintf(`SELECT %s FROM subscriptions WHERE is_active = 1 ORDER BY id ASC`, subscriptionColumns)
	return querySubscriptions(ctx, r.db, query)
}

func querySubscriptions(ctx context.Context, db *sql.DB, query string, args ...any) ([]*entity.Subscription, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querySubscriptions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	subs := make([]*entity.Subscription, 0, 20)
	for rows.Next() {
		s, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("querySubscriptions: %w", err)
		}
		subs = append(subs, s)
	}
	return subs, rows.Err()
}

func (r *SubscriptionRepo) GetOrCreate(ctx context.Context, sub *entity.Subscription) (*entity.Subscription, bool, error) {
	existing, err := r.GetByBinding(ctx, sub.Platform, sub.PlatformChannelID, sub.FeedID)
	if err != nil {
		return nil, false, fmt.Errorf("GetOrCreate: %w", err)
	}
	if existing != nil {
		if !existing.IsActive {
			existing.IsActive = true
			existing.UpdatedAt = time.Now()
			const reactivate = `UPDATE subscriptions SET is_active = 1, updated_at = ? WHERE id = ?`
			if _, err := r.db.ExecContext(ctx, reactivate, existing.UpdatedAt, existing.ID); err != nil {
				return nil, false, fmt.Errorf("GetOrCreate: reactivate: %w", err)
			}
		}
		return existing, false, nil
	}

	now := time.Now()
	sub.IsActive = true
	sub.CreatedAt, sub.UpdatedAt = now, now
	const query = `
INSERT INTO subscriptions (platform, platform_channel_id, platform_user_id, platform_guild_id,
                            feed_id, is_active, translate, target_language, show_summary, show_image, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, query,
		sub.Platform, sub.PlatformChannelID, sub.PlatformUserID, sub.PlatformGuildID,
		sub.FeedID, sub.IsActive, sub.Translate, sub.TargetLanguage, sub.ShowSummary, sub.ShowImage,
		sub.CreatedAt, sub.UpdatedAt,
	)
	if err != nil {
		return nil, false, fmt.Errorf("GetOrCreate: insert: %w", err)
	}
	sub.ID, err = res.LastInsertId()
	if err != nil {
		return nil, false, fmt.Errorf("GetOrCreate: %w", err)
	}
	return sub, true, nil
}

func (r *SubscriptionRepo) UpdateSettings(ctx context.Context, sub *entity.Subscription) error {
	sub.UpdatedAt = time.Now()
	const query = `
UPDATE subscriptions SET
       translate = ?, target_language = ?, show_summary = ?, show_image = ?, updated_at = ?
WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query, sub.Translate, sub.TargetLanguage, sub.ShowSummary, sub.ShowImage, sub.UpdatedAt, sub.ID)
	if err != nil {
		return fmt.Errorf("UpdateSettings: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("UpdateSettings: no rows affected")
	}
	return nil
}

func (r *SubscriptionRepo) Deactivate(ctx context.Context, id int64) error {
	const query = `UPDATE subscriptions SET is_active = 0, updated_at = ? WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query, time.Now(), id)
	if err != nil {
		return fmt.Errorf("Deactivate: %w", err)
	}
	return nil
}

func (r *SubscriptionRepo) Delete(ctx context.Context, id int64) error {
	const query = `DELETE FROM subscriptions WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("Delete: no rows affected")
	}
	return nil
}

func (r *SubscriptionRepo) CountByChannel(ctx context.Context, platform, channelID string) (int, error) {
	const query = `SELECT COUNT(*) FROM subscriptions WHERE platform = ? AND platform_channel_id = ? AND is_active = 1`
	var count int
	err := r.db.QueryRowContext(ctx, query, platform, channelID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("CountByChannel: %w", err)
	}
	return count, nil
}
