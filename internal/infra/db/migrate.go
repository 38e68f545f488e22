package db

import "database/sql"

// MigrateUp creates the schema for the configured driver: feeds,
// feed_entries, subscriptions and sent_receipts, plus their supporting
// indexes.
func MigrateUp(db *sql.DB, driver string) error {
	if driver == "sqlite" {
		return migrateUpSQLite(db)
	}
	return migrateUpPostgres(db)
}

// MigrateDown drops the tables created by MigrateUp, in dependency order.
// Use with caution: this deletes all data in the affected tables.
func MigrateDown(db *sql.DB, driver string) error {
	if driver == "sqlite" {
		return migrateDownSQLite(db)
	}
	return migrateDownPostgres(db)
}

func migrateUpPostgres(db *sql.DB) error {
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS feeds (
    id                        SERIAL PRIMARY KEY,
    url                       TEXT NOT NULL UNIQUE,
    title                     TEXT NOT NULL DEFAULT '',
    description               TEXT NOT NULL DEFAULT '',
    site_url                  TEXT NOT NULL DEFAULT '',
    is_active                 BOOLEAN NOT NULL DEFAULT TRUE,
    error_count               INT NOT NULL DEFAULT 0,
    last_error                TEXT NOT NULL DEFAULT '',
    etag                      TEXT NOT NULL DEFAULT '',
    last_modified             TEXT NOT NULL DEFAULT '',
    last_fetched_at           TIMESTAMPTZ,
    last_successful_fetch_at  TIMESTAMPTZ,
    created_at                TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at                TIMESTAMPTZ NOT NULL DEFAULT now()
)`); err != nil {
		return err
	}

	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS feed_entries (
    id                    SERIAL PRIMARY KEY,
    feed_id               INTEGER NOT NULL REFERENCES feeds(id) ON DELETE CASCADE,
    guid                  TEXT NOT NULL,
    title                 TEXT NOT NULL DEFAULT '',
    link                  TEXT NOT NULL DEFAULT '',
    summary               TEXT NOT NULL DEFAULT '',
    content               TEXT NOT NULL DEFAULT '',
    author                TEXT NOT NULL DEFAULT '',
    published_at          TIMESTAMPTZ,
    image_url             TEXT NOT NULL DEFAULT '',
    title_translated      TEXT NOT NULL DEFAULT '',
    summary_translated    TEXT NOT NULL DEFAULT '',
    translation_language  TEXT NOT NULL DEFAULT '',
    is_sent               BOOLEAN NOT NULL DEFAULT FALSE,
    created_at            TIMESTAMPTZ NOT NULL DEFAULT now(),
    UNIQUE(feed_id, guid)
)`); err != nil {
		return err
	}

	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS subscriptions (
    id                    SERIAL PRIMARY KEY,
    platform              VARCHAR(32) NOT NULL,
    platform_channel_id   TEXT NOT NULL,
    platform_user_id      TEXT NOT NULL DEFAULT '',
    platform_guild_id     TEXT NOT NULL DEFAULT '',
    feed_id               INTEGER NOT NULL REFERENCES feeds(id) ON DELETE CASCADE,
    is_active             BOOLEAN NOT NULL DEFAULT TRUE,
    translate             BOOLEAN NOT NULL DEFAULT FALSE,
    target_language       VARCHAR(8) NOT NULL DEFAULT '',
    show_summary          BOOLEAN NOT NULL DEFAULT TRUE,
    show_image            BOOLEAN NOT NULL DEFAULT TRUE,
    created_at            TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at            TIMESTAMPTZ NOT NULL DEFAULT now(),
    UNIQUE(platform, platform_channel_id, feed_id)
)`); err != nil {
		return err
	}

	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS sent_receipts (
    id               SERIAL PRIMARY KEY,
    subscription_id  INTEGER NOT NULL REFERENCES subscriptions(id) ON DELETE CASCADE,
    entry_id         INTEGER NOT NULL REFERENCES feed_entries(id) ON DELETE CASCADE,
    sent_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
    UNIQUE(subscription_id, entry_id)
)`); err != nil {
		return err
	}

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_feeds_active ON feeds(is_active) WHERE is_active = TRUE`,
		`CREATE INDEX IF NOT EXISTS idx_feed_entries_feed_published ON feed_entries(feed_id, published_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_feed_entries_created_at ON feed_entries(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_subscriptions_channel ON subscriptions(platform, platform_channel_id)`,
		`CREATE INDEX IF NOT EXISTS idx_subscriptions_feed_id ON subscriptions(feed_id)`,
		`CREATE INDEX IF NOT EXISTS idx_subscriptions_active ON subscriptions(is_active) WHERE is_active = TRUE`,
		`CREATE INDEX IF NOT EXISTS idx_sent_receipts_subscription ON sent_receipts(subscription_id)`,
		`CREATE INDEX IF NOT EXISTS idx_sent_receipts_sent_at ON sent_receipts(sent_at)`,
	}
	for _, idx := range indexes {
		if _, err := db.Exec(idx); err != nil {
			return err
		}
	}

	return nil
}

func migrateDownPostgres(db *sql.DB) error {
	dropStatements := []string{
		`DROP TABLE IF EXISTS sent_receipts CASCADE`,
		`DROP TABLE IF EXISTS subscriptions CASCADE`,
		`DROP TABLE IF EXISTS feed_entries CASCADE`,
		`DROP TABLE IF EXISTS feeds CASCADE`,
	}
	for _, stmt := range dropStatements {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// migrateUpSQLite mirrors migrateUpPostgres's schema against the embedded
// single-file store. Differences from the postgres DDL: INTEGER PRIMARY KEY
// aliases sqlite's rowid so LastInsertId() resolves to the real id (a plain
// SERIAL-style column would not alias and would leave id NULL), DATETIME /
// CURRENT_TIMESTAMP replace TIMESTAMPTZ / now(), and booleans are plain
// INTEGER 0/1 columns -- sqlite has no native boolean type.
func migrateUpSQLite(db *sql.DB) error {
	if _, err := db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
		return err
	}

	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS feeds (
    id                        INTEGER PRIMARY KEY AUTOINCREMENT,
    url                       TEXT NOT NULL UNIQUE,
    title                     TEXT NOT NULL DEFAULT '',
    description               TEXT NOT NULL DEFAULT '',
    site_url                  TEXT NOT NULL DEFAULT '',
    is_active                 INTEGER NOT NULL DEFAULT 1,
    error_count               INTEGER NOT NULL DEFAULT 0,
    last_error                TEXT NOT NULL DEFAULT '',
    etag                      TEXT NOT NULL DEFAULT '',
    last_modified             TEXT NOT NULL DEFAULT '',
    last_fetched_at           DATETIME,
    last_successful_fetch_at  DATETIME,
    created_at                DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at                DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
)`); err != nil {
		return err
	}

	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS feed_entries (
    id                    INTEGER PRIMARY KEY AUTOINCREMENT,
    feed_id               INTEGER NOT NULL REFERENCES feeds(id) ON DELETE CASCADE,
    guid                  TEXT NOT NULL,
    title                 TEXT NOT NULL DEFAULT '',
    link                  TEXT NOT NULL DEFAULT '',
    summary               TEXT NOT NULL DEFAULT '',
    content               TEXT NOT NULL DEFAULT '',
    author                TEXT NOT NULL DEFAULT '',
    published_at          DATETIME,
    image_url             TEXT NOT NULL DEFAULT '',
    title_translated      TEXT NOT NULL DEFAULT '',
    summary_translated    TEXT NOT NULL DEFAULT '',
    translation_language  TEXT NOT NULL DEFAULT '',
    is_sent               INTEGER NOT NULL DEFAULT 0,
    created_at            DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    UNIQUE(feed_id, guid)
)`); err != nil {
		return err
	}

	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS subscriptions (
    id                    INTEGER PRIMARY KEY AUTOINCREMENT,
    platform              TEXT NOT NULL,
    platform_channel_id   TEXT NOT NULL,
    platform_user_id      TEXT NOT NULL DEFAULT '',
    platform_guild_id     TEXT NOT NULL DEFAULT '',
    feed_id               INTEGER NOT NULL REFERENCES feeds(id) ON DELETE CASCADE,
    is_active             INTEGER NOT NULL DEFAULT 1,
    translate             INTEGER NOT NULL DEFAULT 0,
    target_language       TEXT NOT NULL DEFAULT '',
    show_summary          INTEGER NOT NULL DEFAULT 1,
    show_image            INTEGER NOT NULL DEFAULT 1,
    created_at            DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at            DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    UNIQUE(platform, platform_channel_id, feed_id)
)`); err != nil {
		return err
	}

	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS sent_receipts (
    id               INTEGER PRIMARY KEY AUTOINCREMENT,
    subscription_id  INTEGER NOT NULL REFERENCES subscriptions(id) ON DELETE CASCADE,
    entry_id         INTEGER NOT NULL REFERENCES feed_entries(id) ON DELETE CASCADE,
    sent_at          DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    UNIQUE(subscription_id, entry_id)
)`); err != nil {
		return err
	}

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_feeds_active ON feeds(is_active) WHERE is_active = 1`,
		`CREATE INDEX IF NOT EXISTS idx_feed_entries_feed_published ON feed_entries(feed_id, published_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_feed_entries_created_at ON feed_entries(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_subscriptions_channel ON subscriptions(platform, platform_channel_id)`,
		`CREATE INDEX IF NOT EXISTS idx_subscriptions_feed_id ON subscriptions(feed_id)`,
		`CREATE INDEX IF NOT EXISTS idx_subscriptions_active ON subscriptions(is_active) WHERE is_active = 1`,
		`CREATE INDEX IF NOT EXISTS idx_sent_receipts_subscription ON sent_receipts(subscription_id)`,
		`CREATE INDEX IF NOT EXISTS idx_sent_receipts_sent_at ON sent_receipts(sent_at)`,
	}
	for _, idx := range indexes {
		if _, err := db.Exec(idx); err != nil {
			return err
		}
	}

	return nil
}

func migrateDownSQLite(db *sql.DB) error {
	dropStatements := []string{
		`DROP TABLE IF EXISTS sent_receipts`,
		`DROP TABLE IF EXISTS subscriptions`,
		`DROP TABLE IF EXISTS feed_entries`,
		`DROP TABLE IF EXISTS feeds`,
	}
	for _, stmt := range dropStatements {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
