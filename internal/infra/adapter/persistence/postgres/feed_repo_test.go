package postgres_test

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/go-cmp/cmp"

	"newsflow-bridge/internal/domain/entity"
	"newsflow-bridge/internal/infra/adapter/persistence/postgres"
)

func feedRow(f *entity.Feed) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "url", "title", "description", "site_url", "is_active", "error_count", "last_error",
		"etag", "last_modified", "last_fetched_at", "last_successful_fetch_at", "created_at", "updated_at",
	}).AddRow(
		f.ID, f.URL, f.Title, f.Description, f.SiteURL, f.IsActive, f.ErrorCount, f.LastError,
		f.ETag, f.LastModified, f.LastFetchedAt, f.LastSuccessfulFetchAt, f.CreatedAt, f.UpdatedAt,
	)
}

func TestFeedRepo_Get(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	now := time.Now()
	want := &entity.Feed{ID: 1, URL: "https://example.com/rss.xml", IsActive: true, CreatedAt: now, UpdatedAt: now}

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id`)).
		WithArgs(int64(1)).
		WillReturnRows(feedRow(want))

	repo := postgres.NewFeedRepo(db)
	got, err := repo.Get(context.Background(), 1)
	if err != nil {
		t.Fatalf("Get err=%v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestFeedRepo_Get_NotFound(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id`)).
		WithArgs(int64(99)).
		WillReturnError(sql.ErrNoRows)

	repo := postgres.NewFeedRepo(db)
	got, err := repo.Get(context.Background(), 99)
	if err != nil {
		t.Fatalf("Get err=%v", err)
	}
	if got != nil {
		t.Fatalf("want nil feed, got %+v", got)
	}
}

// TestFeedRepo_GetOrCreate_ReturnsExisting covers the branch where GetOrCreate
// finds the row via GetByURL and never reaches the INSERT.
func TestFeedRepo_GetOrCreate_ReturnsExisting(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	existing := &entity.Feed{ID: 7, URL: "https://example.com/rss.xml", IsActive: true}
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id`)).
		WithArgs(existing.URL).
		WillReturnRows(feedRow(existing))

	repo := postgres.NewFeedRepo(db)
	got, created, err := repo.GetOrCreate(context.Background(), existing.URL)
	if err != nil {
		t.Fatalf("GetOrCreate err=%v", err)
	}
	if created {
		t.Fatal("want created=false for an existing url")
	}
	if diff := cmp.Diff(existing, got); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

// TestFeedRepo_GetOrCreate_CreatesNew covers the INSERT ... ON CONFLICT DO
// NOTHING RETURNING path when no existing row is found.
func TestFeedRepo_GetOrCreate_CreatesNew(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	url := "https://new.example.com/rss.xml"
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id`)).
		WithArgs(url).
		WillReturnError(sql.ErrNoRows)

	created := &entity.Feed{ID: 9, URL: url, IsActive: true}
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO feeds`)).
		WithArgs(url, sqlmock.AnyArg()).
		WillReturnRows(feedRow(created))

	repo := postgres.NewFeedRepo(db)
	got, wasCreated, err := repo.GetOrCreate(context.Background(), url)
	if err != nil {
		t.Fatalf("GetOrCreate err=%v", err)
	}
	if !wasCreated {
		t.Fatal("want created=true for a brand new url")
	}
	if got.ID != created.ID {
		t.Fatalf("want id %d, got %d", created.ID, got.ID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

// TestFeedRepo_MarkError_IssuesDeactivationClause verifies MarkError's
// single UPDATE carries both the increment and the 10-consecutive-failure
// deactivation CASE, since the threshold check happens server-side in SQL
// rather than in Go.
func TestFeedRepo_MarkError_IssuesDeactivationClause(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	now := time.Now()
	mock.ExpectExec(`(?s)UPDATE feeds SET.*error_count \+ 1 >= 10`).
		WithArgs("boom", now, int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := postgres.NewFeedRepo(db)
	if err := repo.MarkError(context.Background(), 1, now, "boom"); err != nil {
		t.Fatalf("MarkError err=%v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestFeedRepo_MarkSuccess_ResetsErrorStreak(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	now := time.Now()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE feeds SET`)).
		WithArgs("etag-1", "Mon", now, int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := postgres.NewFeedRepo(db)
	if err := repo.MarkSuccess(context.Background(), 5, now, "etag-1", "Mon"); err != nil {
		t.Fatalf("MarkSuccess err=%v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}
