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

// TestSentReceiptRepo_UnsentEntries_AntiJoin is the core dispatch query:
// it must select feed_entries for the feed that have no
// matching sent_receipts row for this subscription, newest first.
func TestSentReceiptRepo_UnsentEntries_AntiJoin(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	published := time.Now()
	want := &entity.FeedEntry{ID: 5, FeedID: 1, GUID: "g5", PublishedAt: &published}

	mock.ExpectQuery(`(?s)SELECT.*FROM feed_entries e.*NOT EXISTS.*FROM sent_receipts r.*r\.subscription_id = \$2 AND r\.entry_id = e\.id`).
		WithArgs(int64(1), int64(9), 10).
		WillReturnRows(entryRow(want))

	repo := postgres.NewSentReceiptRepo(db)
	got, err := repo.UnsentEntries(context.Background(), 9, 1, 10)
	if err != nil {
		t.Fatalf("UnsentEntries err=%v", err)
	}
	if len(got) != 1 {
		t.Fatalf("want 1 unsent entry, got %d", len(got))
	}
	if diff := cmp.Diff(want, got[0]); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestSentReceiptRepo_UnsentEntries_Empty(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(`FROM feed_entries e`).
		WithArgs(int64(1), int64(9), 10).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "feed_id", "guid", "title", "link", "summary", "content", "author", "published_at",
			"image_url", "title_translated", "summary_translated", "translation_language", "is_sent", "created_at",
		}))

	repo := postgres.NewSentReceiptRepo(db)
	got, err := repo.UnsentEntries(context.Background(), 9, 1, 10)
	if err != nil {
		t.Fatalf("UnsentEntries err=%v", err)
	}
	if len(got) != 0 {
		t.Fatalf("want no unsent entries, got %d", len(got))
	}
}

// TestSentReceiptRepo_Insert_IdempotentOnDuplicate covers the at-most-once
// delivery invariant: a second Insert for the same (subscription, entry)
// pair must be silently absorbed, not surfaced as an error.
func TestSentReceiptRepo_Insert_IdempotentOnDuplicate(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO sent_receipts`)).
		WithArgs(int64(9), int64(5), sqlmock.AnyArg()).
		WillReturnError(sql.ErrNoRows)

	repo := postgres.NewSentReceiptRepo(db)
	err := repo.Insert(context.Background(), &entity.SentReceipt{SubscriptionID: 9, EntryID: 5})
	if err != nil {
		t.Fatalf("want idempotent duplicate insert to succeed silently, got err=%v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestSentReceiptRepo_Insert_NewReceipt(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO sent_receipts`)).
		WithArgs(int64(9), int64(5), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(100)))

	repo := postgres.NewSentReceiptRepo(db)
	receipt := &entity.SentReceipt{SubscriptionID: 9, EntryID: 5}
	if err := repo.Insert(context.Background(), receipt); err != nil {
		t.Fatalf("Insert err=%v", err)
	}
	if receipt.ID != 100 {
		t.Fatalf("want id 100, got %d", receipt.ID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}
