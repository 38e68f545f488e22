// Package janitor implements two independent periodic DELETE tasks that
// purge stale FeedEntry and SentReceipt rows, decoupled from the dispatch
// cycle so a slow cleanup never blocks fetch/dispatch.
package janitor

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// EntryPurger is the narrow interface the Janitor needs from the Store's
// FeedEntry repository.
type EntryPurger interface {
	DeleteOlderThan(ctx context.Context, retentionDays int) (int64, error)
}

// ReceiptPurger is the narrow interface the Janitor needs from the Store's
// SentReceipt repository.
type ReceiptPurger interface {
	DeleteOlderThan(ctx context.Context, retentionDays int) (int64, error)
}

// Config controls retention for both purge tasks.
type Config struct {
	// EntryRetentionDays is how long a FeedEntry row is kept after its
	// created_at before the Janitor purges it.
	EntryRetentionDays int
	// ReceiptRetentionDays is how long a SentReceipt row is kept after its
	// sent_at before the Janitor purges it. Defaults to the same window as
	// entry retention.
	ReceiptRetentionDays int
}

// DefaultConfig returns the engine's default retention window (7 days).
func DefaultConfig() Config {
	return Config{
		EntryRetentionDays:   7,
		ReceiptRetentionDays: 7,
	}
}

// Service runs the two purge tasks. Each is a single bounded DELETE
// statement run in its own transaction, independent of the other.
type Service struct {
	entryRepo   EntryPurger
	receiptRepo ReceiptPurger
	config      Config
}

// NewService builds a Janitor.
func NewService(entryRepo EntryPurger, receiptRepo ReceiptPurger, config Config) *Service {
	return &Service{entryRepo: entryRepo, receiptRepo: receiptRepo, config: config}
}

// Result summarizes one RunCleanup invocation.
type Result struct {
	EntriesDeleted  int64
	ReceiptsDeleted int64
	Duration        time.Duration
}

// RunCleanup purges FeedEntry rows older than EntryRetentionDays and
// SentReceipt rows older than ReceiptRetentionDays. The two purges are
// independent: a failure in one does not prevent the other from running,
// but both errors (if any) are returned together.
func (s *Service) RunCleanup(ctx context.Context) (*Result, error) {
	start := time.Now()
	result := &Result{}

	entriesDeleted, entryErr := s.entryRepo.DeleteOlderThan(ctx, s.config.EntryRetentionDays)
	if entryErr != nil {
		slog.Error("janitor: feed entry purge failed", slog.Any("error", entryErr))
	} else {
		result.EntriesDeleted = entriesDeleted
	}

	receiptsDeleted, receiptErr := s.receiptRepo.DeleteOlderThan(ctx, s.config.ReceiptRetentionDays)
	if receiptErr != nil {
		slog.Error("janitor: sent receipt purge failed", slog.Any("error", receiptErr))
	} else {
		result.ReceiptsDeleted = receiptsDeleted
	}

	result.Duration = time.Since(start)

	if entryErr != nil || receiptErr != nil {
		return result, fmt.Errorf("janitor cleanup: entry purge err=%v, receipt purge err=%v", entryErr, receiptErr)
	}

	slog.Info("janitor cleanup completed",
		slog.Int64("entries_deleted", result.EntriesDeleted),
		slog.Int64("receipts_deleted", result.ReceiptsDeleted),
		slog.Duration("duration", result.Duration))

	return result, nil
}
