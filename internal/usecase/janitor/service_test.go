package janitor

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEntryRepo struct {
	deleted int64
	err     error
	calls   int
}

func (r *fakeEntryRepo) DeleteOlderThan(_ context.Context, _ int) (int64, error) {
	r.calls++
	if r.err != nil {
		return 0, r.err
	}
	return r.deleted, nil
}

type fakeReceiptRepo struct {
	deleted int64
	err     error
	calls   int
}

func (r *fakeReceiptRepo) DeleteOlderThan(_ context.Context, _ int) (int64, error) {
	r.calls++
	if r.err != nil {
		return 0, r.err
	}
	return r.deleted, nil
}

func TestService_RunCleanup_Success(t *testing.T) {
	entries := &fakeEntryRepo{deleted: 12}
	receipts := &fakeReceiptRepo{deleted: 7}
	svc := NewService(entries, receipts, DefaultConfig())

	result, err := svc.RunCleanup(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 12, result.EntriesDeleted)
	assert.EqualValues(t, 7, result.ReceiptsDeleted)
	assert.Equal(t, 1, entries.calls)
	assert.Equal(t, 1, receipts.calls)
}

func TestService_RunCleanup_EntryPurgeFailsDoesNotSkipReceiptPurge(t *testing.T) {
	entries := &fakeEntryRepo{err: errors.New("db error")}
	receipts := &fakeReceiptRepo{deleted: 3}
	svc := NewService(entries, receipts, DefaultConfig())

	result, err := svc.RunCleanup(context.Background())
	require.Error(t, err)
	assert.EqualValues(t, 0, result.EntriesDeleted)
	assert.EqualValues(t, 3, result.ReceiptsDeleted)
	assert.Equal(t, 1, receipts.calls, "receipt purge must still run when entry purge fails")
}

func TestService_RunCleanup_ReceiptPurgeFailsStillRunsEntryPurge(t *testing.T) {
	entries := &fakeEntryRepo{deleted: 5}
	receipts := &fakeReceiptRepo{err: errors.New("db error")}
	svc := NewService(entries, receipts, DefaultConfig())

	result, err := svc.RunCleanup(context.Background())
	require.Error(t, err)
	assert.EqualValues(t, 5, result.EntriesDeleted)
	assert.Equal(t, 1, entries.calls)
}
