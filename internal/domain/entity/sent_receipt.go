package entity

import "time"

// SentReceipt is the per-subscription delivery ledger row. Its existence for
// (subscription_id, entry_id) proves the entry was observably delivered to
// that subscription's sink at some past time. At most one SentReceipt exists
// per (subscription, entry) pair.
type SentReceipt struct {
	ID             int64
	SubscriptionID int64
	EntryID        int64
	SentAt         time.Time
}
