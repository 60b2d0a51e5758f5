// Package storage holds the durable key-value entries behind the ledger and
// the audit log of ledger events.
package storage

import (
	"context"
	"time"
)

// BlobStore is a string-keyed store of opaque values. Implementations must be
// safe for concurrent use.
type BlobStore interface {
	// Get reports false when the key is absent.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte) error
	// PutMany writes every entry or none of them.
	PutMany(ctx context.Context, entries map[string][]byte) error
	// Delete of a missing key is not an error.
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context) ([]string, error)
}

// EventRecord is one row of the ledger audit log.
type EventRecord struct {
	ID            int64
	Type          string
	WalletID      string
	TransactionID string
	Amount        string
	Balance       string
	OccurredAt    time.Time
	ReceivedAt    time.Time
}

// EventFilter narrows ListEvents. Zero values match everything; Limit <= 0
// means no limit.
type EventFilter struct {
	WalletID string
	Since    time.Time
	Limit    int
}
