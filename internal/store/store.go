package store

import (
	"context"
	"errors"
	"time"
)

// TransactionIDPending marks a history record whose funding transaction has
// not been broadcast yet.
const TransactionIDPending = "pending"

var (
	// ErrNotFound is returned when no record exists for the given id.
	ErrNotFound = errors.New("history record not found")
)

// HistoryRecord is one row of the payout history. A record is inserted in a
// pending state when a payout is reserved, finalized with the real
// transaction id after broadcast, and deleted if the broadcast fails. Apart
// from the transaction id a record is never updated.
type HistoryRecord struct {
	ID            int64
	UserHash      string
	TransactionID string
	Amount        int64
	CreatedAt     time.Time
}

// HistoryStore is the durable ledger of payouts. Implementations must make
// ReservePending atomic: the record count is read and the pending record
// inserted without another reservation interleaving.
type HistoryStore interface {
	// Count returns the total number of history records, pending included.
	Count(ctx context.Context) (int64, error)
	// ReservePending inserts a pending record for userHash. The amount is
	// obtained by calling amountAt with the 1-based ordinal the new record
	// occupies (current count + 1), evaluated atomically with the insert.
	ReservePending(ctx context.Context, userHash string, amountAt func(ordinal int64) (int64, error)) (*HistoryRecord, error)
	// Finalize sets the record's transaction id to the broadcast id.
	Finalize(ctx context.Context, id int64, transactionID string) error
	// Delete removes a record entirely, freeing its ordinal slot.
	Delete(ctx context.Context, id int64) error
	// ExistsByUserHash reports whether any record exists for the hash.
	ExistsByUserHash(ctx context.Context, userHash string) (bool, error)
	// ListByUserHash returns the hash's records, newest first.
	ListByUserHash(ctx context.Context, userHash string) ([]*HistoryRecord, error)
	// Close releases the underlying resources.
	Close() error
}
