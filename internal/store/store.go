package store

import (
	"context"
	"time"

	"paygate/internal/model"
)

// Claim is an existing replay-guard entry binding a tx hash to an order.
type Claim struct {
	TxHash    string    `json:"tx_hash"`
	OrderID   int64     `json:"order_id"`
	Network   string    `json:"network"`
	CreatedAt time.Time `json:"created_at"`
}

// ClaimResult reports the outcome of an insert-if-absent claim attempt.
type ClaimResult struct {
	Claimed  bool
	Existing *Claim // set when the hash was already claimed
}

// ReplayGuard binds tx hashes to orders with at-most-once semantics. The
// uniqueness invariant must hold under concurrent callers across processes,
// so implementations delegate exclusion to their storage engine rather than
// checking then inserting.
type ReplayGuard interface {
	// TryClaim atomically claims the hash for the order. When the hash is
	// already bound, the result carries the existing claim and Claimed is
	// false, even if the existing claim is for the same order.
	TryClaim(ctx context.Context, txHash string, orderID int64, network string) (ClaimResult, error)
	// IsClaimed is a pure read; it returns nil when the hash is unclaimed.
	IsClaimed(ctx context.Context, txHash string) (*Claim, error)
	// Prune deletes claims older than the cutoff, returning the count.
	Prune(ctx context.Context, olderThan time.Time) (int64, error)
}

// RecordStore persists verification outcomes for auditability and
// idempotent re-reads.
type RecordStore interface {
	SaveRecord(ctx context.Context, rec model.VerificationRecord) error
	GetRecord(ctx context.Context, txHash string) (*model.VerificationRecord, error)
}

// Store is the combined persistence surface of the gateway.
type Store interface {
	ReplayGuard
	RecordStore
	Close()
}
