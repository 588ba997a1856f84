package campaign

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Ledger is the drip deduplication store. The unique (member, type)
// constraint behind Reserve is what prevents a double send under
// overlapping runs; Exists is only a fast path.
type Ledger interface {
	// Exists reports whether any row exists for the pair
	Exists(ctx context.Context, memberID uuid.UUID, t Type) (bool, error)

	// Reserve claims the pair by inserting a pending row.
	// It returns false without error when the pair is already claimed.
	Reserve(ctx context.Context, memberID uuid.UUID, t Type) (bool, error)

	// MarkSent moves a pending row to sent
	MarkSent(ctx context.Context, memberID uuid.UUID, t Type) error

	// Release deletes a pending row after a failed send so a later run retries
	Release(ctx context.Context, memberID uuid.UUID, t Type) error

	// SweepStale deletes pending rows created before cutoff and returns how many
	SweepStale(ctx context.Context, cutoff time.Time) (int64, error)

	// Find returns the row for the pair
	Find(ctx context.Context, memberID uuid.UUID, t Type) (*Record, error)
}
