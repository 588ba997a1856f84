package shared

import (
	"context"
	"time"
)

// IdempotencyStore records keys that must only be acted on once within a TTL.
// It backs the campaign run lock and the birthday reminder double-send guard.
type IdempotencyStore interface {
	// MarkProcessed marks a key as processed with a TTL.
	// Returns true if the key was newly marked, false if it was already present.
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// IsProcessed checks if a key has already been marked
	IsProcessed(ctx context.Context, key string) (bool, error)

	// Forget removes a key so it can be marked again
	Forget(ctx context.Context, key string) error

	// Close closes the store and releases resources
	Close() error
}
