package shared

import (
	"context"
	"time"
)

// DefaultIdempotencyTTL is how long a committed request key is remembered.
const DefaultIdempotencyTTL = 24 * time.Hour

// IdempotencyStore remembers commit request keys so a retried commit does not
// post the same receipt twice.
type IdempotencyStore interface {
	// MarkProcessed claims key for ttl. It reports false if the key is already held.
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)
	IsProcessed(ctx context.Context, key string) (bool, error)
	// Forget releases a claimed key after the guarded commit failed.
	Forget(ctx context.Context, key string) error
	Close() error
}
