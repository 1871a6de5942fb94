// Package lock provides named mutual-exclusion locks with a TTL, used to
// serialize per-segment clip generation across workers. Any backend with
// atomic acquire-if-absent semantics satisfies the contract; in-process,
// Redis and Postgres implementations are provided.
package lock

import (
	"context"
	"fmt"
	"time"
)

// SegmentTTL bounds worst-case contention on a stuck generation.
const SegmentTTL = 120 * time.Second

// SegmentKey returns the lock name for one segment's generation.
func SegmentKey(segmentID int64) string {
	return fmt.Sprintf("segment_generation_%d", segmentID)
}

// Locker acquires and releases named TTL locks. Implementations must be
// safe for concurrent use.
type Locker interface {
	// Acquire attempts to take the lock. It returns false without error
	// when the lock is already held and unexpired.
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// Release frees the lock. Releasing a lock that is not held is a no-op.
	Release(ctx context.Context, key string) error
	// Held reports whether the lock is currently held and unexpired, by
	// anyone. Used to surface "generating" state without taking the lock.
	Held(ctx context.Context, key string) (bool, error)
}
