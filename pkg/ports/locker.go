package ports

import (
	"context"
	"time"
)

// UnlockFunc is a function that releases a distributed lock.
type UnlockFunc func(ctx context.Context) error

// DistributedLocker defines the interface for distributed concurrency control.
// It lets several engine replicas compile and save the same pipeline id
// without overwriting each other half-way.
type DistributedLocker interface {
	// Lock attempts to acquire a distributed lock for the given key (e.g., pipeline ID).
	// It blocks until the lock is acquired or the context is canceled. The
	// lock expires after ttl if it is never released.
	// Returns an UnlockFunc that MUST be called to release the lock.
	Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}
