package shared

import "context"

// Lock is a held mutual-exclusion lease
type Lock interface {
	// Release gives the lease back. Releasing an expired lease is not an error.
	Release(ctx context.Context) error
}

// Locker grants exclusive leases on string keys.
// Lock fails with a CONCURRENCY_CONFLICT error when the key stays held past the
// locker's retry budget.
type Locker interface {
	Lock(ctx context.Context, key string) (Lock, error)
}
