package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers which result a client-supplied idempotency key produced,
// so a retried request can be answered without repeating its side effects.
type IdempotencyStore interface {
	// Remember associates key with value for ttl.
	// Returns false if the key was already present (the existing value is kept).
	Remember(ctx context.Context, key, value string, ttl time.Duration) (bool, error)

	// Lookup returns the value stored for key and whether it was found
	Lookup(ctx context.Context, key string) (string, bool, error)

	// Close closes the store and releases resources
	Close() error
}

// IdempotencyConfig holds configuration for idempotency handling
type IdempotencyConfig struct {
	// TTL is how long a key is remembered. Default: 24 hours
	TTL time.Duration

	// Enabled determines whether idempotency keys are honored. Default: true
	Enabled bool
}

// DefaultIdempotencyConfig returns the default idempotency configuration
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		TTL:     24 * time.Hour,
		Enabled: true,
	}
}
