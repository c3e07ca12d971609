package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
	"github.com/rentledger/backend/internal/domain/shared"
)

// RedisLocker holds per-key leases in Redis so writers on different replicas serialize.
type RedisLocker struct {
	client    *redislock.Client
	ttl       time.Duration
	retry     redislock.RetryStrategy
	keyPrefix string
}

// RedisLockerConfig tunes lease length and the obtain retry budget
type RedisLockerConfig struct {
	TTL           time.Duration
	RetryCount    int
	RetryInterval time.Duration
	KeyPrefix     string
}

// NewRedisLocker creates a locker on an existing go-redis client
func NewRedisLocker(client redis.UniversalClient, cfg RedisLockerConfig) *RedisLocker {
	if cfg.TTL <= 0 {
		cfg.TTL = 30 * time.Second
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = 100 * time.Millisecond
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "rentledger:lock:"
	}
	retry := redislock.NoRetry()
	if cfg.RetryCount > 0 {
		retry = redislock.LimitRetry(redislock.LinearBackoff(cfg.RetryInterval), cfg.RetryCount)
	}
	return &RedisLocker{
		client:    redislock.New(client),
		ttl:       cfg.TTL,
		retry:     retry,
		keyPrefix: cfg.KeyPrefix,
	}
}

// Lock obtains the lease for key, retrying within the configured budget
func (l *RedisLocker) Lock(ctx context.Context, key string) (shared.Lock, error) {
	lk, err := l.client.Obtain(ctx, l.keyPrefix+key, l.ttl, &redislock.Options{RetryStrategy: l.retry})
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, shared.NewConflictError("resource %s is busy, retry the operation", key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to obtain lock %s: %w", key, err)
	}
	return &redisLock{lock: lk}, nil
}

type redisLock struct {
	lock *redislock.Lock
}

func (h *redisLock) Release(ctx context.Context) error {
	err := h.lock.Release(ctx)
	if errors.Is(err, redislock.ErrLockNotHeld) {
		return nil
	}
	return err
}

var _ shared.Locker = (*RedisLocker)(nil)
