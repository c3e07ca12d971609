package lock

import (
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rentledger/backend/internal/domain/shared"
	"github.com/rentledger/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// New builds the locker selected by cfg.Backend. The redis backend requires client.
func New(cfg config.LockConfig, client redis.UniversalClient, logger *zap.Logger) (shared.Locker, error) {
	switch cfg.Backend {
	case "redis":
		if client == nil {
			return nil, fmt.Errorf("lock backend redis requires a redis client")
		}
		logger.Info("Using Redis tenancy locker",
			zap.Duration("ttl", cfg.TTL),
			zap.Int("retry_count", cfg.RetryCount),
		)
		return NewRedisLocker(client, RedisLockerConfig{
			TTL:           cfg.TTL,
			RetryCount:    cfg.RetryCount,
			RetryInterval: cfg.RetryInterval,
		}), nil
	case "", "local":
		wait := cfg.RetryInterval * durationMultiplier(cfg.RetryCount)
		logger.Info("Using in-process tenancy locker", zap.Duration("max_wait", wait))
		return NewLocalLocker(wait), nil
	default:
		return nil, fmt.Errorf("unknown lock backend %q", cfg.Backend)
	}
}

func durationMultiplier(retries int) time.Duration {
	return time.Duration(retries + 1)
}
