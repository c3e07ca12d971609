// Package integration runs the ledger against real PostgreSQL and Redis
// containers. The tests are skipped with -short.
package integration

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rentledger/backend/internal/bootstrap"
	"github.com/rentledger/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
)

var (
	sharedMu       sync.Mutex
	sharedPostgres *config.DatabaseConfig
	sharedRedis    *config.RedisConfig
)

func skipShort(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
}

// postgresConfig starts one migrated PostgreSQL container per package run
func postgresConfig(t *testing.T) config.DatabaseConfig {
	t.Helper()
	sharedMu.Lock()
	defer sharedMu.Unlock()
	if sharedPostgres != nil {
		return *sharedPostgres
	}

	ctx := context.Background()
	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("rentledger_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("ledger-test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "failed to start PostgreSQL container")

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	cfg := config.DatabaseConfig{
		Driver:          "postgres",
		Host:            host,
		Port:            port.Int(),
		User:            "postgres",
		Password:        "ledger-test",
		DBName:          "rentledger_test",
		SSLMode:         "disable",
		MaxOpenConns:    10,
		MaxIdleConns:    2,
		ConnMaxLifetime: 60,
		ConnMaxIdleTime: 30,
		SlowThreshold:   time.Second,
	}
	require.NoError(t, bootstrap.MigratePostgres(&cfg, "", zap.NewNop()))

	sharedPostgres = &cfg
	return cfg
}

// redisConfig starts one Redis container per package run
func redisConfig(t *testing.T) config.RedisConfig {
	t.Helper()
	sharedMu.Lock()
	defer sharedMu.Unlock()
	if sharedRedis != nil {
		return *sharedRedis
	}

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err, "failed to start Redis container")

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379/tcp")
	require.NoError(t, err)

	cfg := config.RedisConfig{Host: host, Port: port.Int()}
	sharedRedis = &cfg
	return cfg
}

// openReplica opens one service container against the shared database and
// Redis, standing in for one API replica.
func openReplica(t *testing.T) *bootstrap.Container {
	t.Helper()
	cfg := &config.Config{
		App:      config.AppConfig{Name: "rentledger", Env: "test"},
		Database: postgresConfig(t),
		Redis:    redisConfig(t),
		Lock: config.LockConfig{
			Backend:       "redis",
			TTL:           10 * time.Second,
			RetryCount:    100,
			RetryInterval: 20 * time.Millisecond,
		},
		Idempotency: config.IdempotencyConfig{Enabled: true, Backend: "redis", TTL: time.Hour},
		Ledger:      config.LedgerConfig{DefaultCurrency: "KES"},
	}
	c, err := bootstrap.Open(context.Background(), cfg, zap.NewNop(), bootstrap.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}
