// Package bootstrap assembles the ledger's infrastructure and application
// services from configuration. The HTTP server and the operator CLI share it.
package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	rentapp "github.com/rentledger/backend/internal/application/rent"
	"github.com/rentledger/backend/internal/domain/shared"
	"github.com/rentledger/backend/internal/domain/shared/valueobject"
	"github.com/rentledger/backend/internal/infrastructure/cache"
	"github.com/rentledger/backend/internal/infrastructure/config"
	"github.com/rentledger/backend/internal/infrastructure/event"
	"github.com/rentledger/backend/internal/infrastructure/lock"
	"github.com/rentledger/backend/internal/infrastructure/logger"
	"github.com/rentledger/backend/internal/infrastructure/migration"
	"github.com/rentledger/backend/internal/infrastructure/persistence"
	"github.com/rentledger/backend/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// Options tune what Open starts
type Options struct {
	// Migrate brings the schema up to date before services are built:
	// AutoMigrate on sqlite, the embedded migrations on postgres.
	Migrate bool
	// Meter receives ledger metrics. Nil disables them.
	Meter metric.Meter
}

// Container holds the wired services and everything that must be closed with them
type Container struct {
	Config    *config.Config
	Logger    *zap.Logger
	DB        *persistence.Database
	Redis     redis.UniversalClient
	Locker    shared.Locker
	Store     shared.IdempotencyStore
	Bus       *event.InMemoryEventBus
	Directory *persistence.GormTenantDirectory

	Tenancies *rentapp.TenancyService
	Ledger    *rentapp.LedgerService

	closers []func() error
}

// Open connects the database and optional Redis, then builds the services.
// On error everything opened so far is closed.
func Open(ctx context.Context, cfg *config.Config, log *zap.Logger, opts Options) (c *Container, err error) {
	c = &Container{Config: cfg, Logger: log}
	defer func() {
		if err != nil {
			_ = c.Close()
			c = nil
		}
	}()

	if err = c.openDatabase(opts.Migrate); err != nil {
		return nil, err
	}
	if err = c.openRedis(ctx); err != nil {
		return nil, err
	}

	if c.Locker, err = lock.New(cfg.Lock, c.Redis, log); err != nil {
		return nil, err
	}

	factoryOpts := []cache.IdempotencyStoreFactoryOption{cache.WithLogger(log)}
	if c.Redis != nil {
		factoryOpts = append(factoryOpts, cache.WithClient(c.Redis))
	}
	if cfg.App.Env == "production" {
		factoryOpts = append(factoryOpts, cache.WithInMemoryFallback(false))
	}
	if c.Store, err = cache.NewIdempotencyStoreFactory(cfg.Redis, factoryOpts...).CreateStore(ctx, cfg.Idempotency.Backend); err != nil {
		return nil, err
	}
	c.closers = append(c.closers, c.Store.Close)

	idem := shared.IdempotencyConfig{Enabled: cfg.Idempotency.Enabled, TTL: cfg.Idempotency.TTL}

	c.Bus = event.NewInMemoryEventBus(log)
	audit := event.NewLedgerAuditHandler(log)
	c.Bus.Subscribe(event.NewIdempotentHandler(audit, c.Store, idem, log))
	if err = c.Bus.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start event bus: %w", err)
	}
	c.closers = append(c.closers, func() error { return c.Bus.Stop(context.Background()) })

	return c, c.buildServices(opts.Meter, idem)
}

func (c *Container) openDatabase(migrate bool) error {
	cfg, log := c.Config, c.Logger
	gormLog := logger.NewGormLogger(log, cfg.Log.Level, cfg.Database.SlowThreshold)
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		return err
	}
	c.DB = db
	c.closers = append(c.closers, db.Close)

	dbSystem := "postgresql"
	if cfg.Database.Driver == "sqlite" {
		dbSystem = "sqlite"
	}
	plugin := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
		Enabled:          cfg.Telemetry.DBTraceEnabled,
		SlowQueryThresh:  cfg.Telemetry.DBSlowQueryThresh,
		DBSystem:         dbSystem,
		WithoutVariables: !cfg.Telemetry.DBLogFullSQL,
	}, log)
	if err := plugin.Register(db.DB); err != nil {
		return fmt.Errorf("failed to register database tracing: %w", err)
	}

	log.Info("Database connected", zap.String("driver", cfg.Database.Driver))
	if !migrate {
		return nil
	}
	if cfg.Database.Driver == "sqlite" {
		return db.AutoMigrate()
	}
	return MigratePostgres(&cfg.Database, "", log)
}

// MigratePostgres applies migrations from dir (empty for the embedded schema)
// over a dedicated connection, since closing the migrator closes its database.
func MigratePostgres(cfg *config.DatabaseConfig, dir string, log *zap.Logger) error {
	sqlDB, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return fmt.Errorf("failed to open migration connection: %w", err)
	}
	m, err := migration.New(sqlDB, dir, log)
	if err != nil {
		_ = sqlDB.Close()
		return err
	}
	defer func() {
		if err := m.Close(); err != nil {
			log.Warn("Failed to close migrator", zap.Error(err))
		}
	}()
	return m.Up()
}

func (c *Container) openRedis(ctx context.Context) error {
	cfg := c.Config
	if cfg.Lock.Backend != "redis" && cfg.Idempotency.Backend != "redis" {
		return nil
	}
	client, err := cache.NewRedisClient(ctx, cache.RedisConfig{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		if cfg.Lock.Backend == "redis" {
			return err
		}
		// idempotency alone may fall back to memory
		c.Logger.Warn("Redis unavailable", zap.Error(err))
		return nil
	}
	c.Redis = client
	c.closers = append(c.closers, client.Close)
	c.Logger.Info("Redis connected", zap.String("addr", cfg.Redis.Addr()))
	return nil
}

func (c *Container) buildServices(meter metric.Meter, idem shared.IdempotencyConfig) error {
	cfg, log, db := c.Config, c.Logger, c.DB.DB

	currency, err := valueobject.ParseCurrency(cfg.Ledger.DefaultCurrency)
	if err != nil {
		return fmt.Errorf("ledger.default_currency: %w", err)
	}

	scope := persistence.NewGormTransactionScope(db)
	tenancyRepo := persistence.NewGormTenancyRepository(db)
	c.Directory = persistence.NewGormTenantDirectory(db)

	c.Tenancies = rentapp.NewTenancyService(scope, tenancyRepo, c.Locker, log.Named("tenancy"))
	c.Tenancies.SetDefaultCurrency(currency)
	c.Tenancies.SetEventPublisher(c.Bus)

	ledgerOpts := []rentapp.LedgerServiceOption{
		rentapp.WithTenantDirectory(c.Directory),
		rentapp.WithEventPublisher(c.Bus),
		rentapp.WithIdempotencyStore(c.Store, idem),
	}
	if meter != nil {
		metrics, err := telemetry.NewLedgerMetrics(meter)
		if err != nil {
			return err
		}
		ledgerOpts = append(ledgerOpts, rentapp.WithLedgerMetrics(metrics))
	}
	c.Ledger = rentapp.NewLedgerService(scope, tenancyRepo,
		persistence.NewGormPaymentRepository(db),
		persistence.NewGormReceiptRepository(db),
		c.Locker, log.Named("ledger"), ledgerOpts...)
	return nil
}

// Close releases resources in reverse order of acquisition
func (c *Container) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}
