package bootstrap

import (
	"context"
	"fmt"

	"github.com/api-sage/account-ledger/src/internal/adapter/repository/implementations"
	"github.com/api-sage/account-ledger/src/internal/adapter/repository/memory"
	"github.com/api-sage/account-ledger/src/internal/adapter/repository/repo_interfaces"
	"github.com/api-sage/account-ledger/src/internal/adapter/repository/resilience"
	"github.com/api-sage/account-ledger/src/internal/config"
	"github.com/api-sage/account-ledger/src/internal/logger"
	"github.com/api-sage/account-ledger/src/internal/metrics"
)

type storeOptions struct {
	skipMigrations bool
}

type Option func(*storeOptions)

// SkipMigrations opens Postgres against the schema as it is. Read-only
// tools use it so they never change the database.
func SkipMigrations() Option {
	return func(o *storeOptions) {
		o.skipMigrations = true
	}
}

// OpenStore builds the configured LedgerStore behind the resilience layer.
// For Postgres it connects, applies pending migrations unless told not to,
// and returns a close func releasing the pool.
func OpenStore(ctx context.Context, cfg config.Config, collector metrics.Collector, opts ...Option) (repo_interfaces.LedgerStore, func() error, error) {
	var options storeOptions
	for _, opt := range opts {
		opt(&options)
	}

	var (
		store   repo_interfaces.LedgerStore
		closeFn = func() error { return nil }
	)

	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		logger.Warn("using in-memory ledger store; data is lost on exit", nil)
		store = memory.NewLedgerStore()
	case config.StoreDriverPostgres:
		db, err := implementations.Open(ctx, cfg.DatabaseDSN)
		if err != nil {
			return nil, nil, err
		}
		if options.skipMigrations {
			logger.Info("skipping migrations for this store", nil)
		} else if err := implementations.RunMigrations(ctx, db, cfg.MigrationsDir); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("run migrations: %w", err)
		}
		store = implementations.NewLedgerStore(db)
		closeFn = db.Close
	default:
		return nil, nil, fmt.Errorf("unsupported store driver %q", cfg.StoreDriver)
	}

	resilient := resilience.NewStore(store, resilience.Config{
		Name:        cfg.StoreDriver,
		Timeout:     cfg.StoreTimeout,
		MaxFailures: cfg.BreakerMaxFailures,
		OpenTimeout: cfg.BreakerOpenTimeout,
	}, collector)

	return resilient, closeFn, nil
}
