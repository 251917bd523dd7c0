package database

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/kbukum/gotemplate/logger"
	"github.com/kbukum/gotemplate/resilience"
)

// DB wraps a gorm pool with the service's logging and query counting.
type DB struct {
	GormDB *gorm.DB
	Driver Driver
	log    *logger.Logger
	cfg    Config
	mu     sync.Mutex
	closed bool
}

// Open connects to cfg.DSN, retrying with exponential backoff until the
// pool answers a ping or MaxRetries attempts fail.
func Open(ctx context.Context, cfg Config, log *logger.Logger, plugins ...gorm.Plugin) (*DB, error) {
	cfg.ApplyDefaults()
	driver, _, err := ParseDSN(cfg.DSN)
	if err != nil {
		return nil, err
	}
	dialector, err := Dialector(cfg.DSN)
	if err != nil {
		return nil, err
	}

	policy := resilience.Policy{
		Attempts: cfg.MaxRetries,
		Delay:    time.Second,
		MaxDelay: 10 * time.Second,
		Factor:   2,
		OnRetry: func(attempt int, err error, wait time.Duration) {
			log.Warn("Database connection attempt failed, retrying", logger.Fields(
				"attempt", attempt, logger.FieldError, err.Error(), "backoff", wait.String()))
		},
	}
	gdb, err := resilience.Retry(ctx, policy, func(ctx context.Context, attempt int) (*gorm.DB, error) {
		gdb, err := openOnce(ctx, dialector, cfg, log, plugins)
		if err == nil {
			log.Info("Database connection established", logger.Fields(
				"driver", string(driver), "attempt", attempt))
		}
		return gdb, err
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	return &DB{GormDB: gdb, Driver: driver, log: log, cfg: cfg}, nil
}

func openOnce(ctx context.Context, dialector gorm.Dialector, cfg Config, log *logger.Logger, plugins []gorm.Plugin) (*gorm.DB, error) {
	slow, _ := time.ParseDuration(cfg.SlowQueryThreshold)
	gdb, err := gorm.Open(dialector, &gorm.Config{
		Logger: NewGormLogger(log, slow, parseLogLevel(cfg.LogLevel)),
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	configurePool(sqlDB, cfg)

	for _, p := range plugins {
		if err := gdb.Use(p); err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("register gorm plugin %s: %w", p.Name(), err)
		}
	}
	return gdb, nil
}

func configurePool(sqlDB *sql.DB, cfg Config) {
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	if d, err := time.ParseDuration(cfg.ConnMaxLifetime); err == nil {
		sqlDB.SetConnMaxLifetime(d)
	}
	if d, err := time.ParseDuration(cfg.ConnMaxIdleTime); err == nil {
		sqlDB.SetConnMaxIdleTime(d)
	}
}

// Close closes the pool. Safe to call more than once.
func (d *DB) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	sqlDB, err := d.GormDB.DB()
	if err != nil {
		return err
	}
	d.closed = true
	d.log.Info("Closing database connection")
	return sqlDB.Close()
}

// SQLDB returns the underlying pool.
func (d *DB) SQLDB() (*sql.DB, error) {
	return d.GormDB.DB()
}

// PingContext checks that the pool can reach the store.
func (d *DB) PingContext(ctx context.Context) error {
	sqlDB, err := d.GormDB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Stats returns pool statistics.
func (d *DB) Stats() sql.DBStats {
	sqlDB, err := d.GormDB.DB()
	if err != nil {
		return sql.DBStats{}
	}
	return sqlDB.Stats()
}

// WithContext returns a gorm session bound to ctx.
func (d *DB) WithContext(ctx context.Context) *gorm.DB {
	return d.GormDB.WithContext(ctx)
}

// WithTransaction runs fn in a transaction, committing when fn returns nil.
// When db is already inside a transaction gorm turns this into a savepoint,
// so callers compose without knowing whether an outer transaction exists.
func WithTransaction(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	return db.WithContext(ctx).Transaction(fn)
}

// WithTransaction runs fn in a transaction on the pool.
func (d *DB) WithTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return WithTransaction(ctx, d.GormDB, fn)
}
