package database

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/kbukum/gotemplate/component"
	"github.com/kbukum/gotemplate/logger"
)

// StartHook runs after the pool is open, for example to apply migrations.
type StartHook func(ctx context.Context, db *DB) error

// Component manages the pool's lifecycle in a component.Registry.
type Component struct {
	cfg     Config
	log     *logger.Logger
	db      *DB
	plugins []gorm.Plugin
	hooks   []StartHook
}

var (
	_ component.Component   = (*Component)(nil)
	_ component.Describable = (*Component)(nil)
)

// NewComponent creates a database component.
func NewComponent(cfg Config, log *logger.Logger) *Component {
	cfg.ApplyDefaults()
	return &Component{cfg: cfg, log: log.WithComponent("database")}
}

// WithPlugins registers gorm plugins on the pool when it opens.
func (c *Component) WithPlugins(plugins ...gorm.Plugin) *Component {
	c.plugins = append(c.plugins, plugins...)
	return c
}

// OnStart adds a hook that runs once the pool is open.
func (c *Component) OnStart(hook StartHook) *Component {
	c.hooks = append(c.hooks, hook)
	return c
}

// DB returns the pool, or nil before Start.
func (c *Component) DB() *DB {
	return c.db
}

func (c *Component) Name() string { return "database" }

// Start opens the pool and runs the start hooks.
func (c *Component) Start(ctx context.Context) error {
	db, err := Open(ctx, c.cfg, c.log, c.plugins...)
	if err != nil {
		return fmt.Errorf("database start: %w", err)
	}
	c.db = db
	for _, hook := range c.hooks {
		if err := hook(ctx, db); err != nil {
			return fmt.Errorf("database start hook: %w", err)
		}
	}
	return nil
}

// Stop closes the pool.
func (c *Component) Stop(_ context.Context) error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

// Health pings the pool.
func (c *Component) Health(ctx context.Context) component.Health {
	h := component.Health{Name: c.Name()}
	if c.db == nil {
		h.Status = component.StatusUnhealthy
		h.Message = "database not initialized"
		return h
	}
	if err := c.db.PingContext(ctx); err != nil {
		h.Status = component.StatusUnhealthy
		h.Message = fmt.Sprintf("ping failed: %v", err)
		return h
	}
	stats := c.db.Stats()
	h.Status = component.StatusHealthy
	h.Message = fmt.Sprintf("open=%d in_use=%d idle=%d", stats.OpenConnections, stats.InUse, stats.Idle)
	return h
}

// Describe reports the driver and pool size.
func (c *Component) Describe() component.Description {
	driver, _, _ := ParseDSN(c.cfg.DSN)
	return component.Description{
		Name:    "Database",
		Type:    "database",
		Details: fmt.Sprintf("%s pool=%d/%d", driver, c.cfg.MaxOpenConns, c.cfg.MaxIdleConns),
	}
}
