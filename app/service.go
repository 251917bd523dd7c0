package app

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kbukum/gotemplate/bootstrap"
	"github.com/kbukum/gotemplate/database"
	"github.com/kbukum/gotemplate/database/migration"
	"github.com/kbukum/gotemplate/logger"
	"github.com/kbukum/gotemplate/migrations"
	"github.com/kbukum/gotemplate/observability"
	"github.com/kbukum/gotemplate/server"
)

// Bootstrap assembles the running service: the database pool (migrated on
// start when configured), the tracer, the OTLP meter and, once those are
// up, the HTTP server.
func Bootstrap(cfg *Config, opts ...bootstrap.Option) (*bootstrap.App[*Config], error) {
	svc, err := bootstrap.NewApp(cfg, opts...)
	if err != nil {
		return nil, err
	}
	log := svc.Logger

	queries, err := database.NewQueryCounter(prometheus.DefaultRegisterer)
	if err != nil {
		return nil, fmt.Errorf("query counter: %w", err)
	}
	db := database.NewComponent(cfg.Database, log).WithPlugins(queries)
	if cfg.Tracing.Enabled {
		db.WithPlugins(observability.NewGormTracing(nil))
	}
	if cfg.Meter.Enabled {
		m, err := observability.NewMetrics(nil)
		if err != nil {
			return nil, fmt.Errorf("otel metrics: %w", err)
		}
		db.WithPlugins(observability.NewGormMetrics(m))
	}
	if cfg.Database.MigrateOnStart {
		db.OnStart(func(_ context.Context, d *database.DB) error {
			m, err := migration.New(d, migrations.FS, log)
			if err != nil {
				return err
			}
			return m.Up()
		})
	}

	if err := svc.RegisterComponent(observability.NewComponent(cfg.Tracing)); err != nil {
		return nil, err
	}
	if err := svc.RegisterComponent(observability.NewMeterComponent(cfg.Meter)); err != nil {
		return nil, err
	}
	if err := svc.RegisterComponent(db); err != nil {
		return nil, err
	}

	svc.OnConfigure(func(_ context.Context, a *bootstrap.App[*Config]) error {
		application, err := New(a.Cfg, a.Logger, WithHealth(a.Components.HealthAll, a.Components.Describe))
		if err != nil {
			return err
		}
		srv := server.New(a.Cfg.Server, application.Handler(db.DB().GormDB), a.Logger)
		return a.RegisterComponent(server.NewComponent(srv))
	})
	svc.OnReady(func(context.Context) error {
		if sc, ok := svc.Components.Get("http-server").(*server.Component); ok {
			log.Info("Serving music API", logger.Fields("addr", sc.Server().Addr(), "prefix", "/api/music"))
		}
		return nil
	})
	return svc, nil
}
