package app

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"

	"github.com/kbukum/gotemplate/logger"
	"github.com/kbukum/gotemplate/music"
	"github.com/kbukum/gotemplate/observability"
	"github.com/kbukum/gotemplate/server/endpoint"
	"github.com/kbukum/gotemplate/server/middleware"
	"github.com/kbukum/gotemplate/validation"
)

var bindingOnce sync.Once

// Application builds the HTTP handler of the service. Handler can be
// called once per database handle, so tests serve each request through
// their own transaction.
type Application struct {
	cfg      *Config
	log      *logger.Logger
	metrics  *middleware.HTTPMetrics
	otel     *observability.Metrics
	gatherer prometheus.Gatherer
	health   endpoint.HealthChecker
	describe endpoint.Describer
	music    *music.Handler
}

// Option configures an Application.
type Option func(*Application)

// WithRegistry registers HTTP metrics with reg and serves it on /metrics.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(a *Application) {
		a.gatherer = reg
	}
}

// WithHealth sets the component health and description sources behind
// /health, /ready and /info.
func WithHealth(checker endpoint.HealthChecker, describe endpoint.Describer) Option {
	return func(a *Application) {
		a.health = checker
		a.describe = describe
	}
}

// New creates the application. Without WithRegistry, metrics go to the
// default Prometheus registry.
func New(cfg *Config, log *logger.Logger, opts ...Option) (*Application, error) {
	bindingOnce.Do(func() { binding.Validator = validation.GinValidator{} })

	a := &Application{cfg: cfg, log: log}
	for _, opt := range opts {
		opt(a)
	}

	var reg prometheus.Registerer = prometheus.DefaultRegisterer
	if r, ok := a.gatherer.(*prometheus.Registry); ok {
		reg = r
	} else {
		a.gatherer = prometheus.DefaultGatherer
	}
	metrics, err := middleware.NewHTTPMetrics(reg)
	if err != nil {
		return nil, err
	}
	a.metrics = metrics
	if cfg.Meter.Enabled {
		if a.otel, err = observability.NewMetrics(nil); err != nil {
			return nil, err
		}
	}
	a.music = music.NewHandler(log)
	return a, nil
}

// Handler returns the gin engine serving the API on db. Mutating music
// requests run in a transaction (a savepoint when db is one).
func (a *Application) Handler(db *gorm.DB) http.Handler {
	engine := gin.New()
	engine.Use(
		middleware.Recovery(a.log),
		middleware.RequestID(),
	)
	if a.cfg.Tracing.Enabled {
		engine.Use(observability.HTTPTracing(nil))
	}
	if a.otel != nil {
		engine.Use(observability.HTTPMetrics(a.otel))
	}
	engine.Use(
		a.metrics.Handler(),
		middleware.GinCORS(a.cfg.Server.CORS),
		middleware.GinBodySizeLimit(a.cfg.Server.MaxBodySize),
		middleware.RequestLogger(a.log),
	)

	engine.GET("/health", endpoint.Health(a.cfg.Environment, a.health))
	engine.GET("/alive", endpoint.Liveness())
	engine.GET("/ready", endpoint.Readiness(a.health))
	engine.GET("/info", endpoint.Info(a.cfg.Name, a.describe))
	engine.GET("/version", endpoint.Version())
	engine.GET("/metrics", endpoint.Metrics(a.gatherer))

	api := engine.Group("/api/music", middleware.Atomic(db, a.log))
	a.music.Register(api)
	return engine
}
