package observability

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"gorm.io/gorm"

	"github.com/kbukum/gotemplate/logger"
)

const defaultMeterName = "github.com/kbukum/gotemplate/observability"

// MeterConfig configures OTLP metric export.
type MeterConfig struct {
	Enabled        bool   `yaml:"enabled" mapstructure:"enabled"`
	ServiceName    string `yaml:"service_name" mapstructure:"service_name"`
	ServiceVersion string `yaml:"service_version" mapstructure:"service_version"`
	Environment    string `yaml:"environment" mapstructure:"environment"`
	// Endpoint is the OTLP HTTP endpoint host:port, e.g. "localhost:4318".
	Endpoint string `yaml:"endpoint" mapstructure:"endpoint"`
	Insecure bool   `yaml:"insecure" mapstructure:"insecure"`
	// Interval is the export interval in seconds.
	Interval int `yaml:"interval" mapstructure:"interval"`
}

// ApplyDefaults fills unset fields.
func (c *MeterConfig) ApplyDefaults() {
	if c.Endpoint == "" {
		c.Endpoint = "localhost:4318"
	}
	if c.ServiceVersion == "" {
		c.ServiceVersion = "dev"
	}
	if c.Interval == 0 {
		c.Interval = 15
	}
}

// Validate checks the configuration.
func (c *MeterConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.ServiceName == "" {
		return fmt.Errorf("meter.service_name is required when metrics export is enabled")
	}
	if c.Interval < 0 {
		return fmt.Errorf("meter.interval must not be negative (got: %d)", c.Interval)
	}
	return nil
}

// InitMeter builds a provider exporting to the configured OTLP endpoint
// and installs it globally. Shut it down on exit.
func InitMeter(ctx context.Context, cfg MeterConfig) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	var readerOpts []sdkmetric.PeriodicReaderOption
	if cfg.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(time.Duration(cfg.Interval)*time.Second))
	}
	mp, err := NewMeterProvider(cfg, sdkmetric.NewPeriodicReader(exporter, readerOpts...))
	if err != nil {
		return nil, err
	}
	otel.SetMeterProvider(mp)

	logger.Info("Meter initialized", logger.Fields(
		"service", cfg.ServiceName,
		"endpoint", cfg.Endpoint,
		"interval", cfg.Interval,
	))
	return mp, nil
}

// NewMeterProvider creates a provider with the service resource reading
// through reader.
func NewMeterProvider(cfg MeterConfig, reader sdkmetric.Reader) (*sdkmetric.MeterProvider, error) {
	res, err := newResource(cfg.ServiceName, cfg.ServiceVersion, cfg.Environment)
	if err != nil {
		return nil, err
	}
	return sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader), sdkmetric.WithResource(res)), nil
}

// Metrics holds the service's OpenTelemetry instruments.
type Metrics struct {
	requestTotal    metric.Int64Counter
	requestDuration metric.Float64Histogram
	requestActive   metric.Int64UpDownCounter
	queryTotal      metric.Int64Counter
}

// NewMetrics creates the instruments on mp. mp may be nil for the global
// provider; instruments made before InitMeter follow the provider it
// installs.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter(defaultMeterName)

	requestTotal, err := meter.Int64Counter("http.server.requests",
		metric.WithDescription("Total number of HTTP requests"))
	if err != nil {
		return nil, fmt.Errorf("creating http.server.requests counter: %w", err)
	}
	requestDuration, err := meter.Float64Histogram("http.server.duration",
		metric.WithDescription("Duration of HTTP requests in seconds"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, fmt.Errorf("creating http.server.duration histogram: %w", err)
	}
	requestActive, err := meter.Int64UpDownCounter("http.server.active",
		metric.WithDescription("Number of HTTP requests in flight"))
	if err != nil {
		return nil, fmt.Errorf("creating http.server.active counter: %w", err)
	}
	queryTotal, err := meter.Int64Counter("db.queries",
		metric.WithDescription("Database statements by operation and table"))
	if err != nil {
		return nil, fmt.Errorf("creating db.queries counter: %w", err)
	}

	return &Metrics{
		requestTotal:    requestTotal,
		requestDuration: requestDuration,
		requestActive:   requestActive,
		queryTotal:      queryTotal,
	}, nil
}

// HTTPMetrics records every request on m.
func HTTPMetrics(m *Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		start := time.Now()
		m.requestActive.Add(ctx, 1)
		defer m.requestActive.Add(ctx, -1)

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		attrs := []attribute.KeyValue{
			attribute.String("method", c.Request.Method),
			attribute.String("route", route),
		}
		m.requestDuration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(attrs...))
		m.requestTotal.Add(ctx, 1, metric.WithAttributes(
			append(attrs, attribute.String("status", strconv.Itoa(c.Writer.Status())))...))
	}
}

// GormMetrics is a gorm plugin counting statements on Metrics.
type GormMetrics struct {
	m *Metrics
}

var _ gorm.Plugin = (*GormMetrics)(nil)

// NewGormMetrics creates the plugin.
func NewGormMetrics(m *Metrics) *GormMetrics {
	return &GormMetrics{m: m}
}

func (p *GormMetrics) Name() string { return "gotemplate:otel_metrics" }

func (p *GormMetrics) Initialize(db *gorm.DB) error {
	cb := db.Callback()
	return errors.Join(
		cb.Create().After("gorm:create").Register("gotemplate:meter_create", p.record("create")),
		cb.Query().After("gorm:query").Register("gotemplate:meter_query", p.record("query")),
		cb.Update().After("gorm:update").Register("gotemplate:meter_update", p.record("update")),
		cb.Delete().After("gorm:delete").Register("gotemplate:meter_delete", p.record("delete")),
		cb.Row().After("gorm:row").Register("gotemplate:meter_row", p.record("row")),
		cb.Raw().After("gorm:raw").Register("gotemplate:meter_raw", p.record("raw")),
	)
}

func (p *GormMetrics) record(op string) func(*gorm.DB) {
	return func(db *gorm.DB) {
		failed := db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound)
		p.m.queryTotal.Add(db.Statement.Context, 1, metric.WithAttributes(
			attribute.String("db.operation", op),
			attribute.String("db.sql.table", db.Statement.Table),
			attribute.Bool("error", failed),
		))
	}
}
