package observability

import (
	"context"
	"fmt"
	"sync"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/kbukum/gotemplate/component"
)

var (
	_ component.Component   = (*Component)(nil)
	_ component.Describable = (*Component)(nil)
)

// Component owns the tracer provider lifecycle. A disabled config makes
// Start and Stop no-ops.
type Component struct {
	cfg TracerConfig

	mu sync.Mutex
	tp *sdktrace.TracerProvider
}

// NewComponent creates a tracing component.
func NewComponent(cfg TracerConfig) *Component {
	return &Component{cfg: cfg}
}

func (c *Component) Name() string { return "tracing" }

func (c *Component) Start(ctx context.Context) error {
	if !c.cfg.Enabled {
		return nil
	}
	tp, err := InitTracer(ctx, c.cfg)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.tp = tp
	c.mu.Unlock()
	return nil
}

func (c *Component) Stop(ctx context.Context) error {
	c.mu.Lock()
	tp := c.tp
	c.tp = nil
	c.mu.Unlock()
	if tp == nil {
		return nil
	}
	if err := tp.Shutdown(ctx); err != nil {
		return fmt.Errorf("tracer shutdown: %w", err)
	}
	return nil
}

func (c *Component) Health(context.Context) component.Health {
	h := component.Health{Name: c.Name(), Status: component.StatusHealthy}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cfg.Enabled && c.tp == nil {
		h.Status = component.StatusDegraded
		h.Message = "tracer not started"
	}
	return h
}

func (c *Component) Describe() component.Description {
	details := "disabled"
	if c.cfg.Enabled {
		details = fmt.Sprintf("otlp %s sample=%.2f", c.cfg.Endpoint, c.cfg.SampleRate)
	}
	return component.Description{Name: c.Name(), Type: "tracing", Details: details}
}

// MeterComponent owns the meter provider lifecycle. A disabled config
// makes Start and Stop no-ops.
type MeterComponent struct {
	cfg MeterConfig

	mu sync.Mutex
	mp *sdkmetric.MeterProvider
}

var (
	_ component.Component   = (*MeterComponent)(nil)
	_ component.Describable = (*MeterComponent)(nil)
)

// NewMeterComponent creates a metrics export component.
func NewMeterComponent(cfg MeterConfig) *MeterComponent {
	return &MeterComponent{cfg: cfg}
}

func (c *MeterComponent) Name() string { return "metrics-export" }

func (c *MeterComponent) Start(ctx context.Context) error {
	if !c.cfg.Enabled {
		return nil
	}
	mp, err := InitMeter(ctx, c.cfg)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.mp = mp
	c.mu.Unlock()
	return nil
}

// Stop flushes pending measurements and shuts the provider down.
func (c *MeterComponent) Stop(ctx context.Context) error {
	c.mu.Lock()
	mp := c.mp
	c.mp = nil
	c.mu.Unlock()
	if mp == nil {
		return nil
	}
	if err := mp.Shutdown(ctx); err != nil {
		return fmt.Errorf("meter shutdown: %w", err)
	}
	return nil
}

func (c *MeterComponent) Health(context.Context) component.Health {
	h := component.Health{Name: c.Name(), Status: component.StatusHealthy}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cfg.Enabled && c.mp == nil {
		h.Status = component.StatusDegraded
		h.Message = "meter not started"
	}
	return h
}

func (c *MeterComponent) Describe() component.Description {
	details := "disabled"
	if c.cfg.Enabled {
		details = fmt.Sprintf("otlp %s every %ds", c.cfg.Endpoint, c.cfg.Interval)
	}
	return component.Description{Name: c.Name(), Type: "metrics", Details: details}
}
