package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/kbukum/gotemplate/config"
	"github.com/kbukum/gotemplate/logger"
)

// Config is what NewApp needs from a service configuration. Embedding
// config.ServiceConfig provides GetServiceConfig; the service adds
// ApplyDefaults and Validate covering its own sections.
type Config interface {
	GetServiceConfig() *config.ServiceConfig
	ApplyDefaults()
	Validate() error
}

// Option overrides a NewApp default.
type Option func(*settings)

type settings struct {
	log             *logger.Logger
	gracefulTimeout time.Duration
}

// WithLogger uses l instead of a logger built from the logging config.
func WithLogger(l *logger.Logger) Option {
	return func(s *settings) { s.log = l }
}

// WithGracefulTimeout bounds shutdown. The default is 15s.
func WithGracefulTimeout(d time.Duration) Option {
	return func(s *settings) { s.gracefulTimeout = d }
}

// Hook runs at one phase of the app lifecycle.
type Hook func(ctx context.Context) error

type phase string

const (
	phaseStart phase = "start"
	phaseReady phase = "ready"
	phaseStop  phase = "stop"
)

// OnStart adds hooks that run once the components registered up front are
// started, before any OnConfigure callback.
func (a *App[C]) OnStart(hooks ...Hook) { a.addHooks(phaseStart, hooks) }

// OnReady adds hooks that run after the ready check, when every component
// is up.
func (a *App[C]) OnReady(hooks ...Hook) { a.addHooks(phaseReady, hooks) }

// OnStop adds hooks that run at shutdown before components stop.
func (a *App[C]) OnStop(hooks ...Hook) { a.addHooks(phaseStop, hooks) }

func (a *App[C]) addHooks(p phase, hooks []Hook) {
	if a.hooks == nil {
		a.hooks = make(map[phase][]Hook)
	}
	a.hooks[p] = append(a.hooks[p], hooks...)
}

// runHooks runs the hooks of p in order and stops at the first error.
func (a *App[C]) runHooks(ctx context.Context, p phase) error {
	for i, h := range a.hooks[p] {
		if err := h(ctx); err != nil {
			return fmt.Errorf("%s hook #%d: %w", p, i+1, err)
		}
	}
	return nil
}
