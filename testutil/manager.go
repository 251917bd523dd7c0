package testutil

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/kbukum/gotemplate/logger"
)

// Manager owns the components shared by every test in a package.
type Manager struct {
	ctx        context.Context
	mu         sync.RWMutex
	components []TestComponent
	started    int
}

// NewManager creates an empty manager.
func NewManager(ctx context.Context) *Manager {
	return &Manager{ctx: ctx}
}

// Add registers a component. Components start in the order added.
func (m *Manager) Add(c TestComponent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.components = append(m.components, c)
}

// Get returns the component with the given name, or nil.
func (m *Manager) Get(name string) TestComponent {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, c := range m.components {
		if c.Name() == name {
			return c
		}
	}
	return nil
}

// StartAll starts components in order and returns the first failure.
func (m *Manager) StartAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.components[m.started:] {
		if err := c.Start(m.ctx); err != nil {
			return fmt.Errorf("failed to start component %s: %w", c.Name(), err)
		}
		m.started++
	}
	return nil
}

// StopAll stops started components in reverse order, joining failures.
func (m *Manager) StopAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var errs []error
	for i := m.started - 1; i >= 0; i-- {
		c := m.components[i]
		if err := c.Stop(m.ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop component %s: %w", c.Name(), err))
		}
	}
	m.started = 0
	return errors.Join(errs...)
}

// ResetAll resets every component and stops at the first failure.
func (m *Manager) ResetAll() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, c := range m.components {
		if err := c.Reset(m.ctx); err != nil {
			return fmt.Errorf("failed to reset component %s: %w", c.Name(), err)
		}
	}
	return nil
}

// Run is a TestMain body: start everything, run the tests, stop everything.
//
//	func TestMain(m *testing.M) {
//	    mgr := testutil.NewManager(context.Background())
//	    mgr.Add(store)
//	    mgr.Run(m)
//	}
func (m *Manager) Run(tm *testing.M) {
	os.Exit(m.run(tm))
}

func (m *Manager) run(tm interface{ Run() int }) int {
	log := logger.WithComponent("testutil")
	if err := m.StartAll(); err != nil {
		log.Error("Test components failed to start", logger.ErrorFields("start", err))
		if stopErr := m.StopAll(); stopErr != nil {
			log.Error("Test components failed to stop", logger.ErrorFields("stop", stopErr))
		}
		return 1
	}
	code := tm.Run()
	if err := m.StopAll(); err != nil {
		log.Error("Test components failed to stop", logger.ErrorFields("stop", err))
		if code == 0 {
			code = 1
		}
	}
	return code
}
