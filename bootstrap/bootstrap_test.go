package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/kbukum/gotemplate/component"
	"github.com/kbukum/gotemplate/config"
	"github.com/kbukum/gotemplate/logger"
)

type testConfig struct {
	config.ServiceConfig
}

type mockComponent struct {
	name     string
	startErr error
	stopErr  error
	health   component.Health
	events   *[]string
}

func (m *mockComponent) Name() string { return m.name }

func (m *mockComponent) Start(context.Context) error {
	m.record("start:" + m.name)
	return m.startErr
}

func (m *mockComponent) Stop(context.Context) error {
	m.record("stop:" + m.name)
	return m.stopErr
}

func (m *mockComponent) Health(context.Context) component.Health { return m.health }

func (m *mockComponent) record(e string) {
	if m.events != nil {
		*m.events = append(*m.events, e)
	}
}

func healthy(name string, events *[]string) *mockComponent {
	return &mockComponent{
		name:   name,
		health: component.Health{Name: name, Status: component.StatusHealthy},
		events: events,
	}
}

func newTestApp(t *testing.T) *App[*testConfig] {
	t.Helper()
	cfg := &testConfig{ServiceConfig: config.ServiceConfig{Name: "test-svc", Version: "1.0.0", Environment: "test"}}
	app, err := NewApp(cfg, WithLogger(logger.NewNop()), WithGracefulTimeout(time.Second))
	if err != nil {
		t.Fatalf("NewApp failed: %v", err)
	}
	return app
}

func TestNewApp(t *testing.T) {
	app := newTestApp(t)
	if app.Name != "test-svc" || app.Version != "1.0.0" {
		t.Errorf("unexpected identity %s %s", app.Name, app.Version)
	}
	if app.gracefulTimeout != time.Second {
		t.Errorf("expected graceful timeout 1s, got %v", app.gracefulTimeout)
	}
}

func TestNewAppDefaultTimeout(t *testing.T) {
	cfg := &testConfig{ServiceConfig: config.ServiceConfig{Name: "svc"}}
	app, err := NewApp(cfg, WithLogger(logger.NewNop()))
	if err != nil {
		t.Fatal(err)
	}
	if app.gracefulTimeout != 15*time.Second {
		t.Errorf("expected 15s, got %v", app.gracefulTimeout)
	}
}

func TestNewAppValidation(t *testing.T) {
	cfg := &testConfig{ServiceConfig: config.ServiceConfig{Environment: "production"}}
	if _, err := NewApp(cfg, WithLogger(logger.NewNop())); err == nil {
		t.Error("expected validation error for missing name")
	}
}

func TestRegisterComponentDuplicate(t *testing.T) {
	app := newTestApp(t)
	if err := app.RegisterComponent(healthy("db", nil)); err != nil {
		t.Fatal(err)
	}
	if err := app.RegisterComponent(healthy("db", nil)); err == nil {
		t.Error("expected error for duplicate component registration")
	}
}

func TestHooksRunInOrder(t *testing.T) {
	app := newTestApp(t)
	var order []string
	app.OnReady(
		func(context.Context) error { order = append(order, "first"); return nil },
		func(context.Context) error { order = append(order, "second"); return nil },
	)
	if err := app.runHooks(context.Background(), phaseReady); err != nil {
		t.Fatal(err)
	}
	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Errorf("expected [first second], got %v", order)
	}
}

func TestHookErrorStopsExecution(t *testing.T) {
	app := newTestApp(t)
	secondCalled := false
	app.OnStart(
		func(context.Context) error { return fmt.Errorf("fail") },
		func(context.Context) error { secondCalled = true; return nil },
	)
	err := app.runHooks(context.Background(), phaseStart)
	if err == nil || !strings.Contains(err.Error(), "start hook #1") {
		t.Errorf("expected start hook #1 error, got %v", err)
	}
	if secondCalled {
		t.Error("second hook must not run after the first fails")
	}
}

func TestReadyCheck(t *testing.T) {
	app := newTestApp(t)
	if err := app.ReadyCheck(context.Background()); err != nil {
		t.Errorf("empty registry should be ready: %v", err)
	}

	_ = app.RegisterComponent(healthy("db", nil))
	_ = app.RegisterComponent(&mockComponent{
		name:   "tracing",
		health: component.Health{Name: "tracing", Status: component.StatusDegraded, Message: "exporter down"},
	})
	err := app.ReadyCheck(context.Background())
	if err == nil {
		t.Fatal("expected degraded component to fail the ready check")
	}
	if want := "tracing=degraded (exporter down)"; !strings.Contains(err.Error(), want) {
		t.Errorf("expected %q in %q", want, err.Error())
	}
}

func TestRunTaskLifecycle(t *testing.T) {
	var events []string
	app := newTestApp(t)
	_ = app.RegisterComponent(healthy("db", &events))
	app.OnStart(func(context.Context) error { events = append(events, "onStart"); return nil })
	app.OnConfigure(func(_ context.Context, a *App[*testConfig]) error {
		events = append(events, "configure")
		return a.RegisterComponent(healthy("http", &events))
	})
	app.OnReady(func(context.Context) error { events = append(events, "onReady"); return nil })
	app.OnStop(func(context.Context) error { events = append(events, "onStop"); return nil })

	err := app.RunTask(context.Background(), func(context.Context) error {
		events = append(events, "task")
		return nil
	})
	if err != nil {
		t.Fatalf("RunTask failed: %v", err)
	}

	want := []string{"start:db", "onStart", "configure", "start:http", "onReady", "task", "onStop", "stop:http", "stop:db"}
	if fmt.Sprint(events) != fmt.Sprint(want) {
		t.Errorf("events = %v\nwant     %v", events, want)
	}
}

func TestRunTaskError(t *testing.T) {
	app := newTestApp(t)
	boom := errors.New("boom")
	if err := app.RunTask(context.Background(), func(context.Context) error { return boom }); !errors.Is(err, boom) {
		t.Errorf("expected task error, got %v", err)
	}
}

func TestRunTaskStartFailureStopsStarted(t *testing.T) {
	var events []string
	app := newTestApp(t)
	boom := errors.New("bind failed")
	_ = app.RegisterComponent(healthy("db", &events))
	_ = app.RegisterComponent(&mockComponent{name: "http", startErr: boom, events: &events})

	taskRan := false
	err := app.RunTask(context.Background(), func(context.Context) error { taskRan = true; return nil })
	if !errors.Is(err, boom) {
		t.Fatalf("expected start error, got %v", err)
	}
	if taskRan {
		t.Error("task must not run when startup fails")
	}
	want := []string{"start:db", "start:http", "stop:db"}
	if fmt.Sprint(events) != fmt.Sprint(want) {
		t.Errorf("events = %v, want %v", events, want)
	}
}

func TestRunTaskConfigureError(t *testing.T) {
	app := newTestApp(t)
	app.OnConfigure(func(context.Context, *App[*testConfig]) error { return errors.New("no handler") })
	if err := app.RunTask(context.Background(), func(context.Context) error { return nil }); err == nil {
		t.Error("expected configure error")
	}
}

func TestRunTaskStopError(t *testing.T) {
	app := newTestApp(t)
	stopErr := errors.New("close failed")
	_ = app.RegisterComponent(&mockComponent{name: "db", stopErr: stopErr, health: component.Health{Status: component.StatusHealthy}})

	err := app.RunTask(context.Background(), func(context.Context) error { return nil })
	if !errors.Is(err, stopErr) {
		t.Errorf("expected stop error, got %v", err)
	}
}

func TestRunReturnsOnContextCancel(t *testing.T) {
	var events []string
	app := newTestApp(t)
	_ = app.RegisterComponent(healthy("db", &events))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if events[len(events)-1] != "stop:db" {
		t.Errorf("expected db to be stopped, events %v", events)
	}
}
