package testkit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"testing"

	"gorm.io/gorm"

	"github.com/kbukum/gotemplate/logger"
)

// Handle is one test's view of the store: a connection taken from the pool
// and a transaction open on it. Everything written through DB is rolled
// back by Release. Transactions started on DB become savepoints.
type Handle struct {
	DB *gorm.DB

	conn *sql.Conn
	log  *logger.Logger
	once sync.Once
	err  error
}

// Acquire takes a dedicated connection from db's pool and begins a
// transaction on it. An unreachable store is a *ConnectionError.
func Acquire(ctx context.Context, db *gorm.DB) (*Handle, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, &ConnectionError{Op: "acquire", Err: err}
	}
	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return nil, &ConnectionError{Op: "acquire", Err: err}
	}
	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, &ConnectionError{Op: "acquire", Err: err}
	}

	sess := db.Session(&gorm.Session{NewDB: true, Context: ctx})
	sess.Statement.ConnPool = conn
	tx := sess.Begin()
	if tx.Error != nil {
		_ = conn.Close()
		return nil, &ConnectionError{Op: "begin", Err: tx.Error}
	}

	return &Handle{
		DB:   tx,
		conn: conn,
		log:  logger.WithComponent("testkit"),
	}, nil
}

// Release rolls the transaction back and returns the connection to the
// pool. Only the first call does anything; later calls return its result.
func (h *Handle) Release() error {
	h.once.Do(func() {
		err := h.DB.Rollback().Error
		if errors.Is(err, sql.ErrTxDone) {
			err = nil
		}
		if err != nil {
			err = fmt.Errorf("rollback: %w", err)
		}
		// a cancelled transaction may already have discarded its connection
		closeErr := h.conn.Close()
		if errors.Is(closeErr, sql.ErrConnDone) {
			closeErr = nil
		}
		h.err = errors.Join(err, closeErr)
		if h.err != nil {
			h.log.Error("Test transaction release failed", logger.ErrorFields("release", h.err))
		}
	})
	return h.err
}

// Session acquires a handle for t and releases it when t finishes. A
// failure to acquire fails the test immediately; a failed rollback is
// reported after whatever failure the test already recorded.
func Session(t testing.TB, db *gorm.DB) *Handle {
	t.Helper()
	h, err := Acquire(context.Background(), db)
	if err != nil {
		t.Fatalf("acquire test session: %v", err)
	}
	t.Cleanup(func() {
		if err := h.Release(); err != nil {
			t.Errorf("release test session: %v", err)
		}
	})
	return h
}

// Scope runs fn with a fresh handle and releases it afterwards, also when
// fn panics. If the rollback fails the result is a *TeardownError holding
// fn's error first and the rollback error second.
func Scope(ctx context.Context, db *gorm.DB, fn func(h *Handle) error) error {
	h, err := Acquire(ctx, db)
	if err != nil {
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			_ = h.Release()
			panic(r)
		}
	}()

	testErr := fn(h)
	if rbErr := h.Release(); rbErr != nil {
		return &TeardownError{Test: testErr, Rollback: rbErr}
	}
	return testErr
}
