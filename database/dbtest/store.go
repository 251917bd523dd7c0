package dbtest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/gorm"

	"github.com/kbukum/gotemplate/component"
	"github.com/kbukum/gotemplate/database"
	"github.com/kbukum/gotemplate/database/migration"
	"github.com/kbukum/gotemplate/logger"
	"github.com/kbukum/gotemplate/testutil"
)

// Environment variables read by NewStore.
const (
	EnvDatabaseURL = "TEST_DATABASE_URL"
	EnvContainer   = "TEST_DATABASE_CONTAINER"
)

const (
	containerImage    = "postgres:16-alpine"
	containerDatabase = "music_test"
	containerUser     = "test"
	containerPassword = "test"
)

// Store is a test database shared by a package's tests.
type Store struct {
	dsn        string
	container  bool
	migrations fs.FS
	log        *logger.Logger

	mu        sync.RWMutex
	db        *database.DB
	queries   *database.QueryCounter
	tempDir   string
	pg        testcontainers.Container
	started   bool
	skipReset map[string]bool
}

var (
	_ component.Component    = (*Store)(nil)
	_ testutil.TestComponent = (*Store)(nil)
)

// Option configures a Store.
type Option func(*Store)

// WithDSN uses an existing database. Its name must mark it as a test
// database.
func WithDSN(dsn string) Option {
	return func(s *Store) { s.dsn = dsn }
}

// WithContainer starts Postgres in a container instead of using SQLite.
func WithContainer() Option {
	return func(s *Store) { s.container = true }
}

// WithMigrations applies the migrations in files on Start. files holds one
// directory per driver, as read by migration.New.
func WithMigrations(files fs.FS) Option {
	return func(s *Store) { s.migrations = files }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(log *logger.Logger) Option {
	return func(s *Store) { s.log = log }
}

// NewStore creates a store configured from the environment and opts.
func NewStore(opts ...Option) *Store {
	s := &Store{
		dsn:       os.Getenv(EnvDatabaseURL),
		log:       logger.NewNop(),
		skipReset: map[string]bool{"schema_migrations": true, "sqlite_sequence": true},
	}
	if v, err := strconv.ParseBool(os.Getenv(EnvContainer)); err == nil {
		s.container = v
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Name() string { return "database-test" }

// Start provisions the database, opens a pool and applies migrations.
func (s *Store) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return fmt.Errorf("component already started")
	}

	dsn, err := s.provision(ctx)
	if err != nil {
		s.cleanup(ctx)
		return err
	}

	queries, err := database.NewQueryCounter(nil)
	if err != nil {
		s.cleanup(ctx)
		return err
	}
	db, err := database.Open(ctx, database.Config{
		DSN:          dsn,
		MaxOpenConns: 10,
		MaxIdleConns: 10,
		MaxRetries:   3,
		LogLevel:     "silent",
	}, s.log, queries)
	if err != nil {
		s.cleanup(ctx)
		return fmt.Errorf("open test database: %w", err)
	}
	s.db, s.queries = db, queries

	if s.migrations != nil {
		m, err := migration.New(db, s.migrations, s.log)
		if err == nil {
			err = m.Up()
		}
		if err != nil {
			s.cleanup(ctx)
			return fmt.Errorf("migrate test database: %w", err)
		}
	}
	s.started = true
	return nil
}

// provision returns the DSN to open, creating the database when needed.
func (s *Store) provision(ctx context.Context) (string, error) {
	switch {
	case s.container:
		return s.startContainer(ctx)
	case s.dsn != "":
		if err := database.EnsureTestDatabase(s.dsn); err != nil {
			return "", err
		}
		if err := database.InitDatabase(ctx, s.dsn, database.InitOptions{}, s.log); err != nil {
			return "", err
		}
		return s.dsn, nil
	}
	dir, err := os.MkdirTemp("", "gotemplate-test-")
	if err != nil {
		return "", fmt.Errorf("create temp dir: %w", err)
	}
	s.tempDir = dir
	return "sqlite://" + filepath.Join(dir, "music_test.db"), nil
}

func (s *Store) startContainer(ctx context.Context) (string, error) {
	testcontainers.Logger = log.New(io.Discard, "", 0)

	pg, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		Started: true,
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        containerImage,
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_DB":       containerDatabase,
				"POSTGRES_USER":     containerUser,
				"POSTGRES_PASSWORD": containerPassword,
			},
			// postgres restarts once after initdb
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
	})
	if err != nil {
		return "", fmt.Errorf("start postgres container: %w", err)
	}
	s.pg = pg

	host, err := pg.Host(ctx)
	if err != nil {
		return "", err
	}
	port, err := pg.MappedPort(ctx, "5432/tcp")
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		containerUser, containerPassword, host, port.Port(), containerDatabase), nil
}

// Stop closes the pool and releases what Start provisioned.
func (s *Store) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return nil
	}
	s.started = false
	return s.cleanup(ctx)
}

func (s *Store) cleanup(ctx context.Context) error {
	var errs []error
	if s.db != nil {
		errs = append(errs, s.db.Close())
		s.db = nil
	}
	if s.pg != nil {
		errs = append(errs, s.pg.Terminate(context.WithoutCancel(ctx)))
		s.pg = nil
	}
	if s.tempDir != "" {
		errs = append(errs, os.RemoveAll(s.tempDir))
		s.tempDir = ""
	}
	return errors.Join(errs...)
}

// Health pings the pool.
func (s *Store) Health(ctx context.Context) component.Health {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return component.Health{Name: s.Name(), Status: component.StatusUnhealthy, Message: "database not started"}
	}
	if err := s.db.PingContext(ctx); err != nil {
		return component.Health{Name: s.Name(), Status: component.StatusUnhealthy, Message: fmt.Sprintf("ping failed: %v", err)}
	}
	return component.Health{Name: s.Name(), Status: component.StatusHealthy, Message: string(s.db.Driver)}
}

// Reset deletes every row from every table except the migration
// bookkeeping. Tests isolated by transactions should never need it; it
// exists to clean up after tests that commit.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return fmt.Errorf("component not started")
	}

	gdb := s.db.WithContext(ctx)
	all, err := gdb.Migrator().GetTables()
	if err != nil {
		return fmt.Errorf("list tables: %w", err)
	}
	var tables []string
	for _, t := range all {
		if !s.skipReset[t] {
			tables = append(tables, t)
		}
	}
	if len(tables) == 0 {
		return nil
	}

	if s.db.Driver == database.DriverPostgres {
		quoted := make([]string, len(tables))
		for i, t := range tables {
			quoted[i] = gdb.Statement.Quote(t)
		}
		return gdb.Exec("TRUNCATE TABLE " + strings.Join(quoted, ", ") + " RESTART IDENTITY CASCADE").Error
	}

	// foreign_keys is per connection, so the deletes must share one
	return gdb.Connection(func(conn *gorm.DB) error {
		if err := conn.Exec("PRAGMA foreign_keys = OFF").Error; err != nil {
			return err
		}
		defer conn.Exec("PRAGMA foreign_keys = ON")
		for _, t := range tables {
			if err := conn.Exec("DELETE FROM " + conn.Statement.Quote(t)).Error; err != nil {
				return fmt.Errorf("clear table %s: %w", t, err)
			}
		}
		return nil
	})
}

// DB returns the pool as a gorm handle, or nil before Start.
func (s *Store) DB() *gorm.DB {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return nil
	}
	return s.db.GormDB
}

// Database returns the wrapped pool, or nil before Start.
func (s *Store) Database() *database.DB {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.db
}

// Queries returns the statement counter installed on the pool.
func (s *Store) Queries() *database.QueryCounter {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queries
}
