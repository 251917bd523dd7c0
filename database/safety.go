package database

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/kbukum/gotemplate/logger"
)

// ErrNotTestDatabase is returned when a destructive test operation targets
// a database whose name does not mark it as disposable.
var ErrNotTestDatabase = errors.New("database name must end with _test or start with test_")

// IsTestDatabaseName reports whether name marks a disposable test database.
func IsTestDatabaseName(name string) bool {
	name = strings.ToLower(name)
	return strings.HasSuffix(name, "_test") || strings.HasPrefix(name, "test_")
}

// EnsureTestDatabase fails unless dsn points at a test database. In-memory
// SQLite always passes.
func EnsureTestDatabase(dsn string) error {
	if dsn == MemoryDSN {
		return nil
	}
	name, err := DatabaseName(dsn)
	if err != nil {
		return err
	}
	if !IsTestDatabaseName(name) {
		return fmt.Errorf("%w: %q", ErrNotTestDatabase, name)
	}
	return nil
}

// InitOptions controls InitDatabase.
type InitOptions struct {
	// Drop removes the database first. Only allowed for test databases.
	Drop bool
}

// InitDatabase creates the database named by dsn if it does not exist.
// For Postgres it connects to the server's maintenance database; for SQLite
// it creates the parent directory and, when dropping, removes the file.
func InitDatabase(ctx context.Context, dsn string, opts InitOptions, log *logger.Logger) error {
	if opts.Drop {
		if err := EnsureTestDatabase(dsn); err != nil {
			return fmt.Errorf("refusing to drop: %w", err)
		}
	}
	driver, native, err := ParseDSN(dsn)
	if err != nil {
		return err
	}
	if driver == DriverSQLite {
		return initSQLite(native, opts, log)
	}
	return initPostgres(ctx, native, opts, log)
}

func initSQLite(native string, opts InitOptions, log *logger.Logger) error {
	path := SQLitePath(native)
	if path == "" {
		return nil
	}
	if opts.Drop {
		for _, p := range []string{path, path + "-wal", path + "-shm"} {
			if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("drop sqlite database: %w", err)
			}
		}
		log.Info("Dropped database", logger.Fields("path", path))
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create database directory: %w", err)
		}
	}
	return nil
}

func initPostgres(ctx context.Context, native string, opts InitOptions, log *logger.Logger) error {
	u, err := url.Parse(native)
	if err != nil {
		return err
	}
	name := strings.TrimPrefix(u.Path, "/")
	if name == "" {
		return fmt.Errorf("dsn names no database")
	}
	admin := *u
	admin.Path = "/postgres"

	conn, err := pgx.Connect(ctx, admin.String())
	if err != nil {
		return fmt.Errorf("connect to maintenance database: %w", err)
	}
	defer conn.Close(context.WithoutCancel(ctx))

	ident := pgx.Identifier{name}.Sanitize()
	if opts.Drop {
		if _, err := conn.Exec(ctx,
			"SELECT pg_terminate_backend(pid) FROM pg_stat_activity WHERE datname = $1 AND pid <> pg_backend_pid()",
			name); err != nil {
			return fmt.Errorf("terminate sessions on %s: %w", name, err)
		}
		if _, err := conn.Exec(ctx, "DROP DATABASE IF EXISTS "+ident); err != nil {
			return fmt.Errorf("drop database %s: %w", name, err)
		}
		log.Info("Dropped database", logger.Fields("database", name))
	}

	var exists bool
	if err := conn.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = $1)", name).Scan(&exists); err != nil {
		return fmt.Errorf("check database %s: %w", name, err)
	}
	if exists {
		log.Info("Database already exists", logger.Fields("database", name))
		return nil
	}
	if _, err := conn.Exec(ctx, "CREATE DATABASE "+ident); err != nil {
		return fmt.Errorf("create database %s: %w", name, err)
	}
	log.Info("Created database", logger.Fields("database", name))
	return nil
}
