package database

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Driver identifies the SQL dialect behind a DSN.
type Driver string

const (
	DriverPostgres Driver = "postgres"
	DriverSQLite   Driver = "sqlite"
)

// MemoryDSN is an in-memory SQLite database shared by the pool's connections.
const MemoryDSN = "sqlite::memory:"

// ParseDSN returns the driver and the DSN in the form that driver expects.
//
//	postgres://u:p@host:5432/music_test   -> postgres, unchanged
//	sqlite://data/music.db                 -> sqlite, data/music.db?_foreign_keys=on&...
//	sqlite::memory:                        -> sqlite, file::memory:?cache=shared&...
func ParseDSN(dsn string) (Driver, string, error) {
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		if _, err := url.Parse(dsn); err != nil {
			return "", "", fmt.Errorf("invalid postgres dsn: %w", err)
		}
		return DriverPostgres, dsn, nil
	case dsn == MemoryDSN:
		return DriverSQLite, withSQLiteParams("file::memory:?cache=shared", false), nil
	case strings.HasPrefix(dsn, "sqlite://"):
		path := strings.TrimPrefix(dsn, "sqlite://")
		if path == "" {
			return "", "", fmt.Errorf("sqlite dsn %q has no path", dsn)
		}
		return DriverSQLite, withSQLiteParams(path, true), nil
	case strings.HasPrefix(dsn, "file:"):
		return DriverSQLite, withSQLiteParams(dsn, !strings.Contains(dsn, ":memory:")), nil
	}
	return "", "", fmt.Errorf("unsupported dsn scheme in %q", redact(dsn))
}

// withSQLiteParams adds the connection parameters the service relies on
// unless the DSN already sets them.
func withSQLiteParams(dsn string, onDisk bool) string {
	params := [][2]string{
		{"_foreign_keys", "on"},
		{"_busy_timeout", "5000"},
	}
	if onDisk {
		params = append(params, [2]string{"_journal_mode", "WAL"})
	}
	for _, p := range params {
		if strings.Contains(dsn, p[0]+"=") {
			continue
		}
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + p[0] + "=" + p[1]
	}
	return dsn
}

// Dialector returns the gorm dialector for dsn.
func Dialector(dsn string) (gorm.Dialector, error) {
	driver, native, err := ParseDSN(dsn)
	if err != nil {
		return nil, err
	}
	if driver == DriverPostgres {
		return postgres.Open(native), nil
	}
	return sqlite.Open(native), nil
}

// DatabaseName returns the database a DSN points at: the path segment for
// Postgres, the file name without extension for SQLite.
func DatabaseName(dsn string) (string, error) {
	driver, native, err := ParseDSN(dsn)
	if err != nil {
		return "", err
	}
	if driver == DriverPostgres {
		u, err := url.Parse(native)
		if err != nil {
			return "", err
		}
		name := strings.TrimPrefix(u.Path, "/")
		if name == "" {
			return "", fmt.Errorf("dsn %q names no database", redact(dsn))
		}
		return name, nil
	}
	path := SQLitePath(native)
	if path == "" {
		return "memory", nil
	}
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base)), nil
}

// SQLitePath returns the file behind a native SQLite DSN, or "" for
// in-memory databases.
func SQLitePath(native string) string {
	path, _, _ := strings.Cut(native, "?")
	path = strings.TrimPrefix(path, "file:")
	if path == "" || strings.Contains(path, ":memory:") {
		return ""
	}
	return path
}

// redact hides the password of a URL DSN.
func redact(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil || u.User == nil {
		return dsn
	}
	return u.Redacted()
}
