// Package migration applies the versioned SQL migrations with
// golang-migrate. Migration files live in one directory per driver
// (sqlite/, postgres/) inside an fs.FS and follow the
// VERSION_name.up.sql / VERSION_name.down.sql naming.
//
//	m, err := migration.New(db, migrations.FS, log)
//	if err != nil {
//	    return err
//	}
//	return m.Up()
package migration

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/kbukum/gotemplate/database"
	"github.com/kbukum/gotemplate/logger"
)

// Migrator runs migrations against one database.
type Migrator struct {
	m   *migrate.Migrate
	log *logger.Logger
}

// New creates a Migrator reading the directory named after db.Driver
// from files. The Migrator shares db's pool; do not close it separately.
func New(db *database.DB, files fs.FS, log *logger.Logger) (*Migrator, error) {
	sqlDB, err := db.SQLDB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}

	var driver migratedb.Driver
	switch db.Driver {
	case database.DriverPostgres:
		driver, err = migratepg.WithInstance(sqlDB, &migratepg.Config{})
	case database.DriverSQLite:
		driver, err = migratesqlite.WithInstance(sqlDB, &migratesqlite.Config{})
	default:
		return nil, fmt.Errorf("no migration driver for %q", db.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("create migration driver: %w", err)
	}

	source, err := iofs.New(files, string(db.Driver))
	if err != nil {
		return nil, fmt.Errorf("open migration source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, string(db.Driver), driver)
	if err != nil {
		return nil, fmt.Errorf("create migrator: %w", err)
	}
	return &Migrator{m: m, log: log.WithComponent("migration")}, nil
}

// Up applies every pending migration.
func (m *Migrator) Up() error {
	return m.run("up", m.m.Up)
}

// Down rolls back every applied migration.
func (m *Migrator) Down() error {
	return m.run("down", m.m.Down)
}

// Steps applies n migrations forward, or -n backward.
func (m *Migrator) Steps(n int) error {
	return m.run(fmt.Sprintf("steps %d", n), func() error { return m.m.Steps(n) })
}

// Version returns the applied version. A database without migrations
// reports version 0.
func (m *Migrator) Version() (uint, bool, error) {
	v, dirty, err := m.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return v, dirty, err
}

func (m *Migrator) run(op string, fn func() error) error {
	err := fn()
	if errors.Is(err, migrate.ErrNoChange) {
		m.log.Debug("No migrations to apply", logger.Fields(logger.FieldOperation, op))
		return nil
	}
	if err != nil {
		return fmt.Errorf("migrate %s: %w", op, err)
	}
	v, dirty, _ := m.Version()
	m.log.Info("Migrations applied", logger.Fields(logger.FieldOperation, op, "version", v, "dirty", dirty))
	return nil
}
