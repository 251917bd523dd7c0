package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/kbukum/gotemplate/component"
	"github.com/kbukum/gotemplate/logger"
)

func tempConfig(t *testing.T) Config {
	t.Helper()
	return Config{
		DSN:        "sqlite://" + filepath.Join(t.TempDir(), "music_test.db"),
		MaxRetries: 1,
		LogLevel:   "silent",
	}
}

func openTemp(t *testing.T, plugins ...gorm.Plugin) *DB {
	t.Helper()
	db, err := Open(context.Background(), tempConfig(t), logger.NewNop(), plugins...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestComponentLifecycle(t *testing.T) {
	ctx := context.Background()
	c := NewComponent(tempConfig(t), logger.NewNop())

	assert.Equal(t, "database", c.Name())
	assert.Nil(t, c.DB())
	h := c.Health(ctx)
	assert.Equal(t, component.StatusUnhealthy, h.Status)

	require.NoError(t, c.Start(ctx))
	require.NotNil(t, c.DB())
	assert.Equal(t, DriverSQLite, c.DB().Driver)

	h = c.Health(ctx)
	assert.True(t, h.Healthy(), h.Message)
	assert.Contains(t, h.Message, "open=")

	require.NoError(t, c.Stop(ctx))
	require.NoError(t, c.Stop(ctx), "stop twice")
	assert.Equal(t, component.StatusUnhealthy, c.Health(ctx).Status)
}

func TestComponentStartHooks(t *testing.T) {
	ctx := context.Background()
	var calls []string
	c := NewComponent(tempConfig(t), logger.NewNop()).
		OnStart(func(_ context.Context, db *DB) error {
			calls = append(calls, "first")
			return db.GormDB.Exec("CREATE TABLE bands (id INTEGER PRIMARY KEY)").Error
		}).
		OnStart(func(context.Context, *DB) error {
			calls = append(calls, "second")
			return nil
		})
	t.Cleanup(func() { _ = c.Stop(ctx) })

	require.NoError(t, c.Start(ctx))
	assert.Equal(t, []string{"first", "second"}, calls)
	assert.True(t, c.DB().GormDB.Migrator().HasTable("bands"))
}

func TestComponentStartHookError(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")
	c := NewComponent(tempConfig(t), logger.NewNop()).
		OnStart(func(context.Context, *DB) error { return boom })
	t.Cleanup(func() { _ = c.Stop(ctx) })

	err := c.Start(ctx)
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "database start hook")
}

func TestComponentPlugins(t *testing.T) {
	ctx := context.Background()
	counter, err := NewQueryCounter(nil)
	require.NoError(t, err)

	c := NewComponent(tempConfig(t), logger.NewNop()).WithPlugins(counter)
	require.NoError(t, c.Start(ctx))
	t.Cleanup(func() { _ = c.Stop(ctx) })

	counter.Reset()
	require.NoError(t, c.DB().GormDB.Exec("SELECT 1").Error)
	assert.Equal(t, int64(1), counter.Get())
}

func TestComponentDescribe(t *testing.T) {
	c := NewComponent(Config{DSN: "postgres://localhost/music", MaxOpenConns: 10, MaxIdleConns: 2}, logger.NewNop())
	d := c.Describe()
	assert.Equal(t, "database", d.Type)
	assert.Equal(t, "postgres pool=10/2", d.Details)
}

func TestOpenUnsupportedDSN(t *testing.T) {
	_, err := Open(context.Background(), Config{DSN: "mysql://localhost/db"}, logger.NewNop())
	assert.Error(t, err)
}

func TestOpenCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Open(ctx, tempConfig(t), logger.NewNop())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWithTransaction(t *testing.T) {
	ctx := context.Background()
	db := openTemp(t)
	require.NoError(t, db.GormDB.Exec("CREATE TABLE bands (id INTEGER PRIMARY KEY, name TEXT)").Error)

	require.NoError(t, db.WithTransaction(ctx, func(tx *gorm.DB) error {
		return tx.Exec("INSERT INTO bands (name) VALUES ('The Beatles')").Error
	}))

	boom := errors.New("boom")
	err := db.WithTransaction(ctx, func(tx *gorm.DB) error {
		if err := tx.Exec("INSERT INTO bands (name) VALUES ('Queen')").Error; err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	var count int64
	require.NoError(t, db.WithContext(ctx).Table("bands").Count(&count).Error)
	assert.Equal(t, int64(1), count)
}
