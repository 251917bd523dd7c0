package dbtest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbukum/gotemplate/component"
	"github.com/kbukum/gotemplate/database"
	"github.com/kbukum/gotemplate/entity"
	"github.com/kbukum/gotemplate/migrations"
	"github.com/kbukum/gotemplate/testutil"
)

func newSQLiteStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	t.Setenv(EnvDatabaseURL, "")
	t.Setenv(EnvContainer, "")
	return NewStore(opts...)
}

func TestStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStore(t, WithMigrations(migrations.FS))

	assert.Nil(t, s.DB())
	assert.Equal(t, component.StatusUnhealthy, s.Health(ctx).Status)

	require.NoError(t, s.Start(ctx))
	assert.Error(t, s.Start(ctx), "second start")
	assert.True(t, s.Health(ctx).Healthy())
	assert.Equal(t, database.DriverSQLite, s.Database().Driver)

	for _, table := range []string{"bands", "musicians", "band_memberships"} {
		assert.True(t, s.DB().Migrator().HasTable(table), table)
	}

	require.NoError(t, s.Stop(ctx))
	require.NoError(t, s.Stop(ctx))
	assert.Nil(t, s.DB())
}

func TestStoreReset(t *testing.T) {
	s := newSQLiteStore(t, WithMigrations(migrations.FS))
	testutil.T(t).Setup(s)
	db := s.DB()

	require.NoError(t, db.Exec(`INSERT INTO bands (name, genre, created_at, updated_at)
		VALUES ('The Beatles', 'ROCK', CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`).Error)
	require.NoError(t, db.Exec(`INSERT INTO musicians (name, band_id, created_at, updated_at)
		VALUES ('John Lennon', 1, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`).Error)
	AssertRowCount(t, db, "bands", 1)

	testutil.T(t).Reset(s)
	AssertTableEmpty(t, db, "bands")
	AssertTableEmpty(t, db, "musicians")

	var fk int
	require.NoError(t, db.Raw("PRAGMA foreign_keys").Scan(&fk).Error)
	assert.Equal(t, 1, fk)
	AssertRowCount(t, db, "schema_migrations", 1)
}

func TestStoreQueryCounter(t *testing.T) {
	s := newSQLiteStore(t, WithMigrations(migrations.FS))
	testutil.T(t).Setup(s)

	s.Queries().Reset()
	_, err := CountRows(s.DB(), "bands")
	require.NoError(t, err)
	assert.Equal(t, int64(1), s.Queries().Get())
}

func TestStoreRejectsNonTestDatabase(t *testing.T) {
	dsn := "sqlite://" + filepath.Join(t.TempDir(), "music.db")
	s := newSQLiteStore(t, WithDSN(dsn))
	err := s.Start(context.Background())
	assert.ErrorIs(t, err, database.ErrNotTestDatabase)
}

func TestStoreUsesConfiguredDSN(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	t.Setenv(EnvContainer, "")
	t.Setenv(EnvDatabaseURL, "sqlite://"+filepath.Join(dir, "sub", "music_test.db"))

	s := NewStore(WithMigrations(migrations.FS))
	require.NoError(t, s.Start(ctx))
	t.Cleanup(func() { _ = s.Stop(ctx) })
	assert.FileExists(t, filepath.Join(dir, "sub", "music_test.db"))
}

func TestMissingColumns(t *testing.T) {
	s := newSQLiteStore(t, WithMigrations(migrations.FS))
	testutil.T(t).Setup(s)

	band := &entity.Definition{
		Name:  "Band",
		Table: "bands",
		Fields: []entity.Field{
			{Name: "name", Type: entity.String},
			{Name: "genre", Type: entity.String},
		},
	}
	assert.Empty(t, MissingColumns(s.DB(), band))

	band.Fields = append(band.Fields, entity.Field{Name: "label", Type: entity.String})
	assert.Equal(t, []string{"bands.label"}, MissingColumns(s.DB(), band))

	assert.Equal(t, []string{"labels"}, MissingColumns(s.DB(), &entity.Definition{Name: "Label", Table: "labels"}))
}
