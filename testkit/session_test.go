package testkit_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/kbukum/gotemplate/database/dbtest"
	"github.com/kbukum/gotemplate/entity"
	"github.com/kbukum/gotemplate/music"
	"github.com/kbukum/gotemplate/testkit"
)

func mockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{DisableAutomaticPing: true})
	require.NoError(t, err)
	return db, mock
}

func TestRowsDoNotOutliveTheScope(t *testing.T) {
	ctx := context.Background()
	err := testkit.Scope(ctx, store.DB(), func(h *testkit.Handle) error {
		f := testkit.NewFactory(h.DB)
		if _, err := f.CreateMany(ctx, music.MembershipDefinition, 3, nil); err != nil {
			return err
		}
		dbtest.AssertRowCount(t, h.DB, "band_memberships", 3)
		return nil
	})
	require.NoError(t, err)

	for _, table := range []string{"bands", "musicians", "band_memberships"} {
		dbtest.AssertTableEmpty(t, store.DB(), table)
	}
}

func TestSessionIsolation(t *testing.T) {
	ctx := context.Background()

	t.Run("A", func(t *testing.T) {
		h := testkit.Session(t, store.DB())
		_, err := testkit.NewFactory(h.DB).Create(ctx, music.BandDefinition, entity.Values{"name": "The Beatles"})
		require.NoError(t, err)
		dbtest.AssertRowCount(t, h.DB, "bands", 1)
	})

	t.Run("B", func(t *testing.T) {
		h := testkit.Session(t, store.DB())
		var n int64
		require.NoError(t, h.DB.Model(&music.Band{}).Where("name = ?", "The Beatles").Count(&n).Error)
		assert.Zero(t, n)

		_, err := testkit.NewFactory(h.DB).Create(ctx, music.BandDefinition, entity.Values{"name": "The Beatles"})
		assert.NoError(t, err, "name is free again")
	})
}

func TestReleaseIsIdempotent(t *testing.T) {
	h, err := testkit.Acquire(context.Background(), store.DB())
	require.NoError(t, err)

	require.NoError(t, h.Release())
	require.NoError(t, h.Release())

	sqlDB, err := store.DB().DB()
	require.NoError(t, err)
	assert.Zero(t, sqlDB.Stats().InUse)
}

func TestNestedTransactionIsSavepoint(t *testing.T) {
	ctx := context.Background()
	h := testkit.Session(t, store.DB())
	f := testkit.NewFactory(h.DB)

	_, err := f.Create(ctx, music.BandDefinition, entity.Values{"name": "Kept"})
	require.NoError(t, err)

	boom := errors.New("boom")
	err = h.DB.Transaction(func(tx *gorm.DB) error {
		if _, err := testkit.NewFactory(tx).Create(ctx, music.BandDefinition, entity.Values{"name": "Dropped"}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	var names []string
	require.NoError(t, h.DB.Model(&music.Band{}).Pluck("name", &names).Error)
	assert.Equal(t, []string{"Kept"}, names)
}

func TestAcquireUnreachableStore(t *testing.T) {
	t.Run("ping fails", func(t *testing.T) {
		db, mock := mockDB(t)
		mock.ExpectPing().WillReturnError(errors.New("dial tcp 127.0.0.1:5432: connection refused"))

		_, err := testkit.Acquire(context.Background(), db)
		var ce *testkit.ConnectionError
		require.ErrorAs(t, err, &ce)
		assert.Equal(t, "acquire", ce.Op)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("pool closed", func(t *testing.T) {
		db, _ := mockDB(t)
		sqlDB, err := db.DB()
		require.NoError(t, err)
		require.NoError(t, sqlDB.Close())

		_, err = testkit.Acquire(context.Background(), db)
		var ce *testkit.ConnectionError
		assert.ErrorAs(t, err, &ce)
	})
}

func TestScopeReportsTestErrorBeforeRollbackError(t *testing.T) {
	db, mock := mockDB(t)
	mock.ExpectPing()
	mock.ExpectBegin()
	mock.ExpectRollback().WillReturnError(errors.New("connection reset by peer"))

	testErr := errors.New("expected 3 bands, got 2")
	err := testkit.Scope(context.Background(), db, func(*testkit.Handle) error { return testErr })

	var te *testkit.TeardownError
	require.ErrorAs(t, err, &te)
	assert.Same(t, testErr, te.Test)
	assert.ErrorContains(t, te.Rollback, "connection reset by peer")
	assert.ErrorIs(t, err, testErr)
	assert.Regexp(t, `^expected 3 bands, got 2; .*connection reset by peer`, err.Error())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScopeRollbackFailureWithoutTestError(t *testing.T) {
	db, mock := mockDB(t)
	mock.ExpectPing()
	mock.ExpectBegin()
	mock.ExpectRollback().WillReturnError(errors.New("broken pipe"))

	err := testkit.Scope(context.Background(), db, func(*testkit.Handle) error { return nil })

	var te *testkit.TeardownError
	require.ErrorAs(t, err, &te)
	assert.Nil(t, te.Test)
	assert.ErrorContains(t, err, "broken pipe")
}

func TestScopeReleasesOnPanic(t *testing.T) {
	db, mock := mockDB(t)
	mock.ExpectPing()
	mock.ExpectBegin()
	mock.ExpectRollback()

	assert.PanicsWithValue(t, "boom", func() {
		_ = testkit.Scope(context.Background(), db, func(*testkit.Handle) error { panic("boom") })
	})
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReleaseAfterContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	h, err := testkit.Acquire(ctx, store.DB())
	require.NoError(t, err)

	_, err = testkit.NewFactory(h.DB).Create(ctx, music.BandDefinition, entity.Values{"name": "Let It Be"})
	require.NoError(t, err)

	cancel()
	require.NoError(t, h.Release())
	require.NoError(t, h.Release())

	dbtest.AssertTableEmpty(t, store.DB(), "bands")
	sqlDB, err := store.DB().DB()
	require.NoError(t, err)
	assert.Zero(t, sqlDB.Stats().InUse)
}

func TestReleaseCountsFinishedTransactionAsReleased(t *testing.T) {
	db, mock := mockDB(t)
	mock.ExpectPing()
	mock.ExpectBegin()
	mock.ExpectRollback().WillReturnError(sql.ErrTxDone)

	h, err := testkit.Acquire(context.Background(), db)
	require.NoError(t, err)
	assert.NoError(t, h.Release())
	assert.NoError(t, mock.ExpectationsWereMet())
}
