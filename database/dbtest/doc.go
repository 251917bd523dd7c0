// Package dbtest provides the disposable database that package tests run
// against.
//
// A Store is a testutil.TestComponent. By default it opens a SQLite file in
// a temporary directory; TEST_DATABASE_URL points it at an existing
// Postgres test database and TEST_DATABASE_CONTAINER=true starts one in a
// container. Either way the migrations passed to WithMigrations are applied
// on Start, and Reset empties every table while keeping the schema.
//
//	var store = dbtest.NewStore(dbtest.WithMigrations(migrations.FS))
//
//	func TestMain(m *testing.M) {
//	    mgr := testutil.NewManager(context.Background())
//	    mgr.Add(store)
//	    mgr.Run(m)
//	}
//
// The fixture helpers (CountRows, AssertRowCount, AssertTableEmpty,
// MissingColumns) work against any *gorm.DB, including a test transaction.
package dbtest
