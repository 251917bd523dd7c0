package testkit_test

import (
	"context"
	"testing"

	"github.com/kbukum/gotemplate/database/dbtest"
	"github.com/kbukum/gotemplate/migrations"
	"github.com/kbukum/gotemplate/testutil"
)

var store = dbtest.NewStore(dbtest.WithMigrations(migrations.FS))

func TestMain(m *testing.M) {
	mgr := testutil.NewManager(context.Background())
	mgr.Add(store)
	mgr.Run(m)
}
