// Package testkit isolates tests that touch the database.
//
// Each test takes a Handle: a connection of its own with a transaction
// open on it. Rows the test creates, through a Factory or through the
// application via a Client, live only in that transaction and disappear
// when the handle is released by rollback. Nested transactions, including
// the ones the application opens, become savepoints.
//
//	func TestListBands(t *testing.T) {
//	    h := testkit.Session(t, store.DB())
//	    f := testkit.NewFactory(h.DB)
//	    band, err := testkit.Create[*music.Band](ctx, f, music.BandDefinition,
//	        entity.Values{"name": "The Beatles"})
//	    require.NoError(t, err)
//
//	    c := testkit.NewClient(application, h)
//	    resp, err := c.Get(ctx, "/api/music/bands")
//	    require.NoError(t, err)
//	    assert.Equal(t, band.Name, resp.Get("0.name").String())
//	}
//
// The factory synthesizes every field the caller leaves out, creating
// required parent rows first. Set TEST_SEED to replay a run's values.
package testkit
