package testkit_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbukum/gotemplate/app"
	"github.com/kbukum/gotemplate/database/dbtest"
	"github.com/kbukum/gotemplate/entity"
	"github.com/kbukum/gotemplate/logger"
	"github.com/kbukum/gotemplate/music"
	"github.com/kbukum/gotemplate/testkit"
)

func newApplication(t *testing.T) *app.Application {
	t.Helper()
	cfg := &app.Config{}
	cfg.Environment = "test"
	cfg.ApplyDefaults()
	application, err := app.New(cfg, logger.NewNop(), app.WithRegistry(prometheus.NewRegistry()))
	require.NoError(t, err)
	return application
}

func TestClientSharesTheTestTransaction(t *testing.T) {
	ctx := context.Background()
	h := testkit.Session(t, store.DB())
	f := testkit.NewFactory(h.DB)
	c := testkit.NewClient(newApplication(t), h)

	band, err := testkit.Create[*music.Band](ctx, f, music.BandDefinition, entity.Values{"name": "The Beatles"})
	require.NoError(t, err)

	resp, err := c.Get(ctx, "/api/music/bands")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.Status, resp.String())
	assert.Equal(t, "The Beatles", resp.Get("0.name").String())
	assert.Equal(t, int64(band.ID), resp.Get("0.id").Int())

	resp, err = c.Post(ctx, "/api/music/musicians", map[string]any{"name": "John Lennon", "band_id": band.ID})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.Status, resp.String())

	var m music.Musician
	require.NoError(t, resp.JSON(&m))
	assert.Equal(t, band.ID, m.BandID)
	dbtest.AssertRowCount(t, h.DB, "musicians", 1)

	sqlDB, err := store.DB().DB()
	require.NoError(t, err)
	assert.Equal(t, 1, sqlDB.Stats().InUse, "requests run on the session's connection")
}

func TestClientFailedRequestKeepsSessionUsable(t *testing.T) {
	ctx := context.Background()
	h := testkit.Session(t, store.DB())
	c := testkit.NewClient(newApplication(t), h)

	body := map[string]any{"name": "Queen", "genre": "ROCK"}
	resp, err := c.Post(ctx, "/api/music/bands", body)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.Status, resp.String())

	resp, err = c.Post(ctx, "/api/music/bands", body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.Status)

	resp, err = c.Get(ctx, "/api/music/bands")
	require.NoError(t, err)
	assert.Equal(t, int64(1), resp.Get("#").Int())
}

func TestClientHeaders(t *testing.T) {
	ctx := context.Background()
	h := testkit.Session(t, store.DB())
	c := testkit.NewClient(newApplication(t), h)
	c.SetHeader("X-Request-Id", "session-id")

	resp, err := c.Get(ctx, "/health")
	require.NoError(t, err)
	assert.Equal(t, "session-id", resp.Header.Get("X-Request-Id"))

	resp, err = c.Get(ctx, "/health", testkit.WithHeader("X-Request-Id", "request-id"))
	require.NoError(t, err)
	assert.Equal(t, "request-id", resp.Header.Get("X-Request-Id"))

	var out struct {
		Status string `json:"status"`
	}
	require.NoError(t, resp.JSON(&out))
	assert.Equal(t, "OK", out.Status)
}
