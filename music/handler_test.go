package music_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbukum/gotemplate/database/dbtest"
	"github.com/kbukum/gotemplate/entity"
	"github.com/kbukum/gotemplate/music"
	"github.com/kbukum/gotemplate/testkit"
)

func TestCreateBand(t *testing.T) {
	fx := setup(t)

	resp, err := fx.client.Post(fx.ctx, "/api/music/bands", map[string]any{
		"name":        "The Beatles",
		"genre":       "ROCK",
		"formed_year": 1960,
		"country":     "United Kingdom",
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.Status, resp.String())

	assert.Equal(t, "The Beatles", resp.Get("name").String())
	assert.Equal(t, "ROCK", resp.Get("genre").String())
	assert.Equal(t, int64(1960), resp.Get("formed_year").Int())
	assert.Positive(t, resp.Get("id").Int())
	assert.True(t, resp.Get("created_at").Exists())
	assert.NotEmpty(t, resp.Header.Get("X-Request-Id"))

	dbtest.AssertRowCount(t, fx.h.DB, "bands", 1)
}

func TestCreateBandValidation(t *testing.T) {
	fx := setup(t)

	tests := []struct {
		name  string
		body  any
		field string
	}{
		{"missing name", map[string]any{"genre": "ROCK"}, "name"},
		{"unknown genre", map[string]any{"name": "X", "genre": "POLKA"}, "genre"},
		{"year too early", map[string]any{"name": "X", "genre": "JAZZ", "formed_year": 1800}, "formed_year"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp, err := fx.client.Post(fx.ctx, "/api/music/bands", tc.body)
			require.NoError(t, err)
			require.Equal(t, http.StatusBadRequest, resp.Status, resp.String())
			assert.Equal(t, tc.field, resp.Get("error.details.fields.0.field").String())
		})
	}

	resp, err := fx.client.Post(fx.ctx, "/api/music/bands", "{not json")
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.Status)

	dbtest.AssertTableEmpty(t, fx.h.DB, "bands")
}

func TestCreateBandDuplicateName(t *testing.T) {
	fx := setup(t)
	_, err := testkit.Create[*music.Band](fx.ctx, fx.factory, music.BandDefinition, entity.Values{"name": "Queen"})
	require.NoError(t, err)

	resp, err := fx.client.Post(fx.ctx, "/api/music/bands", map[string]any{"name": "Queen", "genre": "ROCK"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.Status, resp.String())
	assert.Equal(t, "ALREADY_EXISTS", resp.Get("error.code").String())

	// the failed request rolled back its savepoint; the session is still usable
	dbtest.AssertRowCount(t, fx.h.DB, "bands", 1)
}

func TestListBands(t *testing.T) {
	fx := setup(t)
	for _, genre := range []string{"ROCK", "JAZZ", "ROCK"} {
		_, err := fx.factory.Create(fx.ctx, music.BandDefinition, entity.Values{"genre": genre})
		require.NoError(t, err)
	}

	resp, err := fx.client.Get(fx.ctx, "/api/music/bands")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, int64(3), resp.Get("#").Int())

	resp, err = fx.client.Get(fx.ctx, "/api/music/bands?genre=ROCK")
	require.NoError(t, err)
	assert.Equal(t, int64(2), resp.Get("#").Int())

	resp, err = fx.client.Get(fx.ctx, "/api/music/bands?skip=1&limit=1")
	require.NoError(t, err)
	require.Equal(t, int64(1), resp.Get("#").Int())

	resp, err = fx.client.Get(fx.ctx, "/api/music/bands?genre=in.(JAZZ,ROCK)&limit=10")
	require.NoError(t, err)
	assert.Equal(t, int64(3), resp.Get("#").Int())
}

func TestListBandsRejectsBadParams(t *testing.T) {
	fx := setup(t)
	for _, q := range []string{"limit=0", "limit=1001", "skip=-1", "limit=ten", "genre=POLKA"} {
		t.Run(q, func(t *testing.T) {
			resp, err := fx.client.Get(fx.ctx, "/api/music/bands?"+q)
			require.NoError(t, err)
			assert.Equal(t, http.StatusBadRequest, resp.Status, resp.String())
		})
	}
}

func TestGetBand(t *testing.T) {
	fx := setup(t)
	ms, err := testkit.Create[*music.Membership](fx.ctx, fx.factory, music.MembershipDefinition,
		entity.Values{"instrument": "DRUMS"})
	require.NoError(t, err)

	resp, err := fx.client.Get(fx.ctx, fmt.Sprintf("/api/music/bands/%d", ms.BandID))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.Status, resp.String())
	assert.Equal(t, int64(1), resp.Get("memberships.#").Int())
	assert.Equal(t, "DRUMS", resp.Get("memberships.0.instrument").String())
	assert.Equal(t, int64(ms.MusicianID), resp.Get("memberships.0.musician.id").Int())

	resp, err = fx.client.Get(fx.ctx, "/api/music/bands/999999")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.Status)
	assert.Equal(t, "NOT_FOUND", resp.Get("error.code").String())

	resp, err = fx.client.Get(fx.ctx, "/api/music/bands/abc")
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.Status)
}

func TestUpdateBand(t *testing.T) {
	fx := setup(t)
	band, err := testkit.Create[*music.Band](fx.ctx, fx.factory, music.BandDefinition,
		entity.Values{"name": "The Quarrymen", "genre": "FOLK"})
	require.NoError(t, err)

	path := fmt.Sprintf("/api/music/bands/%d", band.ID)
	resp, err := fx.client.Patch(fx.ctx, path, map[string]any{"name": "The Beatles", "genre": "ROCK"})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.Status, resp.String())
	assert.Equal(t, "The Beatles", resp.Get("name").String())
	assert.Equal(t, "ROCK", resp.Get("genre").String())

	var stored music.Band
	require.NoError(t, fx.h.DB.First(&stored, band.ID).Error)
	assert.Equal(t, "The Beatles", stored.Name)

	resp, err = fx.client.Patch(fx.ctx, path, map[string]any{"genre": "POLKA"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.Status)

	resp, err = fx.client.Patch(fx.ctx, "/api/music/bands/999999", map[string]any{"name": "Ghost"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.Status)
}

func TestDeleteBandRemovesDependents(t *testing.T) {
	fx := setup(t)
	band, err := testkit.Create[*music.Band](fx.ctx, fx.factory, music.BandDefinition, nil)
	require.NoError(t, err)
	primary, err := testkit.Create[*music.Musician](fx.ctx, fx.factory, music.MusicianDefinition,
		entity.Values{"band_id": band})
	require.NoError(t, err)
	_, err = fx.factory.Create(fx.ctx, music.MembershipDefinition, entity.Values{"band_id": band.ID, "musician_id": primary.ID})
	require.NoError(t, err)
	other, err := testkit.Create[*music.Band](fx.ctx, fx.factory, music.BandDefinition, nil)
	require.NoError(t, err)

	resp, err := fx.client.Delete(fx.ctx, fmt.Sprintf("/api/music/bands/%d", band.ID))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.Status, resp.String())
	assert.Equal(t, "Band deleted successfully", resp.Get("message").String())

	dbtest.AssertRowCount(t, fx.h.DB, "bands", 1)
	dbtest.AssertTableEmpty(t, fx.h.DB, "musicians")
	dbtest.AssertTableEmpty(t, fx.h.DB, "band_memberships")

	resp, err = fx.client.Delete(fx.ctx, fmt.Sprintf("/api/music/bands/%d", band.ID))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.Status)

	resp, err = fx.client.Get(fx.ctx, fmt.Sprintf("/api/music/bands/%d", other.ID))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Status)
}

func TestCreateMusician(t *testing.T) {
	fx := setup(t)
	band, err := testkit.Create[*music.Band](fx.ctx, fx.factory, music.BandDefinition, nil)
	require.NoError(t, err)

	resp, err := fx.client.Post(fx.ctx, "/api/music/musicians", map[string]any{"name": "Paul McCartney", "band_id": band.ID})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.Status, resp.String())
	assert.Equal(t, int64(band.ID), resp.Get("band_id").Int())

	resp, err = fx.client.Post(fx.ctx, "/api/music/musicians", map[string]any{"name": "Nobody", "band_id": 999999})
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.Status)
	dbtest.AssertRowCount(t, fx.h.DB, "musicians", 1)
}

func TestListMusiciansByBand(t *testing.T) {
	fx := setup(t)
	beatles, err := testkit.Create[*music.Band](fx.ctx, fx.factory, music.BandDefinition, entity.Values{"name": "The Beatles"})
	require.NoError(t, err)
	wings, err := testkit.Create[*music.Band](fx.ctx, fx.factory, music.BandDefinition, entity.Values{"name": "Wings"})
	require.NoError(t, err)

	paul, err := testkit.Create[*music.Musician](fx.ctx, fx.factory, music.MusicianDefinition,
		entity.Values{"name": "Paul McCartney", "band_id": beatles})
	require.NoError(t, err)
	_, err = fx.factory.Create(fx.ctx, music.MusicianDefinition, entity.Values{"name": "Denny Laine", "band_id": wings})
	require.NoError(t, err)
	_, err = fx.factory.Create(fx.ctx, music.MembershipDefinition,
		entity.Values{"band_id": wings, "musician_id": paul, "instrument": "BASS"})
	require.NoError(t, err)

	resp, err := fx.client.Get(fx.ctx, fmt.Sprintf("/api/music/musicians?band_id=%d", wings.ID))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.Status, resp.String())
	assert.Equal(t, int64(2), resp.Get("#").Int(), "primary musicians and members")

	resp, err = fx.client.Get(fx.ctx, fmt.Sprintf("/api/music/musicians?band_id=%d", beatles.ID))
	require.NoError(t, err)
	assert.Equal(t, []string{"Paul McCartney"}, names(resp))

	resp, err = fx.client.Get(fx.ctx, "/api/music/musicians?band_id=x")
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.Status)
}

func TestGetUpdateDeleteMusician(t *testing.T) {
	fx := setup(t)
	m, err := testkit.Create[*music.Musician](fx.ctx, fx.factory, music.MusicianDefinition, entity.Values{"name": "Ringo"})
	require.NoError(t, err)
	path := fmt.Sprintf("/api/music/musicians/%d", m.ID)

	resp, err := fx.client.Get(fx.ctx, path)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, int64(m.BandID), resp.Get("band.id").Int())

	resp, err = fx.client.Patch(fx.ctx, path, map[string]any{"name": "Ringo Starr"})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.Status, resp.String())
	assert.Equal(t, "Ringo Starr", resp.Get("name").String())

	resp, err = fx.client.Patch(fx.ctx, path, map[string]any{"band_id": 999999})
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.Status)

	resp, err = fx.client.Delete(fx.ctx, path)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, "Musician deleted successfully", resp.Get("message").String())
	dbtest.AssertTableEmpty(t, fx.h.DB, "musicians")
}

func TestCreateMembership(t *testing.T) {
	fx := setup(t)
	m, err := testkit.Create[*music.Musician](fx.ctx, fx.factory, music.MusicianDefinition, nil)
	require.NoError(t, err)
	other, err := testkit.Create[*music.Band](fx.ctx, fx.factory, music.BandDefinition, nil)
	require.NoError(t, err)

	body := map[string]any{"band_id": other.ID, "musician_id": m.ID, "instrument": "GUITAR"}
	resp, err := fx.client.Post(fx.ctx, "/api/music/memberships", body)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.Status, resp.String())
	assert.Equal(t, "GUITAR", resp.Get("instrument").String())

	resp, err = fx.client.Post(fx.ctx, "/api/music/memberships", body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.Status, "one membership per band")

	resp, err = fx.client.Post(fx.ctx, "/api/music/memberships",
		map[string]any{"band_id": other.ID, "musician_id": m.ID, "instrument": "KAZOO"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.Status)

	dbtest.AssertRowCount(t, fx.h.DB, "band_memberships", 1)
}

func TestOperationalEndpoints(t *testing.T) {
	fx := setup(t)

	resp, err := fx.client.Get(fx.ctx, "/health")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.JSONEq(t, `{"status":"OK","environment":"test"}`, string(resp.Body))

	resp, err = fx.client.Get(fx.ctx, "/metrics")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Contains(t, string(resp.Body), "gotemplate_http_requests_total")
}

func names(resp *testkit.Response) []string {
	var out []string
	for _, r := range resp.Get("#.name").Array() {
		out = append(out, r.String())
	}
	return out
}
