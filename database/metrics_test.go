package database

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	counter, err := NewQueryCounter(reg)
	require.NoError(t, err)

	db := openTemp(t, counter)
	require.NoError(t, db.GormDB.Exec("CREATE TABLE bands (id INTEGER PRIMARY KEY, name TEXT)").Error)
	counter.Reset()

	require.NoError(t, db.GormDB.Exec("INSERT INTO bands (name) VALUES ('Queen')").Error)
	var names []string
	require.NoError(t, db.GormDB.Table("bands").Pluck("name", &names).Error)

	assert.Equal(t, int64(2), counter.Get())
	assert.Equal(t, []string{"Queen"}, names)
	assert.Equal(t, float64(1), testutil.ToFloat64(counter.counter.WithLabelValues("query")))

	counter.Reset()
	assert.Zero(t, counter.Get())
}

func TestQueryCounterReusesRegisteredCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewQueryCounter(reg)
	require.NoError(t, err)
	second, err := NewQueryCounter(reg)
	require.NoError(t, err)

	assert.Same(t, first.counter, second.counter)
}
