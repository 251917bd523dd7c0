package database

import (
	"errors"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

// QueryCounter is a gorm plugin that counts executed statements by
// operation. Tests use Get and Reset to assert how many queries a code path
// issues; the Prometheus vector exposes the same counts on /metrics.
type QueryCounter struct {
	total   atomic.Int64
	counter *prometheus.CounterVec
}

var _ gorm.Plugin = (*QueryCounter)(nil)

// NewQueryCounter creates a counter registered with reg. A nil reg skips
// registration. Registering twice reuses the collector already present.
func NewQueryCounter(reg prometheus.Registerer) (*QueryCounter, error) {
	vec := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gotemplate",
		Subsystem: "db",
		Name:      "queries_total",
		Help:      "SQL statements executed, by operation.",
	}, []string{"operation"})

	if reg != nil {
		if err := reg.Register(vec); err != nil {
			var are prometheus.AlreadyRegisteredError
			if !errors.As(err, &are) {
				return nil, err
			}
			existing, ok := are.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				return nil, err
			}
			vec = existing
		}
	}
	return &QueryCounter{counter: vec}, nil
}

func (q *QueryCounter) Name() string { return "gotemplate:query_counter" }

// Initialize hooks the counter after every statement-producing callback.
func (q *QueryCounter) Initialize(db *gorm.DB) error {
	cb := db.Callback()
	hooks := []struct {
		op  string
		err error
	}{
		{"create", cb.Create().After("gorm:create").Register("gotemplate:count_create", q.hook("create"))},
		{"query", cb.Query().After("gorm:query").Register("gotemplate:count_query", q.hook("query"))},
		{"update", cb.Update().After("gorm:update").Register("gotemplate:count_update", q.hook("update"))},
		{"delete", cb.Delete().After("gorm:delete").Register("gotemplate:count_delete", q.hook("delete"))},
		{"row", cb.Row().After("gorm:row").Register("gotemplate:count_row", q.hook("row"))},
		{"raw", cb.Raw().After("gorm:raw").Register("gotemplate:count_raw", q.hook("raw"))},
	}
	for _, h := range hooks {
		if h.err != nil {
			return h.err
		}
	}
	return nil
}

func (q *QueryCounter) hook(op string) func(*gorm.DB) {
	return func(db *gorm.DB) {
		if db.Statement == nil || db.Statement.SQL.Len() == 0 {
			return
		}
		q.total.Add(1)
		q.counter.WithLabelValues(op).Inc()
	}
}

// Get returns the statements counted since the last Reset.
func (q *QueryCounter) Get() int64 {
	return q.total.Load()
}

// Reset zeroes the in-process total. The Prometheus counter is monotonic
// and is left untouched.
func (q *QueryCounter) Reset() {
	q.total.Store(0)
}
