package metrics

import (
	"database/sql"
	"errors"
	"time"

	"github.com/eleven-am/dishdb/pkg/orm"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector records statement counts, latencies and failures. It
// satisfies orm.MetricsCollector.
type Collector struct {
	queriesTotal  *prometheus.CounterVec
	queryDuration *prometheus.HistogramVec
	queryErrors   *prometheus.CounterVec
}

var _ orm.MetricsCollector = (*Collector)(nil)

// NewCollector registers the statement metrics on reg under namespace
func NewCollector(reg prometheus.Registerer, namespace string) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		queriesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "queries_total",
				Help:      "Total number of executed statements",
			},
			[]string{"operation", "table", "status"},
		),
		queryDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "query_duration_seconds",
				Help:      "Statement latency in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation", "table"},
		),
		queryErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "query_errors_total",
				Help:      "Total number of failed statements by error kind",
			},
			[]string{"operation", "table", "kind"},
		),
	}
}

// ObserveQuery records one executed statement
func (c *Collector) ObserveQuery(operation, table string, duration time.Duration, err error) {
	if table == "" {
		table = "raw"
	}

	status := "ok"
	if err != nil {
		status = "error"
		c.queryErrors.WithLabelValues(operation, table, ErrorKind(err)).Inc()
	}

	c.queriesTotal.WithLabelValues(operation, table, status).Inc()
	c.queryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
}

// RegisterPool exposes database/sql pool statistics for db under name
func RegisterPool(reg prometheus.Registerer, db *sql.DB, name string) error {
	return reg.Register(collectors.NewDBStatsCollector(db, name))
}

// ErrorKind maps an error to a low-cardinality label value
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, orm.ErrDuplicateKey):
		return "duplicate_key"
	case errors.Is(err, orm.ErrForeignKey):
		return "foreign_key"
	case errors.Is(err, orm.ErrNotNull):
		return "not_null"
	case errors.Is(err, orm.ErrCheckConstraint):
		return "check_constraint"
	case errors.Is(err, orm.ErrTimeout):
		return "timeout"
	case errors.Is(err, orm.ErrCanceled):
		return "canceled"
	case errors.Is(err, orm.ErrConnectionFailed):
		return "connection"
	case orm.IsGuardError(err):
		return "validation"
	default:
		return "other"
	}
}
