// Package metrics exposes the Prometheus instrumentation for a running
// object model: session lifecycle counts, id-range reservation activity,
// and cascade-delete fixpoint behavior (spec.md §4.C1, §4.C6).
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SessionsOpen = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "veloxdb_sessions_open",
			Help: "Number of object model sessions currently open",
		},
	)

	SessionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "veloxdb_sessions_total",
			Help: "Total number of sessions terminated, by outcome",
		},
		[]string{"outcome"}, // commit, rollback, dispose
	)

	IDRangeReservations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "veloxdb_id_range_reservations_total",
			Help: "Total id-range reservations from the engine, by path",
		},
		[]string{"path"}, // foreground, background
	)

	IDRangeReservationFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "veloxdb_id_range_reservation_failures_total",
			Help: "Total id-range reservation failures",
		},
	)

	CascadePassesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "veloxdb_cascade_passes_total",
			Help: "Total cascade-delete fixpoint passes executed",
		},
	)

	CascadeFixpointSize = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "veloxdb_cascade_fixpoint_size",
			Help:    "Number of ids in the deleted set after a cascade fixpoint completes",
			Buckets: prometheus.ExponentialBuckets(1, 2, 16),
		},
	)

	ApplyChangesDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "veloxdb_apply_changes_duration_seconds",
			Help:    "Duration of ApplyChanges calls, including engine submission",
			Buckets: prometheus.DefBuckets,
		},
	)

	ChangesetRows = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "veloxdb_changeset_rows_total",
			Help: "Total changeset rows emitted, by block kind",
		},
		[]string{"kind"}, // insert, update, delete
	)

	IndexFlushesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "veloxdb_index_local_flushes_total",
			Help: "Total times an index lookup flushed local changes before querying the engine",
		},
	)
)

func init() {
	prometheus.MustRegister(SessionsOpen)
	prometheus.MustRegister(SessionsTotal)
	prometheus.MustRegister(IDRangeReservations)
	prometheus.MustRegister(IDRangeReservationFailures)
	prometheus.MustRegister(CascadePassesTotal)
	prometheus.MustRegister(CascadeFixpointSize)
	prometheus.MustRegister(ApplyChangesDuration)
	prometheus.MustRegister(ChangesetRows)
	prometheus.MustRegister(IndexFlushesTotal)
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer times one operation; ObserveDuration reports it to a histogram.
type Timer struct {
	start time.Time
}

func NewTimer() *Timer { return &Timer{start: time.Now()} }

func (t *Timer) ObserveDuration(h prometheus.Histogram) {
	h.Observe(time.Since(t.start).Seconds())
}
