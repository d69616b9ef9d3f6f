// Package metrics defines the Prometheus collectors of the service. A nil
// *Metrics is valid and records nothing, so components can be used without
// a registry in tests.
package metrics

import (
	"database/sql"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the service collectors
type Metrics struct {
	analysisDuration  *prometheus.HistogramVec
	analyses          *prometheus.CounterVec
	partialFallbacks  *prometheus.CounterVec
	grammarErrors     *prometheus.CounterVec
	dictionaryLookups prometheus.Counter
	tasks             *prometheus.CounterVec
	queueWait         *prometheus.HistogramVec

	dbOpenConnections prometheus.Gauge
	dbInUse           prometheus.Gauge
	dbIdle            prometheus.Gauge
	dbWaitCount       prometheus.Gauge
}

// New registers the collectors under namespace with reg. A nil reg uses the
// default registerer.
func New(namespace string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Metrics{
		analysisDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "analysis_duration_seconds",
			Help:      "Duration of document analyses by mode (full, partial, report).",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"mode"}),
		analyses: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analyses_total",
			Help:      "Document analyses by mode and outcome.",
		}, []string{"mode", "outcome"}),
		partialFallbacks: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "partial_fallbacks_total",
			Help:      "Partial re-analyses that fell back to a full analysis, by reason.",
		}, []string{"reason"}),
		grammarErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "grammar_errors_total",
			Help:      "Tokens flagged by the grammar engine, by error kind.",
		}, []string{"kind"}),
		dictionaryLookups: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dictionary_lookups_total",
			Help:      "Spelling dictionary queries.",
		}),
		tasks: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queue_tasks_total",
			Help:      "Processed queue tasks by type and outcome.",
		}, []string{"type", "outcome"}),
		queueWait: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "queue_wait_seconds",
			Help:      "Time tasks spent in the queue before processing.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 10),
		}, []string{"type"}),
		dbOpenConnections: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "db_open_connections",
			Help:      "Open database connections.",
		}),
		dbInUse: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "db_in_use_connections",
			Help:      "Database connections currently in use.",
		}),
		dbIdle: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "db_idle_connections",
			Help:      "Idle database connections.",
		}),
		dbWaitCount: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "db_wait_count",
			Help:      "Total number of connections waited for.",
		}),
	}
}

// ObserveAnalysis records one analysis
func (m *Metrics) ObserveAnalysis(mode, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.analysisDuration.WithLabelValues(mode).Observe(d.Seconds())
	m.analyses.WithLabelValues(mode, outcome).Inc()
}

// PartialFallback records a partial re-analysis replaced by a full one
func (m *Metrics) PartialFallback(reason string) {
	if m == nil {
		return
	}
	m.partialFallbacks.WithLabelValues(reason).Inc()
}

// GrammarErrors adds flagged token counts by kind
func (m *Metrics) GrammarErrors(byKind map[string]int) {
	if m == nil {
		return
	}
	for kind, n := range byKind {
		m.grammarErrors.WithLabelValues(kind).Add(float64(n))
	}
}

// DictionaryLookups adds n dictionary queries
func (m *Metrics) DictionaryLookups(n int) {
	if m == nil {
		return
	}
	m.dictionaryLookups.Add(float64(n))
}

// TaskProcessed records a processed queue task
func (m *Metrics) TaskProcessed(taskType, outcome string, wait time.Duration) {
	if m == nil {
		return
	}
	m.tasks.WithLabelValues(taskType, outcome).Inc()
	if wait > 0 {
		m.queueWait.WithLabelValues(taskType).Observe(wait.Seconds())
	}
}

// UpdateDBStats copies the connection pool statistics of db into gauges
func (m *Metrics) UpdateDBStats(db *sql.DB) {
	if m == nil || db == nil {
		return
	}
	stats := db.Stats()
	m.dbOpenConnections.Set(float64(stats.OpenConnections))
	m.dbInUse.Set(float64(stats.InUse))
	m.dbIdle.Set(float64(stats.Idle))
	m.dbWaitCount.Set(float64(stats.WaitCount))
}
