package importer

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts import attempts and their effect.
type Metrics struct {
	attempts *prometheus.CounterVec
	duration prometheus.Histogram
	sessions prometheus.Counter
	created  prometheus.Counter
	skipped  *prometheus.CounterVec
}

// NewMetrics registers the import collectors on reg. A nil reg leaves them
// unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_import_attempts_total",
			Help: "Import attempts by outcome",
		}, []string{"status"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "ledger_import_duration_seconds",
			Help:    "Wall time of one import",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
		sessions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ledger_import_sessions_total",
			Help: "Session lines written by imports",
		}),
		created: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ledger_import_entities_created_total",
			Help: "Entities created on first encounter",
		}),
		skipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_import_skipped_total",
			Help: "Rows, entities and lines absorbed as non-fatal",
		}, []string{"kind"}),
	}
	if reg != nil {
		reg.MustRegister(m.attempts, m.duration, m.sessions, m.created, m.skipped)
	}
	return m
}

func (m *Metrics) observe(status string, started time.Time, r Result) {
	if m == nil {
		return
	}
	m.attempts.WithLabelValues(status).Inc()
	m.duration.Observe(time.Since(started).Seconds())
	m.sessions.Add(float64(r.SessionsImported))
	m.created.Add(float64(r.EntitiesCreated))
	m.skipped.WithLabelValues("row").Add(float64(r.SkippedRows))
	m.skipped.WithLabelValues("entity").Add(float64(r.SkippedEntities))
	m.skipped.WithLabelValues("line").Add(float64(r.DroppedLines))
}
