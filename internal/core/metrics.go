package core

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/JonMunkholm/dataviz/internal/source"
)

// Metrics records load attempts in Prometheus. It is a LoadObserver.
type Metrics struct {
	attempts *prometheus.CounterVec
	duration *prometheus.HistogramVec
	inflight prometheus.Gauge
	rows     prometheus.Histogram
	sessions prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dataviz",
			Name:      "load_attempts_total",
			Help:      "Load attempts by input origin and outcome.",
		}, []string{"origin", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "dataviz",
			Name:      "load_duration_seconds",
			Help:      "Time from attempt start to published result.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60, 300},
		}, []string{"origin"}),
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "dataviz",
			Name:      "loads_in_flight",
			Help:      "Load attempts currently running.",
		}),
		rows: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "dataviz",
			Name:      "loaded_rows",
			Help:      "Row count of successfully displayed tables.",
			Buckets:   prometheus.ExponentialBuckets(10, 10, 7),
		}),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "dataviz",
			Name:      "sessions",
			Help:      "Live sessions after the last reaper sweep.",
		}),
	}

	reg.MustRegister(m.attempts, m.duration, m.inflight, m.rows, m.sessions)
	return m
}

func (m *Metrics) LoadStarted(source.Origin) {
	m.inflight.Inc()
}

func (m *Metrics) LoadFinished(origin source.Origin, outcome Outcome, snap Snapshot, elapsed time.Duration) {
	m.inflight.Dec()
	m.attempts.WithLabelValues(origin.String(), string(outcome)).Inc()
	m.duration.WithLabelValues(origin.String()).Observe(elapsed.Seconds())
	if outcome == OutcomeSuccess {
		m.rows.Observe(float64(snap.Rows))
	}
}

func (m *Metrics) SetSessions(n int) {
	m.sessions.Set(float64(n))
}
