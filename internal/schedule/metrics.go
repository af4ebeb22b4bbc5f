package schedule

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes the schedule runner's prometheus instrumentation.
type Metrics struct {
	registry          prometheus.Registerer
	entriesRegistered prometheus.Gauge
	runsTotal         *prometheus.CounterVec
	runDuration       *prometheus.HistogramVec
}

// InitMetrics registers the runner metrics on the given registerer.
func InitMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		registry: reg,
		entriesRegistered: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "schedule_entries_registered",
				Help:      "Number of schedule entries currently registered",
			},
		),
		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "schedule_runs_total",
				Help:      "Total number of scheduled command runs",
			},
			[]string{"command", "status"},
		),
		runDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "schedule_run_duration_seconds",
				Help:      "Duration of scheduled command runs",
				Buckets:   []float64{.1, .5, 1, 5, 10, 30, 60, 120, 300},
			},
			[]string{"command"},
		),
	}

	reg.MustRegister(m.entriesRegistered, m.runsTotal, m.runDuration)
	return m
}

// SetEntries records the number of registered entries.
func (m *Metrics) SetEntries(n int) {
	if m == nil {
		return
	}
	m.entriesRegistered.Set(float64(n))
}

// RecordRun records the outcome of one scheduled command run.
func (m *Metrics) RecordRun(command string, failed bool, duration time.Duration) {
	if m == nil {
		return
	}
	status := "ok"
	if failed {
		status = "error"
	}
	m.runsTotal.WithLabelValues(command, status).Inc()
	m.runDuration.WithLabelValues(command).Observe(duration.Seconds())
}
