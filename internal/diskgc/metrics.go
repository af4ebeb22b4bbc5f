package diskgc

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes the disk collector's prometheus instrumentation.
type Metrics struct {
	registry    prometheus.Registerer
	usageMB     prometheus.Gauge
	daysDeleted prometheus.Counter
	mbFreed     prometheus.Counter
}

// InitMetrics registers the collector metrics on the given registerer.
func InitMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		registry: reg,
		usageMB: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "diskgc_usage_megabytes",
				Help:      "Data directory usage after the last collection run",
			},
		),
		daysDeleted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "diskgc_days_deleted_total",
				Help:      "Total number of day directories deleted",
			},
		),
		mbFreed: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "diskgc_megabytes_freed_total",
				Help:      "Total megabytes freed by collection runs",
			},
		),
	}

	reg.MustRegister(m.usageMB, m.daysDeleted, m.mbFreed)
	return m
}

// RecordRun records the outcome of one collection run.
func (m *Metrics) RecordRun(stats Stats) {
	if m == nil {
		return
	}
	m.usageMB.Set(float64(stats.UsageMBAfter))
	m.daysDeleted.Add(float64(stats.DaysDeleted))
	m.mbFreed.Add(float64(stats.MBFreed))
}
