package watchdog

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes the watchdog's prometheus instrumentation.
type Metrics struct {
	registry  prometheus.Registerer
	acquiring *prometheus.GaugeVec
	restarts  prometheus.Counter
}

// InitMetrics registers the watchdog metrics on the given registerer.
func InitMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		registry: reg,
		acquiring: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "watchdog_product_acquiring",
				Help:      "Whether new files of each data product appeared during the last check (1 yes, 0 no)",
			},
			[]string{"product"},
		),
		restarts: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "watchdog_restarts_total",
				Help:      "Total number of acquisition restarts issued by the watchdog",
			},
		),
	}

	reg.MustRegister(m.acquiring, m.restarts)
	return m
}

// SetAcquiring records the outcome of one data-presence check.
func (m *Metrics) SetAcquiring(seen map[Product]bool) {
	if m == nil {
		return
	}
	for product, ok := range seen {
		v := 0.0
		if ok {
			v = 1
		}
		m.acquiring.WithLabelValues(string(product)).Set(v)
	}
}

// IncRestarts counts one restart of the acquisition.
func (m *Metrics) IncRestarts() {
	if m == nil {
		return
	}
	m.restarts.Inc()
}
