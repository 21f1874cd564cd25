package replication

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics счетчики репликации по коллекциям
type Metrics struct {
	pulled   *prometheus.CounterVec
	pushed   *prometheus.CounterVec
	rejected *prometheus.CounterVec
	errors   *prometheus.CounterVec
	cycle    *prometheus.HistogramVec
}

// NewMetrics регистрирует метрики в reg; nil reg оставляет их незарегистрированными
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		pulled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "memorize",
			Subsystem: "replication",
			Name:      "pulled_documents_total",
			Help:      "Documents received from the remote and applied locally.",
		}, []string{"collection"}),
		pushed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "memorize",
			Subsystem: "replication",
			Name:      "pushed_documents_total",
			Help:      "Documents acknowledged by the remote.",
		}, []string{"collection"}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "memorize",
			Subsystem: "replication",
			Name:      "rejected_documents_total",
			Help:      "Documents rejected by the remote.",
		}, []string{"collection"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "memorize",
			Subsystem: "replication",
			Name:      "errors_total",
			Help:      "Replication errors by kind.",
		}, []string{"collection", "kind"}),
		cycle: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "memorize",
			Subsystem: "replication",
			Name:      "cycle_duration_seconds",
			Help:      "Duration of a pull and push cycle.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"collection"}),
	}
	if reg != nil {
		reg.MustRegister(m.pulled, m.pushed, m.rejected, m.errors, m.cycle)
	}
	return m
}
