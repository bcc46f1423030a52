package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the risk
// computation engine.
type Metrics struct {
	CyclesCompleted prometheus.Counter
	CycleErrors     prometheus.Counter
	CycleDuration   prometheus.Histogram
	EngineRunning   prometheus.Gauge

	ZonesAssessed  prometheus.Counter
	SpilloverZones prometheus.Counter
	MLPredictions  *prometheus.CounterVec // labels: outcome={success,degraded,error,timeout}

	AllocatedUnits *prometheus.CounterVec // labels: resource
	PublishErrors  prometheus.Counter
}

// NewMetrics creates and registers all engine metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.CyclesCompleted,
		m.CycleErrors,
		m.CycleDuration,
		m.EngineRunning,
		m.ZonesAssessed,
		m.SpilloverZones,
		m.MLPredictions,
		m.AllocatedUnits,
		m.PublishErrors,
	)
	return m
}

// NewMetricsForTesting creates Metrics without touching the default registry,
// avoiding "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		CyclesCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "riskcore",
			Name:      "cycles_completed_total",
			Help:      "Total risk computation cycles committed.",
		}),
		CycleErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "riskcore",
			Name:      "cycle_errors_total",
			Help:      "Total cycles abandoned before commit.",
		}),
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "riskcore",
			Name:      "cycle_duration_seconds",
			Help:      "Duration of a complete assess-allocate-commit cycle.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}),
		EngineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "riskcore",
			Name:      "engine_running",
			Help:      "1 when the cycle engine is active, 0 when shut down.",
		}),
		ZonesAssessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "riskcore",
			Name:      "zones_assessed_total",
			Help:      "Total per-zone risk assessments produced.",
		}),
		SpilloverZones: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "riskcore",
			Name:      "spillover_zones_total",
			Help:      "Total zones whose risk was amplified by neighbor spillover.",
		}),
		MLPredictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "riskcore",
			Name:      "ml_predictions_total",
			Help:      "ML prediction attempts by outcome.",
		}, []string{"outcome"}),
		AllocatedUnits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "riskcore",
			Name:      "allocated_units_total",
			Help:      "Resource units allocated, by resource type.",
		}, []string{"resource"}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "riskcore",
			Name:      "publish_errors_total",
			Help:      "Failed attempts to publish a committed cycle downstream.",
		}),
	}
}
