package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// overlay engine.
type Metrics struct {
	OverlaysActive prometheus.Gauge
	Renders        *prometheus.CounterVec // labels: hazard_type, outcome={create,update,teardown,skip}
	TickDuration   prometheus.Histogram

	// Selection and sequence playback.
	SelectionChanges    prometheus.Counter
	SequenceResolutions *prometheus.CounterVec // labels: mode={intra,cross}, outcome={resolved,empty,error}
	SequenceActive      prometheus.Gauge

	// Correlation query client.
	CorrelationRequests *prometheus.CounterVec   // labels: outcome={success,empty,error}
	CorrelationCache    *prometheus.CounterVec   // labels: result={hit,miss,evict}
	CorrelationDuration *prometheus.HistogramVec // labels: target_type
}

// NewMetrics creates and registers all engine metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.OverlaysActive,
		m.Renders,
		m.TickDuration,
		m.SelectionChanges,
		m.SequenceResolutions,
		m.SequenceActive,
		m.CorrelationRequests,
		m.CorrelationCache,
		m.CorrelationDuration,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		OverlaysActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "hazard_overlay",
			Name:      "overlays_active",
			Help:      "Number of hazard types with a live overlay binding.",
		}),
		Renders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hazard_overlay",
			Name:      "renders_total",
			Help:      "Render dispatches by hazard type and outcome.",
		}, []string{"hazard_type", "outcome"}),
		TickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "hazard_overlay",
			Name:      "tick_duration_seconds",
			Help:      "Duration of one cursor-tick fan-out across overlays.",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}),
		SelectionChanges: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hazard_overlay",
			Name:      "selection_changes_total",
			Help:      "Total selection and deselection events.",
		}),
		SequenceResolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hazard_overlay",
			Name:      "sequence_resolutions_total",
			Help:      "Sequence resolution attempts by mode and outcome.",
		}, []string{"mode", "outcome"}),
		SequenceActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "hazard_overlay",
			Name:      "sequence_active",
			Help:      "1 when a sequence is resolving or playing, 0 otherwise.",
		}),
		CorrelationRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hazard_overlay",
			Name:      "correlation_requests_total",
			Help:      "Correlation query requests by outcome.",
		}, []string{"outcome"}),
		CorrelationCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hazard_overlay",
			Name:      "correlation_cache_total",
			Help:      "Correlation cache lookups by result.",
		}, []string{"result"}),
		CorrelationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "hazard_overlay",
			Name:      "correlation_duration_seconds",
			Help:      "Correlation upstream request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"target_type"}),
	}
}
