package pipeline

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics records pipeline outcomes on its own registry
type Metrics struct {
	registry *prometheus.Registry

	outcomes *prometheus.CounterVec
	duration *prometheus.HistogramVec
	inFlight prometheus.Gauge
}

// NewMetrics creates the pipeline collectors
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	outcomes := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fueltracker",
			Subsystem: "pipeline",
			Name:      "outcomes_total",
			Help:      "Processed upload events by outcome.",
		},
		[]string{"outcome"},
	)
	duration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fueltracker",
			Subsystem: "pipeline",
			Name:      "duration_seconds",
			Help:      "Upload event processing duration in seconds by outcome.",
			Buckets:   []float64{0.01, 0.1, 0.5, 1, 2, 5, 10, 20, 30, 60},
		},
		[]string{"outcome"},
	)
	inFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "fueltracker",
			Subsystem: "pipeline",
			Name:      "in_flight",
			Help:      "Upload events currently being processed.",
		},
	)

	registry.MustRegister(outcomes, duration, inFlight)

	return &Metrics{
		registry: registry,
		outcomes: outcomes,
		duration: duration,
		inFlight: inFlight,
	}
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) start() func(outcome string) {
	m.inFlight.Inc()
	begin := time.Now()
	return func(outcome string) {
		m.inFlight.Dec()
		m.outcomes.WithLabelValues(outcome).Inc()
		m.duration.WithLabelValues(outcome).Observe(time.Since(begin).Seconds())
	}
}
