package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Namespace for all metrics
const namespace = "csvlog"

// Collector provides a central place for all application metrics
type Collector struct {
	// Writer metrics
	EventsWritten *prometheus.CounterVec
	EventsDropped prometheus.Counter
	BytesWritten  prometheus.Counter
	RenderSeconds prometheus.Histogram

	// Sink metrics
	SinkRotations  prometheus.Gauge
	SinkErrors     prometheus.Counter
	SinkActiveSize prometheus.Gauge

	registry *prometheus.Registry
}

// NewCollector creates a new metrics collector
func NewCollector() *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{registry: registry}

	c.EventsWritten = promauto.With(registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "writer",
			Name:      "events_written_total",
			Help:      "Total number of events rendered and handed to the sink",
		},
		[]string{"level"},
	)

	c.EventsDropped = promauto.With(registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "writer",
			Name:      "events_dropped_total",
			Help:      "Total number of events below the minimum severity",
		},
	)

	c.BytesWritten = promauto.With(registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "writer",
			Name:      "bytes_written_total",
			Help:      "Total bytes of rendered CSV handed to the sink",
		},
	)

	c.RenderSeconds = promauto.With(registry).NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "writer",
			Name:      "render_duration_seconds",
			Help:      "Time spent rendering one CSV line",
			Buckets:   prometheus.ExponentialBuckets(1e-6, 10, 6),
		},
	)

	c.SinkRotations = promauto.With(registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sink",
			Name:      "rotations_total",
			Help:      "Total number of output file rotations",
		},
	)

	c.SinkErrors = promauto.With(registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sink",
			Name:      "errors_total",
			Help:      "Total number of failed sink writes",
		},
	)

	c.SinkActiveSize = promauto.With(registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sink",
			Name:      "active_file_bytes",
			Help:      "Size of the active output file in bytes",
		},
	)

	return c
}

// Handler returns an HTTP handler serving the metrics registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying prometheus registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
