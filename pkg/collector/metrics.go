package collector

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collector's Prometheus collectors on a private registry
// so tests and embedders never collide on the global one.
type Metrics struct {
	registry *prometheus.Registry

	reportsReceived *prometheus.CounterVec
	reportsRejected *prometheus.CounterVec
	payloadBytes    prometheus.Histogram
	usagePings      prometheus.Counter
	faultBeacons    prometheus.Counter
}

// NewMetrics creates and registers the collector metrics.
func NewMetrics() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.reportsReceived = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "argusd_reports_received_total",
		Help: "Error reports accepted, by entry kind.",
	}, []string{"entry"})

	m.reportsRejected = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "argusd_reports_rejected_total",
		Help: "Error reports rejected, by reason.",
	}, []string{"reason"})

	m.payloadBytes = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "argusd_payload_bytes",
		Help:    "Size of accepted report payloads.",
		Buckets: prometheus.ExponentialBuckets(256, 4, 8),
	})

	m.usagePings = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "argusd_usage_pings_total",
		Help: "Install beacons received.",
	})

	m.faultBeacons = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "argusd_fault_beacons_total",
		Help: "Agent fault beacons received.",
	})

	m.registry.MustRegister(
		m.reportsReceived,
		m.reportsRejected,
		m.payloadBytes,
		m.usagePings,
		m.faultBeacons,
	)
	return m
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) RecordReceived(entry string, bytes int) {
	m.reportsReceived.WithLabelValues(entry).Inc()
	m.payloadBytes.Observe(float64(bytes))
}

func (m *Metrics) RecordRejected(reason string) {
	m.reportsRejected.WithLabelValues(reason).Inc()
}

func (m *Metrics) RecordUsage() { m.usagePings.Inc() }

func (m *Metrics) RecordFault() { m.faultBeacons.Inc() }
