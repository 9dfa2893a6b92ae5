package agent

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the agent's self-observation counters on a private registry
// so installing the agent never collides with the host application's own
// prometheus setup.
type Metrics struct {
	reportsSent       *prometheus.CounterVec
	reportsDeduped    prometheus.Counter
	reportsThrottled  prometheus.Counter
	reportsDropped    *prometheus.CounterVec
	transportAttempts *prometheus.CounterVec
	logEvictions      *prometheus.CounterVec
	configReloads     prometheus.Counter

	registry *prometheus.Registry
}

// NewMetrics creates the agent metrics on a fresh registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		reportsSent: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "argus_reports_sent_total",
				Help: "Reports handed to the transmission pipeline, by entry kind",
			},
			[]string{"entry"},
		),
		reportsDeduped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "argus_reports_deduped_total",
				Help: "Reports rejected as consecutive duplicates",
			},
		),
		reportsThrottled: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "argus_reports_throttled_total",
				Help: "Reports rejected by the rolling admission window",
			},
		),
		reportsDropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "argus_reports_dropped_total",
				Help: "Reports dropped before transmission, by reason",
			},
			[]string{"reason"},
		),
		transportAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "argus_transport_attempts_total",
				Help: "Delivery attempts by channel and outcome",
			},
			[]string{"channel", "outcome"},
		),
		logEvictions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "argus_log_evictions_total",
				Help: "Event log entries evicted by capacity, by category",
			},
			[]string{"category"},
		),
		configReloads: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "argus_config_reloads_total",
				Help: "Configuration hot reloads applied",
			},
		),
	}

	registry.MustRegister(
		m.reportsSent,
		m.reportsDeduped,
		m.reportsThrottled,
		m.reportsDropped,
		m.transportAttempts,
		m.logEvictions,
		m.configReloads,
	)
	m.registry = registry
	return m
}

// Handler exposes the agent registry for scraping.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordSent counts a report handed to the pipeline.
func (m *Metrics) RecordSent(entry string) {
	m.reportsSent.WithLabelValues(entry).Inc()
}

// RecordDeduped counts a consecutive-duplicate rejection.
func (m *Metrics) RecordDeduped() {
	m.reportsDeduped.Inc()
}

// RecordThrottled counts a rate-window rejection.
func (m *Metrics) RecordThrottled() {
	m.reportsThrottled.Inc()
}

// RecordDropped counts a report dropped before transmission.
func (m *Metrics) RecordDropped(reason string) {
	m.reportsDropped.WithLabelValues(reason).Inc()
}

// RecordTransport counts a delivery attempt outcome.
func (m *Metrics) RecordTransport(channel string, success bool) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	m.transportAttempts.WithLabelValues(channel, outcome).Inc()
}

// RecordEviction counts a capacity eviction.
func (m *Metrics) RecordEviction(category string) {
	m.logEvictions.WithLabelValues(category).Inc()
}

// RecordConfigReload counts an applied hot reload.
func (m *Metrics) RecordConfigReload() {
	m.configReloads.Inc()
}
