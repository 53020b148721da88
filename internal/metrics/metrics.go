// Package metrics exposes Prometheus instrumentation for the console.
// All recording methods are safe to call on a nil *Metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "supermon"

// Metrics groups the collectors recorded by the AMI and status layers.
type Metrics struct {
	poolAcquire   *prometheus.CounterVec
	poolDiscard   *prometheus.CounterVec
	amiDuration   *prometheus.HistogramVec
	amiErrors     *prometheus.CounterVec
	statusFetch   *prometheus.HistogramVec
	nodeOnline    *prometheus.GaugeVec
	lookupResults *prometheus.CounterVec
	eventsOut     *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// New registers the console collectors on reg. A nil reg uses a fresh
// registry, which tests rely on to avoid duplicate registration.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	m := &Metrics{
		poolAcquire: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "ami_pool", Name: "acquire_total",
			Help: "AMI session acquisitions by result (hit, miss, error).",
		}, []string{"result"}),
		poolDiscard: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "ami_pool", Name: "discard_total",
			Help: "AMI sessions discarded by reason.",
		}, []string{"reason"}),
		amiDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "ami", Name: "request_duration_seconds",
			Help:    "AMI action and command round-trip time.",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"action"}),
		amiErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "ami", Name: "errors_total",
			Help: "AMI failures by kind.",
		}, []string{"kind"}),
		statusFetch: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "status", Name: "fetch_duration_seconds",
			Help:    "Node status aggregation time by outcome.",
			Buckets: prometheus.DefBuckets,
		}, []string{"outcome"}),
		nodeOnline: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "node", Name: "online",
			Help: "1 when the last status fetch of the node succeeded.",
		}, []string{"node"}),
		lookupResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "lookup", Name: "searches_total",
			Help: "Lookup sub-searches by source and outcome.",
		}, []string{"source", "outcome"}),
		eventsOut: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "events", Name: "published_total",
			Help: "Events published to the message queue by type and outcome.",
		}, []string{"type", "outcome"}),
		gatherer: reg,
	}

	reg.MustRegister(
		m.poolAcquire, m.poolDiscard, m.amiDuration, m.amiErrors,
		m.statusFetch, m.nodeOnline, m.lookupResults, m.eventsOut,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.HandlerFor(prometheus.NewRegistry(), promhttp.HandlerOpts{})
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// PoolAcquire counts a session acquisition.
func (m *Metrics) PoolAcquire(result string) {
	if m == nil {
		return
	}
	m.poolAcquire.WithLabelValues(result).Inc()
}

// PoolDiscard counts a discarded session.
func (m *Metrics) PoolDiscard(reason string) {
	if m == nil {
		return
	}
	m.poolDiscard.WithLabelValues(reason).Inc()
}

// AMIRequest records the duration of one AMI round trip.
func (m *Metrics) AMIRequest(action string, d time.Duration) {
	if m == nil {
		return
	}
	m.amiDuration.WithLabelValues(action).Observe(d.Seconds())
}

// AMIError counts an AMI failure.
func (m *Metrics) AMIError(kind string) {
	if m == nil {
		return
	}
	m.amiErrors.WithLabelValues(kind).Inc()
}

// StatusFetch records one node status aggregation.
func (m *Metrics) StatusFetch(node string, online bool, d time.Duration) {
	if m == nil {
		return
	}
	outcome, v := "offline", 0.0
	if online {
		outcome, v = "online", 1.0
	}
	m.statusFetch.WithLabelValues(outcome).Observe(d.Seconds())
	m.nodeOnline.WithLabelValues(node).Set(v)
}

// LookupSearch counts one lookup sub-search.
func (m *Metrics) LookupSearch(source string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.lookupResults.WithLabelValues(source, outcome).Inc()
}

// EventPublished counts one published event.
func (m *Metrics) EventPublished(eventType string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.eventsOut.WithLabelValues(eventType, outcome).Inc()
}
