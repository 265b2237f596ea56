// Package obsmetrics exposes Warden's own Prometheus instrumentation,
// grounded on the teacher's prometheus/client_golang dependency and on
// 99souls-ariadne's telemetry/metrics/prometheus.go registry-construction
// idiom (a dedicated prometheus.Registry + promhttp.HandlerFor, rather than
// the global default registry).
package obsmetrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Warden's counters, named per SPEC_FULL.md §10's instrumentation
// list: samples ingested, bus sends/receives, alarm transitions, store
// write failures.
type Metrics struct {
	registry *prometheus.Registry

	SamplesIngested  prometheus.Counter
	BusSendsTotal    *prometheus.CounterVec
	BusReceivesTotal *prometheus.CounterVec
	AlarmTransitions *prometheus.CounterVec
	StoreWriteErrors *prometheus.CounterVec
}

// New builds and registers Warden's counters on a dedicated registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		SamplesIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "warden_samples_ingested_total",
			Help: "Metric samples accepted by the ingress.",
		}),
		BusSendsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "warden_bus_sends_total",
			Help: "Messages sent to the bus, by topic and outcome.",
		}, []string{"topic", "outcome"}),
		BusReceivesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "warden_bus_receives_total",
			Help: "Messages received from the bus, by topic.",
		}, []string{"topic"}),
		AlarmTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "warden_alarm_transitions_total",
			Help: "Alarm state transitions emitted by the threshold engine, by new state.",
		}, []string{"state"}),
		StoreWriteErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "warden_store_write_errors_total",
			Help: "Document-store write failures, by doc type.",
		}, []string{"doc_type"}),
	}

	reg.MustRegister(m.SamplesIngested, m.BusSendsTotal, m.BusReceivesTotal, m.AlarmTransitions, m.StoreWriteErrors)
	return m
}

// Handler exposes the registry on /metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
