// Package metrics owns the Prometheus registry of the journal service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "journal"

// Metrics groups the collectors shared across packages.
type Metrics struct {
	Registry *prometheus.Registry

	BackendCalls    *prometheus.CounterVec
	BackendDuration *prometheus.HistogramVec
	StoreFailures   *prometheus.CounterVec
	ActiveSessions  prometheus.Gauge
	SSEClients      prometheus.Gauge
	ExportedNotes   prometheus.Counter
}

// New registers every collector on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		BackendCalls: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backend",
			Name:      "calls_total",
			Help:      "Persistence backend calls by operation and outcome.",
		}, []string{"op", "outcome"}),
		BackendDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "backend",
			Name:      "call_duration_seconds",
			Help:      "Latency of persistence backend calls.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		StoreFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "failures_total",
			Help:      "Store mutations that failed and were reported to the user.",
		}, []string{"op"}),
		ActiveSessions: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Signed-in users with a loaded store.",
		}),
		SSEClients: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sse",
			Name:      "clients",
			Help:      "Connected Server-Sent Events clients.",
		}),
		ExportedNotes: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "export",
			Name:      "notes_written_total",
			Help:      "Notes written to the export directory.",
		}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}
