// Package metrics provides Prometheus instrumentation for kvadminer. It
// exposes a gauge for cached store sessions, counters for connection churn
// and errors, and a histogram for request latency.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ActiveSessions tracks the number of sessions holding a cached store handle.
	ActiveSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "kvadmin_active_sessions",
		Help: "Current number of sessions with a cached store connection",
	})

	// ConnectionsCreated counts store handles built by the session cache,
	// labeled by result: "ok" or "error".
	ConnectionsCreated = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "kvadmin_connections_created_total",
		Help: "Total number of store connection handles created",
	}, []string{"result"})

	// SessionsEvicted counts sessions removed by the inactivity sweep.
	SessionsEvicted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "kvadmin_sessions_evicted_total",
		Help: "Total number of sessions evicted for inactivity",
	})

	// RequestDuration records HTTP handler latency, labeled by operation.
	RequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "kvadmin_request_duration_seconds",
		Help:    "HTTP request handling latency in seconds",
		Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
	}, []string{"op"}) // op = "get", "set", "delete", "keys"

	// Errors counts errors returned to clients, labeled by error kind.
	Errors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "kvadmin_errors_total",
		Help: "Total number of errors returned to clients",
	}, []string{"kind"})
)

func init() {
	prometheus.MustRegister(
		ActiveSessions,
		ConnectionsCreated,
		SessionsEvicted,
		RequestDuration,
		Errors,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
