package metric

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "linkport"

// Rejection reasons.
const (
	ReasonOrigin    = "origin"
	ReasonMalformed = "malformed"
	ReasonMethod    = "method"
	ReasonEmpty     = "empty"
	ReasonPanic     = "panic"
)

// Dispatch results.
const (
	DispatchScheduled   = "scheduled"
	DispatchRateLimited = "rate_limited"
	DispatchRefused     = "refused"
	DispatchOpened      = "opened"
	DispatchFailed      = "failed"
)

// Registry holds all application metrics.
//
// All methods are safe to call on a nil *Registry, which records nothing.
type Registry struct {
	reg *prometheus.Registry

	connections   prometheus.Counter
	rejected      *prometheus.CounterVec
	dispatches    *prometheus.CounterVec
	bindFailures  prometheus.Counter
	listenerBound prometheus.Gauge
}

// NewRegistry creates a registry with all linkport metrics and the Go
// runtime collectors registered.
func NewRegistry() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),
		connections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connections_total",
			Help:      "Connections accepted by the link listener",
		}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_rejected_total",
			Help:      "Requests answered without navigation, by reason",
		}, []string{"reason"}),
		dispatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatches_total",
			Help:      "Navigation dispatches, by result",
		}, []string{"result"}),
		bindFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bind_failures_total",
			Help:      "Failed attempts to bind the loopback listener",
		}),
		listenerBound: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "listener_bound",
			Help:      "1 while the link listener holds its socket",
		}),
	}

	r.reg.MustRegister(
		r.connections,
		r.rejected,
		r.dispatches,
		r.bindFailures,
		r.listenerBound,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return r
}

// Gatherer returns the underlying prometheus gatherer.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// RecordConnection counts one accepted connection.
func (r *Registry) RecordConnection() {
	if r == nil {
		return
	}
	r.connections.Inc()
}

// RecordRejected counts a request that produced no navigation.
func (r *Registry) RecordRejected(reason string) {
	if r == nil {
		return
	}
	r.rejected.WithLabelValues(reason).Inc()
}

// RecordDispatch counts a dispatch outcome.
func (r *Registry) RecordDispatch(result string) {
	if r == nil {
		return
	}
	r.dispatches.WithLabelValues(result).Inc()
}

// RecordBindFailure counts a failed bind attempt.
func (r *Registry) RecordBindFailure() {
	if r == nil {
		return
	}
	r.bindFailures.Inc()
}

// SetBound records whether the listener currently holds its socket.
func (r *Registry) SetBound(bound bool) {
	if r == nil {
		return
	}
	if bound {
		r.listenerBound.Set(1)
		return
	}
	r.listenerBound.Set(0)
}
