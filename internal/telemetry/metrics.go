package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var CheckRequestsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "lightbridge_authz",
		Subsystem: "grpc",
		Name:      "check_requests_total",
		Help:      "Total number of ext_authz Check requests by decision.",
	},
	[]string{"decision"},
)

var CheckDuration = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: "lightbridge_authz",
		Subsystem: "grpc",
		Name:      "check_duration_seconds",
		Help:      "Latency of ext_authz Check requests in seconds.",
		Buckets:   []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5},
	},
)

var HTTPRequestsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "lightbridge_authz",
		Subsystem: "rest",
		Name:      "requests_total",
		Help:      "Total number of REST management-plane requests.",
	},
	[]string{"method", "path", "status"},
)

var HTTPRequestDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "lightbridge_authz",
		Subsystem: "rest",
		Name:      "request_duration_seconds",
		Help:      "Latency of REST management-plane requests in seconds.",
		Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	},
	[]string{"method", "path", "status"},
)

var DBPoolAcquireDuration = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: "lightbridge_authz",
		Subsystem: "db",
		Name:      "pool_acquire_duration_seconds",
		Help:      "Time spent acquiring a connection from the database pool.",
		Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.5},
	},
)

var JWKSFetchesTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "lightbridge_authz",
		Subsystem: "bearer",
		Name:      "jwks_fetches_total",
		Help:      "Total number of JWKS document fetches by outcome.",
	},
	[]string{"outcome"},
)

// All returns every collector for registration on the service's dedicated registry.
func All() []prometheus.Collector {
	return []prometheus.Collector{
		CheckRequestsTotal,
		CheckDuration,
		HTTPRequestsTotal,
		HTTPRequestDuration,
		DBPoolAcquireDuration,
		JWKSFetchesTotal,
	}
}

// NewRegistry builds a Prometheus registry carrying the Go/process
// collectors plus every collector returned by All().
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	for _, c := range All() {
		reg.MustRegister(c)
	}
	return reg
}
