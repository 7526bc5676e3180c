// Package metrics exposes the daemon's Prometheus collectors and the
// /metrics HTTP handler. The Panel heartbeat remains a separate JSON
// contract; these collectors are a node-local operational surface.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// API metrics
	APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nexus_api_requests_total",
			Help: "Total number of HTTP API requests by method and status",
		},
		[]string{"method", "status"},
	)

	APIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nexus_api_request_duration_seconds",
			Help:    "HTTP API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	GRPCRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nexus_grpc_requests_total",
			Help: "Total number of gRPC requests by method and code",
		},
		[]string{"method", "code"},
	)

	// Lifecycle metrics
	PowerActionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nexus_power_action_duration_seconds",
			Help:    "Time taken to apply a power action in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"action"},
	)

	InstallRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nexus_install_runs_total",
			Help: "Total number of install pipeline runs by result",
		},
		[]string{"result"},
	)

	WorkloadsRegistered = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "nexus_workloads_registered",
			Help: "Number of workload specs currently in the registry",
		},
	)

	// Event bus metrics
	EventsEmittedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "nexus_events_emitted_total",
			Help: "Total number of lifecycle events emitted to the bus",
		},
	)

	EventsDroppedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "nexus_events_dropped_total",
			Help: "Total number of lifecycle events dropped because the bus was full",
		},
	)
)

func init() {
	prometheus.MustRegister(
		APIRequestsTotal,
		APIRequestDuration,
		GRPCRequestsTotal,
		PowerActionDuration,
		InstallRunsTotal,
		WorkloadsRegistered,
		EventsEmittedTotal,
		EventsDroppedTotal,
	)
}

// Handler returns the HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer measures elapsed time for histogram observations.
type Timer struct {
	start time.Time
}

// NewTimer creates a timer starting now.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Duration returns the elapsed time since the timer was created.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// ObserveDuration records the elapsed time in the given histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Observer) {
	histogram.Observe(t.Duration().Seconds())
}
