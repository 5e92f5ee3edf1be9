package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce            sync.Once
	dashboardRequestsTotal  *prometheus.CounterVec
	dashboardLatencySeconds *prometheus.HistogramVec
	dashboardErrorsTotal    *prometheus.CounterVec
	dashboardBuildsTotal    *prometheus.CounterVec
	dashboardBuildSeconds   *prometheus.HistogramVec
)

// RegisterMetrics initialises the Prometheus collectors used by the dashboard API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		dashboardRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dashboard_requests_total",
			Help: "Total number of dashboard API requests served.",
		}, []string{"method", "route", "status"})

		dashboardLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dashboard_latency_seconds",
			Help:    "Latency distribution for dashboard API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		dashboardErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dashboard_errors_total",
			Help: "Total number of error responses returned by dashboard endpoints.",
		}, []string{"method", "route", "status"})

		dashboardBuildsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dashboard_builds_total",
			Help: "Dashboard payload builds by role and cache outcome.",
		}, []string{"role", "cache"})

		dashboardBuildSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dashboard_build_seconds",
			Help:    "Time spent aggregating a dashboard payload.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"role"})

		prometheus.MustRegister(
			dashboardRequestsTotal,
			dashboardLatencySeconds,
			dashboardErrorsTotal,
			dashboardBuildsTotal,
			dashboardBuildSeconds,
		)
	})
}

// DashboardRequests exposes the counter for dashboard requests.
func DashboardRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return dashboardRequestsTotal
}

// DashboardLatency exposes the latency histogram for dashboard requests.
func DashboardLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return dashboardLatencySeconds
}

// DashboardErrors exposes the counter for dashboard error responses.
func DashboardErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return dashboardErrorsTotal
}

// DashboardBuilds exposes the counter of payload builds.
func DashboardBuilds() *prometheus.CounterVec {
	RegisterMetrics()
	return dashboardBuildsTotal
}

// DashboardBuildDuration exposes the payload build histogram.
func DashboardBuildDuration() *prometheus.HistogramVec {
	RegisterMetrics()
	return dashboardBuildSeconds
}
