package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestTotal counts HTTP requests by method, route template and status code.
	RequestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tppms_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "code"},
	)
	// RequestDuration is the latency of HTTP requests.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tppms_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
	// OverallocationChecks counts overallocation checks by outcome: within_limit, over_limit, degraded, failed.
	OverallocationChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tppms_overallocation_checks_total",
			Help: "Total number of overallocation checks",
		},
		[]string{"result"},
	)
	// AllocationEvents counts allocation domain events by type.
	AllocationEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tppms_allocation_events_total",
			Help: "Total number of allocation events",
		},
		[]string{"type"},
	)
)
