package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// PathCacheLookups counts path cache reads by result (hit, miss, error).
	PathCacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transit_path_cache_lookups_total",
			Help: "Resolved path cache lookups by result.",
		},
		[]string{"result"},
	)

	// PathResolutions counts computed (non-cached) paths by source.
	PathResolutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transit_path_resolutions_total",
			Help: "Route path resolutions by source (waypoints, directions, fallback, none).",
		},
		[]string{"source"},
	)

	DirectionsRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transit_directions_requests_total",
			Help: "Calls to the external directions provider by provider and outcome.",
		},
		[]string{"provider", "outcome"},
	)

	DirectionsLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "transit_directions_latency_seconds",
			Help:    "Latency of external directions requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider"},
	)

	// VehiclePlacements counts placed vehicles by result (snapped, off_route, no_path).
	VehiclePlacements = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transit_vehicle_placements_total",
			Help: "Vehicle placements by snapping result.",
		},
		[]string{"result"},
	)

	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transit_http_requests_total",
			Help: "HTTP requests by method, route template and status code.",
		},
		[]string{"method", "route", "code"},
	)

	HTTPLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "transit_http_request_duration_seconds",
			Help:    "HTTP request latency by route template.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

func init() {
	prometheus.MustRegister(
		PathCacheLookups,
		PathResolutions,
		DirectionsRequests,
		DirectionsLatency,
		VehiclePlacements,
		HTTPRequests,
		HTTPLatency,
	)
}
