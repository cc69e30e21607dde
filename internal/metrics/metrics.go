// Package metrics exposes Prometheus metrics for the pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	sourceLoadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catchcover_source_loads_total",
			Help: "Authoritative source loads by source kind and result.",
		},
		[]string{"kind", "result"},
	)

	sourceLoadDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "catchcover_source_load_duration_seconds",
			Help:    "Duration of authoritative source loads in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
		},
		[]string{"kind"},
	)

	cacheRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catchcover_cache_requests_total",
			Help: "Collection cache lookups by layer and result.",
		},
		[]string{"layer", "result"},
	)

	geometryOpDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "catchcover_geometry_op_duration_seconds",
			Help:    "Duration of geometry operations in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
		},
		[]string{"op"},
	)
)

// ObserveSourceLoad records one load against the authoritative source.
func ObserveSourceLoad(kind string, err error, seconds float64) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	sourceLoadsTotal.WithLabelValues(kind, result).Inc()
	sourceLoadDurationSeconds.WithLabelValues(kind).Observe(seconds)
}

// ObserveCacheLookup records a cache lookup outcome for one layer
// ("lru" or "store").
func ObserveCacheLookup(layer string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	cacheRequestsTotal.WithLabelValues(layer, result).Inc()
}

// TimeGeometryOp starts a timer for a geometry operation; the returned func
// records the elapsed time when called.
func TimeGeometryOp(op string) func() {
	start := time.Now()
	return func() {
		geometryOpDurationSeconds.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the default registry for scraping.
func Handler() http.Handler {
	return promhttp.Handler()
}
