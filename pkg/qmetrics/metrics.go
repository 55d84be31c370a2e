// Package qmetrics exposes the engine's Prometheus instrumentation: result
// cache hit/miss/eviction counters, join row-emission counters, and
// allocator memory gauges, all registered through promauto so callers never
// touch the default registry directly.
package qmetrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "resultcache_hits_total",
		Help: "Total number of result cache lookups that found a cached result.",
	})
	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "resultcache_misses_total",
		Help: "Total number of result cache lookups that required a build.",
	})
	CacheEvictions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "resultcache_evictions_total",
		Help: "Total number of result cache entries evicted to stay within budget.",
	})
	CacheJoinedBuilds = promauto.NewCounter(prometheus.CounterOpts{
		Name: "resultcache_joined_builds_total",
		Help: "Total number of GetResult calls that joined an in-flight build instead of starting a new one.",
	})

	JoinRowsEmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "join_rows_emitted_total",
		Help: "Total number of result rows produced by multi-column joins.",
	})
	JoinOutOfOrderRows = promauto.NewCounter(prometheus.CounterOpts{
		Name: "join_out_of_order_rows_total",
		Help: "Total number of rows produced by UNDEF cross-matches that required a post-join sort.",
	})

	AllocatorBytesInUse = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "allocator_bytes_in_use",
		Help: "Current number of bytes reserved from the query memory quota.",
	})

	WorkerPoolInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "qexec_worker_pool_in_flight",
		Help: "Number of operator evaluations currently running in the worker pool.",
	})
)

// Handler returns the HTTP handler that serves the process's metrics in the
// Prometheus text exposition format.
func Handler() http.Handler {
	return promhttp.Handler()
}
