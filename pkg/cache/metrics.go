package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks cache hits by layer
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "church_cache_hits_total",
			Help: "Total number of cache store hits",
		},
		[]string{"layer"}, // "redis", "memory"
	)

	// CacheMisses tracks cache misses by layer
	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "church_cache_misses_total",
			Help: "Total number of cache store misses",
		},
		[]string{"layer"},
	)

	// CacheWrites tracks set-if-absent outcomes
	CacheWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "church_cache_writes_total",
			Help: "Total number of cache writes by outcome",
		},
		[]string{"layer", "result"}, // "stored", "exists"
	)

	// CacheErrors tracks cache operation errors
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "church_cache_errors_total",
			Help: "Total number of cache operation errors",
		},
		[]string{"operation"}, // "get", "add", "get_int", "incr"
	)
)
