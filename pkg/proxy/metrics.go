package proxy

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// cacheBypassTotal counts reads served without the cache store
	cacheBypassTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "church_cache_bypass_total",
			Help: "Total number of reads that bypassed the cache store",
		},
		[]string{"reason"}, // "disabled", "store_error"
	)

	// cacheInvalidationsTotal counts tenant invalidations
	cacheInvalidationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "church_cache_invalidations_total",
			Help: "Total number of tenant cache invalidations",
		},
		[]string{"result"}, // "success", "error"
	)

	// cacheCoalescedTotal counts reads that waited on another caller's fetch
	cacheCoalescedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "church_cache_coalesced_total",
			Help: "Total number of cache misses served by an in-flight fetch",
		},
	)
)
