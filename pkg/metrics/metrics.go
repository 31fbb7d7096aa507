// Package metrics provides the Prometheus registry handle for the site proxy.
// Metrics are defined in their respective packages (cache, client, proxy,
// warmup) to keep them next to the code that updates them.
//
// This package serves them and documents the catalogue.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry used by the site proxy.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Gatherer exposes what Registry collects.
var Gatherer = prometheus.DefaultGatherer

// serviceInfo reports the running configuration as labels.
var serviceInfo = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "church_service_info",
		Help: "Static information about the running site proxy",
	},
	[]string{"version", "mode", "cache_backend"},
)

// SetServiceInfo records the running version, tenant mode and cache backend.
func SetServiceInfo(version, mode, backend string) {
	serviceInfo.Reset()
	serviceInfo.WithLabelValues(version, mode, backend).Set(1)
}

// Handler returns the /metrics endpoint handler.
func Handler() http.Handler {
	return promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{})
}

// Metrics Documentation
//
// Cache Store Metrics (pkg/cache):
//   - church_cache_hits_total{layer} (Counter): Store hits by layer (redis, memory)
//   - church_cache_misses_total{layer} (Counter): Store misses by layer
//   - church_cache_writes_total{layer, result} (Counter): Set-if-absent outcomes (stored, exists)
//   - church_cache_errors_total{operation} (Counter): Store backend errors
//
// Proxy Metrics (pkg/proxy):
//   - church_cache_bypass_total{reason} (Counter): Reads served without the store (disabled, store_error)
//   - church_cache_invalidations_total{result} (Counter): Tenant invalidations
//   - church_cache_coalesced_total (Counter): Misses served by another caller's in-flight fetch
//
// Upstream Metrics (pkg/client):
//   - church_upstream_requests_total{endpoint, status} (Counter): Content API requests
//   - church_upstream_request_duration_seconds{endpoint} (Histogram): Fetch duration
//   - church_upstream_errors_total{class} (Counter): Errors by class (client, server, network, invalid_response)
//   - church_upstream_retries_total{error_class} (Counter): Retry attempts
//
// Warmup Metrics (pkg/warmup):
//   - church_warmup_pages_total{result} (Counter): Pages read after invalidation
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(church_cache_hits_total[5m])) /
//   (sum(rate(church_cache_hits_total[5m])) + sum(rate(church_cache_misses_total[5m])))
//
//   # Degraded Reads (store unavailable)
//   rate(church_cache_bypass_total{reason="store_error"}[5m])
//
//   # Upstream Error Rate
//   rate(church_upstream_errors_total[5m])
//
//   # P95 Upstream Latency
//   histogram_quantile(0.95, rate(church_upstream_request_duration_seconds_bucket[5m]))
