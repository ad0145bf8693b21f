// Package metrics provides the Prometheus registry and scrape handler for the page cache.
// All metrics are defined in their respective packages (codec, store, pagecache, jobs)
// to maintain modularity and avoid circular dependencies.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry used by the page cache.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Handler returns the HTTP handler that exposes all registered metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Metrics Documentation
//
// Codec Metrics (pkg/codec):
//   - pagecache_codec_payload_bytes{kind} (Histogram): Encoded payload size by kind (text, value)
//   - pagecache_codec_oversized_total{kind} (Counter): Payloads above the monitoring threshold
//
// Store Metrics (pkg/store):
//   - pagecache_store_connections_total{role} (Counter): Connections created by role (read, write)
//   - pagecache_store_errors_total{operation} (Counter): Failed store operations (fail-open)
//   - pagecache_store_hits_total (Counter): Get calls that returned a value
//   - pagecache_store_misses_total (Counter): Get calls that returned nothing
//   - pagecache_store_refreshes_total (Counter): Forced refresh deletions
//
// Page Cache Metrics (pkg/pagecache):
//   - pagecache_requests_total{outcome} (Counter): Requests by outcome (disabled, skipped, hit, miss)
//   - pagecache_writes_total{result} (Counter): Background writes by result (stored, failed, rejected)
//   - pagecache_device_fallbacks_total (Counter): Device detection failures
//
// Job Metrics (pkg/jobs):
//   - pagecache_jobs_processed_total{queue, result} (Counter): Processed job items by result (ok, failed)
//
// Example Prometheus Queries:
//
//   # Page Hit Rate
//   sum(rate(pagecache_requests_total{outcome="hit"}[5m])) /
//   sum(rate(pagecache_requests_total{outcome=~"hit|miss"}[5m]))
//
//   # Store Error Rate
//   sum by (operation) (rate(pagecache_store_errors_total[5m]))
//
//   # Large Pages
//   histogram_quantile(0.95, rate(pagecache_codec_payload_bytes_bucket{kind="text"}[5m]))
