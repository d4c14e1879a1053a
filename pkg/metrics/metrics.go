// Package metrics provides the centralized Prometheus metrics registry for
// the rover photos client. All metrics are defined in their respective
// packages (store, quota, nasaapi, client) to maintain modularity and avoid
// circular dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the rover photos
// client. All metrics are automatically registered via promauto in their
// respective packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Cache Metrics (pkg/store):
//   - rover_cache_hits_total{backend} (Counter): Cache hits by backend (memory, sqlite, redis)
//   - rover_cache_misses_total{backend} (Counter): Cache misses by backend
//   - rover_cache_errors_total{operation} (Counter): Cache operation errors
//   - rover_cache_sweep_removed_total (Counter): Entries removed by sweeps
//
// Quota Metrics (pkg/quota):
//   - rover_quota_admitted_total (Counter): Fetches admitted against the hourly budget
//   - rover_quota_denied_total (Counter): Fetches denied by the hourly budget
//   - rover_quota_window_count (Gauge): Fetches consumed in the current window
//
// Request Metrics (pkg/nasaapi):
//   - rover_api_requests_total{status} (Counter): Mars Photos API requests by HTTP status
//   - rover_api_request_duration_seconds (Histogram): Mars Photos API request duration
//   - rover_api_retries_total{error_class} (Counter): Retry attempts by error class
//   - rover_api_retry_exhausted_total{error_class} (Counter): Requests that exhausted max retries
//
// Coordinator Metrics (pkg/client):
//   - rover_fetches_total{outcome} (Counter): Fetch outcomes (hit, fetched, stale, quota_denied, fetch_error)
//   - rover_fetch_duration_seconds (Histogram): End-to-end fetch duration
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(rover_cache_hits_total[5m])) /
//   (sum(rate(rover_cache_hits_total[5m])) + sum(rate(rover_cache_misses_total[5m])))
//
//   # Hourly Budget Pressure
//   rover_quota_window_count
//
//   # Denied Fetch Rate
//   rate(rover_fetches_total{outcome="quota_denied"}[5m])
//
//   # P95 API Latency
//   histogram_quantile(0.95, rate(rover_api_request_duration_seconds_bucket[5m]))
