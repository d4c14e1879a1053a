// Package client orchestrates photo queries across the cache, the quota
// limiter, and the Mars Photos API.
//
// FetchPhotos is the single entry point. For each query it normalizes the
// cache key, consults the store, and only on a miss (or an expired entry)
// asks the quota limiter for an outbound slot before calling the API. A
// cache hit never consumes quota. A failed API call does: the remote request
// was made, so the slot is not refunded.
//
// The coordinator performs no retries; transient-failure retries belong to
// the nasaapi client, and quota denials require waiting out the window, which
// is the caller's decision. With StaleFallback enabled (off by default) a
// quota denial is answered with the expired cache entry, flagged stale,
// instead of an error.
//
// # Error taxonomy
//
//   - query.ErrInvalidQuery: malformed query; surfaced before any I/O.
//   - ErrQuotaExceeded: quota consumed and no usable stale entry.
//   - ErrFetchFailed (*FetchError): the API call itself failed.
//   - Storage errors propagate unmodified; the coordinator never masks them.
package client
