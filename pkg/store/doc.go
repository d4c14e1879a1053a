// Package store implements the durable response store for Mars photo queries.
//
// The store is a key-value mapping from canonical query keys to timestamped
// response entries. Entries are immutable once written: a re-fetch overwrites
// the whole entry, it is never patched in place, and concurrent readers never
// observe a partially written entry.
//
// Three backends are provided:
//
//   - Memory: per-process map, lost on restart. Useful for tests and for
//     callers that explicitly opt out of cross-run caching.
//   - SQLite: the default. A single database file holds both cache entries
//     and the quota window, so two CLI invocations sharing the file also
//     share their request budget.
//   - Redis: shared durable backend for long-lived deployments where several
//     processes use the same API credential.
//
// Expiry is a read-side policy owned by the coordinator; the store itself
// never removes entries except through an explicit Sweep.
//
// # Basic Usage
//
//	st, err := store.OpenSQLite("/var/lib/rover-photos/cache.db")
//	if err != nil {
//		return err
//	}
//	defer st.Close()
//
//	entry, err := st.Get(ctx, key)
//	if errors.Is(err, store.ErrCacheMiss) {
//		// fetch from the API, then:
//		// st.Put(ctx, key, payload, q)
//	}
//
// # Metrics
//
// The package exports Prometheus metrics:
//
//   - rover_cache_hits_total{backend} - Cache hits
//   - rover_cache_misses_total - Cache misses
//   - rover_cache_errors_total{operation} - Store operation errors
//   - rover_cache_sweep_removed_total - Entries removed by sweeps
package store
