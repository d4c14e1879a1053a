package store

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks cache hits by backend (memory, sqlite, redis)
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rover_cache_hits_total",
			Help: "Total number of photo cache hits",
		},
		[]string{"backend"},
	)

	// CacheMisses tracks cache misses
	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rover_cache_misses_total",
			Help: "Total number of photo cache misses",
		},
	)

	// CacheErrors tracks store operation errors
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rover_cache_errors_total",
			Help: "Total number of photo cache operation errors",
		},
		[]string{"operation"}, // "get", "put", "sweep"
	)

	// SweepRemoved tracks entries removed by expiry sweeps
	SweepRemoved = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rover_cache_sweep_removed_total",
			Help: "Total number of entries removed by cache sweeps",
		},
	)
)
