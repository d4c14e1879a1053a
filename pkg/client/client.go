package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/marsimaging/rover-photos/pkg/logging"
	"github.com/marsimaging/rover-photos/pkg/query"
	"github.com/marsimaging/rover-photos/pkg/quota"
	"github.com/marsimaging/rover-photos/pkg/store"
)

// TTLDisabled makes cached entries valid forever. It is the default: the
// photo archive is immutable, so old responses rarely go bad.
const TTLDisabled = time.Duration(-1)

// Prometheus metrics for coordinator operations.
var (
	fetchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rover_fetches_total",
		Help: "Total photo fetches by outcome",
	}, []string{"outcome"}) // "hit", "fetched", "stale", "quota_denied", "fetch_error"

	fetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "rover_fetch_duration_seconds",
		Help:    "Photo fetch duration in seconds, including cache hits",
		Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 2, 5, 10},
	})
)

// Fetcher is the remote collaborator that performs the actual API call.
// *nasaapi.Client implements it.
type Fetcher interface {
	Fetch(ctx context.Context, q query.Query) ([]byte, error)
}

// Config holds the coordinator configuration.
type Config struct {
	// Store holds cached responses. Required.
	Store store.Store

	// Limiter admits outbound API requests. Required.
	Limiter quota.Limiter

	// Fetcher performs the remote call. Required.
	Fetcher Fetcher

	// TTL is the maximum entry age treated as fresh on read. TTLDisabled
	// (the default) means entries never expire; zero means every read is
	// a miss.
	TTL time.Duration

	// StaleFallback serves an expired entry, flagged stale, when the
	// quota is consumed. Off by default.
	StaleFallback bool
}

// DefaultConfig returns a configuration with the given collaborators and
// no expiry.
func DefaultConfig(st store.Store, limiter quota.Limiter, fetcher Fetcher) Config {
	return Config{
		Store:         st,
		Limiter:       limiter,
		Fetcher:       fetcher,
		TTL:           TTLDisabled,
		StaleFallback: false,
	}
}

// Result is the outcome of a photo fetch.
type Result struct {
	// Payload is the raw API response body.
	Payload []byte

	// FromCache indicates the payload was served from the store.
	FromCache bool

	// Stale indicates an expired entry served as quota fallback.
	Stale bool

	// StoredAt is when the payload was originally stored (zero for a
	// fresh fetch that was just written).
	StoredAt time.Time
}

// Client is the cache-fetch coordinator.
type Client struct {
	store   store.Store
	limiter quota.Limiter
	fetcher Fetcher
	config  Config
	logger  zerolog.Logger
	now     func() time.Time
}

// New creates a new coordinator.
func New(cfg Config) (*Client, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if cfg.Limiter == nil {
		return nil, fmt.Errorf("limiter is required")
	}
	if cfg.Fetcher == nil {
		return nil, fmt.Errorf("fetcher is required")
	}

	return &Client{
		store:   cfg.Store,
		limiter: cfg.Limiter,
		fetcher: cfg.Fetcher,
		config:  cfg,
		logger:  logging.NewLogger("coordinator"),
		now:     time.Now,
	}, nil
}

// SetClock overrides the coordinator's clock (for testing expiry).
func (c *Client) SetClock(now func() time.Time) {
	c.now = now
}

// FetchPhotos answers a photo query from cache when possible and from the
// API otherwise. See the package documentation for the full decision flow.
func (c *Client) FetchPhotos(ctx context.Context, q query.Query) (*Result, error) {
	startTime := time.Now()
	defer func() {
		fetchDuration.Observe(time.Since(startTime).Seconds())
	}()

	key, err := query.Normalize(q)
	if err != nil {
		return nil, err
	}

	logger := c.logger.With().Str("cache_key", key.String()).Logger()

	entry, err := c.store.Get(ctx, key)
	if err != nil && !errors.Is(err, store.ErrCacheMiss) {
		return nil, err
	}

	if entry != nil && !c.expired(entry) {
		logger.Debug().
			Bool("cache_hit", true).
			Dur("entry_age", entry.Age(c.now())).
			Msg("Serving cached response")
		fetchesTotal.WithLabelValues("hit").Inc()

		return &Result{
			Payload:   entry.Payload,
			FromCache: true,
			StoredAt:  entry.StoredAt,
		}, nil
	}

	allowed, err := c.limiter.Admit(ctx)
	if err != nil {
		return nil, fmt.Errorf("quota check: %w", err)
	}

	if !allowed {
		if c.config.StaleFallback && entry != nil {
			logger.Warn().
				Bool("stale", true).
				Dur("entry_age", entry.Age(c.now())).
				Msg("Quota consumed, serving stale cache entry")
			fetchesTotal.WithLabelValues("stale").Inc()

			return &Result{
				Payload:   entry.Payload,
				FromCache: true,
				Stale:     true,
				StoredAt:  entry.StoredAt,
			}, nil
		}

		fetchesTotal.WithLabelValues("quota_denied").Inc()
		return nil, fmt.Errorf("%w: %s", ErrQuotaExceeded, key)
	}

	payload, err := c.fetcher.Fetch(ctx, q)
	if err != nil {
		// The quota slot stays consumed: the remote call was made.
		logger.Error().Err(err).Msg("API fetch failed")
		fetchesTotal.WithLabelValues("fetch_error").Inc()
		return nil, &FetchError{Key: key, Err: err}
	}

	if err := c.store.Put(ctx, key, payload, q); err != nil {
		return nil, err
	}

	logger.Debug().
		Bool("cache_hit", false).
		Int("payload_bytes", len(payload)).
		Msg("Fetched and cached response")
	fetchesTotal.WithLabelValues("fetched").Inc()

	return &Result{Payload: payload}, nil
}

// expired reports whether the entry is too old to serve as fresh.
func (c *Client) expired(entry *store.Entry) bool {
	if c.config.TTL == TTLDisabled {
		return false
	}
	return entry.OlderThan(c.config.TTL, c.now())
}
