package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marsimaging/rover-photos/pkg/query"
	"github.com/marsimaging/rover-photos/pkg/quota"
	"github.com/marsimaging/rover-photos/pkg/store"
)

// fakeFetcher counts calls and returns a configurable payload or error.
type fakeFetcher struct {
	mu      sync.Mutex
	calls   int
	payload []byte
	err     error
}

func (f *fakeFetcher) Fetch(_ context.Context, q query.Query) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.payload != nil {
		return f.payload, nil
	}
	return []byte(fmt.Sprintf(`{"photos":[{"id":%d,"img_src":"https://mars.nasa.gov/%s.jpg"}]}`, f.calls, q.Rover)), nil
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newTestClient(t *testing.T, quotaPerHour int, mutate func(*Config)) (*Client, *fakeFetcher, *quota.MemoryLimiter) {
	t.Helper()

	limiter, err := quota.NewMemoryLimiter(quotaPerHour, zerolog.Nop())
	require.NoError(t, err)

	fetcher := &fakeFetcher{}
	cfg := DefaultConfig(store.NewMemoryStore(), limiter, fetcher)
	if mutate != nil {
		mutate(&cfg)
	}

	c, err := New(cfg)
	require.NoError(t, err)
	return c, fetcher, limiter
}

func solQuery(sol int) query.Query {
	return query.Query{Rover: "curiosity", Camera: "navcam", Sol: &sol}
}

func TestFetchPhotos_CacheHitSkipsQuota(t *testing.T) {
	c, fetcher, limiter := newTestClient(t, 30, nil)
	ctx := context.Background()

	first, err := c.FetchPhotos(ctx, solQuery(1000))
	require.NoError(t, err)
	assert.False(t, first.FromCache)

	second, err := c.FetchPhotos(ctx, solQuery(1000))
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, first.Payload, second.Payload)

	assert.Equal(t, 1, fetcher.callCount(), "second call must be served from cache")

	w, err := limiter.Window(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, w.Count, "cache hit must not consume quota")
}

func TestFetchPhotos_CaseInsensitiveQueriesShareEntry(t *testing.T) {
	c, fetcher, _ := newTestClient(t, 30, nil)
	ctx := context.Background()

	sol := 1000
	_, err := c.FetchPhotos(ctx, query.Query{Rover: "Curiosity", Sol: &sol, Page: 1})
	require.NoError(t, err)

	res, err := c.FetchPhotos(ctx, query.Query{Rover: "curiosity", Sol: &sol})
	require.NoError(t, err)
	assert.True(t, res.FromCache)
	assert.Equal(t, 1, fetcher.callCount())
}

func TestFetchPhotos_QuotaEnforced(t *testing.T) {
	c, _, _ := newTestClient(t, 3, nil)
	ctx := context.Background()

	for sol := 1; sol <= 3; sol++ {
		_, err := c.FetchPhotos(ctx, solQuery(sol))
		require.NoError(t, err)
	}

	_, err := c.FetchPhotos(ctx, solQuery(4))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrQuotaExceeded)
}

func TestFetchPhotos_TTLZeroAlwaysMisses(t *testing.T) {
	c, fetcher, _ := newTestClient(t, 30, func(cfg *Config) {
		cfg.TTL = 0
	})
	ctx := context.Background()

	_, err := c.FetchPhotos(ctx, solQuery(1000))
	require.NoError(t, err)

	res, err := c.FetchPhotos(ctx, solQuery(1000))
	require.NoError(t, err)
	assert.False(t, res.FromCache, "ttl 0 must treat stored entries as misses")
	assert.Equal(t, 2, fetcher.callCount())
}

func TestFetchPhotos_TTLExpiry(t *testing.T) {
	c, fetcher, _ := newTestClient(t, 30, func(cfg *Config) {
		cfg.TTL = time.Hour
	})
	ctx := context.Background()

	_, err := c.FetchPhotos(ctx, solQuery(1000))
	require.NoError(t, err)

	// Within TTL: still a hit.
	res, err := c.FetchPhotos(ctx, solQuery(1000))
	require.NoError(t, err)
	assert.True(t, res.FromCache)

	// Beyond TTL: the entry is a miss and a new fetch happens.
	c.SetClock(func() time.Time { return time.Now().Add(2 * time.Hour) })

	res, err = c.FetchPhotos(ctx, solQuery(1000))
	require.NoError(t, err)
	assert.False(t, res.FromCache)
	assert.Equal(t, 2, fetcher.callCount())
}

func TestFetchPhotos_FailedFetchConsumesQuota(t *testing.T) {
	c, fetcher, limiter := newTestClient(t, 3, nil)
	ctx := context.Background()

	fetcher.err = errors.New("connection reset")

	_, err := c.FetchPhotos(ctx, solQuery(1000))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFetchFailed)

	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, query.Key("mars:curiosity:camera=navcam:sol=1000:page=1"), fetchErr.Key)

	w, err := limiter.Window(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, w.Count, "failed fetch must not refund the quota slot")
}

func TestFetchPhotos_StaleFallback(t *testing.T) {
	c, fetcher, _ := newTestClient(t, 1, func(cfg *Config) {
		cfg.TTL = 0
		cfg.StaleFallback = true
	})
	ctx := context.Background()

	first, err := c.FetchPhotos(ctx, solQuery(1000))
	require.NoError(t, err)

	// Quota is now consumed and the entry is expired by ttl 0; the stale
	// payload is served instead of failing.
	res, err := c.FetchPhotos(ctx, solQuery(1000))
	require.NoError(t, err)
	assert.True(t, res.Stale)
	assert.True(t, res.FromCache)
	assert.Equal(t, first.Payload, res.Payload)
	assert.Equal(t, 1, fetcher.callCount())
}

func TestFetchPhotos_StaleFallbackOffByDefault(t *testing.T) {
	c, _, _ := newTestClient(t, 1, func(cfg *Config) {
		cfg.TTL = 0
	})
	ctx := context.Background()

	_, err := c.FetchPhotos(ctx, solQuery(1000))
	require.NoError(t, err)

	_, err = c.FetchPhotos(ctx, solQuery(1000))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrQuotaExceeded)
}

func TestFetchPhotos_InvalidQuery(t *testing.T) {
	c, fetcher, limiter := newTestClient(t, 3, nil)
	ctx := context.Background()

	_, err := c.FetchPhotos(ctx, query.Query{Rover: "curiosity"})
	require.Error(t, err)
	assert.ErrorIs(t, err, query.ErrInvalidQuery)

	assert.Equal(t, 0, fetcher.callCount(), "invalid queries must not reach the network")
	w, err := limiter.Window(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, w.Count, "invalid queries must not consume quota")
}

func TestNew_Validation(t *testing.T) {
	limiter, err := quota.NewMemoryLimiter(1, zerolog.Nop())
	require.NoError(t, err)

	tests := []struct {
		name string
		cfg  Config
	}{
		{name: "missing store", cfg: Config{Limiter: limiter, Fetcher: &fakeFetcher{}}},
		{name: "missing limiter", cfg: Config{Store: store.NewMemoryStore(), Fetcher: &fakeFetcher{}}},
		{name: "missing fetcher", cfg: Config{Store: store.NewMemoryStore(), Limiter: limiter}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg)
			assert.Error(t, err)
		})
	}
}
