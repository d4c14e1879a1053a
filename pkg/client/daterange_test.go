package client

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchDateRange_WalksBackwards(t *testing.T) {
	c, fetcher, _ := newTestClient(t, 30, nil)
	ctx := context.Background()

	ending := time.Date(2020, 2, 19, 0, 0, 0, 0, time.UTC)
	results := c.FetchDateRange(ctx, "curiosity", "navcam", ending, 3, DefaultRangeConfig())

	require.Len(t, results, 3)
	assert.Equal(t, "2020-02-19", results[0].Date)
	assert.Equal(t, "2020-02-18", results[1].Date)
	assert.Equal(t, "2020-02-17", results[2].Date)

	for _, day := range results {
		require.NoError(t, day.Err)
		assert.NotEmpty(t, day.ImageURLs)
	}

	assert.Equal(t, 3, fetcher.callCount())
}

func TestFetchDateRange_ReusesCache(t *testing.T) {
	c, fetcher, limiter := newTestClient(t, 30, nil)
	ctx := context.Background()

	ending := time.Date(2020, 2, 19, 0, 0, 0, 0, time.UTC)
	cfg := DefaultRangeConfig()

	_ = c.FetchDateRange(ctx, "curiosity", "navcam", ending, 3, cfg)
	results := c.FetchDateRange(ctx, "curiosity", "navcam", ending, 3, cfg)

	for _, day := range results {
		require.NoError(t, day.Err)
		assert.True(t, day.FromCache, "second pass should be all cache hits")
	}

	assert.Equal(t, 3, fetcher.callCount(), "second pass must not refetch")

	w, err := limiter.Window(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, w.Count)
}

func TestFetchDateRange_PartialFailure(t *testing.T) {
	c, _, _ := newTestClient(t, 2, nil)
	ctx := context.Background()

	// Quota covers only two of three days; the third day reports its
	// denial without sinking the whole range.
	ending := time.Date(2020, 2, 19, 0, 0, 0, 0, time.UTC)
	results := c.FetchDateRange(ctx, "curiosity", "navcam", ending, 3, RangeConfig{MaxConcurrency: 1, MaxPhotos: 3})

	failed := 0
	for _, day := range results {
		if day.Err != nil {
			assert.ErrorIs(t, day.Err, ErrQuotaExceeded)
			failed++
		}
	}
	assert.Equal(t, 1, failed)
}

func TestFetchDateRange_MaxPhotosLimit(t *testing.T) {
	c, fetcher, _ := newTestClient(t, 30, nil)
	ctx := context.Background()

	fetcher.payload = []byte(`{"photos":[
		{"id":1,"img_src":"https://mars.nasa.gov/1.jpg"},
		{"id":2,"img_src":"https://mars.nasa.gov/2.jpg"},
		{"id":3,"img_src":"https://mars.nasa.gov/3.jpg"},
		{"id":4,"img_src":"https://mars.nasa.gov/4.jpg"}
	]}`)

	ending := time.Date(2020, 2, 19, 0, 0, 0, 0, time.UTC)
	results := c.FetchDateRange(ctx, "curiosity", "", ending, 1, RangeConfig{MaxConcurrency: 1, MaxPhotos: 2})

	require.Len(t, results, 1)
	require.NoError(t, results[0].Err)
	assert.Len(t, results[0].ImageURLs, 2)
}

func TestFetchDateRange_NoDays(t *testing.T) {
	c, _, _ := newTestClient(t, 30, nil)

	results := c.FetchDateRange(context.Background(), "curiosity", "", time.Now(), 0, DefaultRangeConfig())
	assert.Nil(t, results)
}
