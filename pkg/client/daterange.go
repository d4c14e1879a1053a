package client

import (
	"context"
	"sync"
	"time"

	"github.com/marsimaging/rover-photos/pkg/nasaapi"
	"github.com/marsimaging/rover-photos/pkg/query"
)

// RangeConfig holds date-range fetch configuration.
type RangeConfig struct {
	// MaxConcurrency is the maximum number of days fetched in parallel.
	// The quota limiter still gates every underlying API call.
	MaxConcurrency int

	// MaxPhotos caps the image links returned per day (0 = all).
	MaxPhotos int
}

// DefaultRangeConfig returns safe defaults matching a small CLI run.
func DefaultRangeConfig() RangeConfig {
	return RangeConfig{
		MaxConcurrency: 4,
		MaxPhotos:      3,
	}
}

// DayResult is the outcome for a single day in a range fetch.
type DayResult struct {
	// Date is the Earth date queried, formatted YYYY-MM-DD.
	Date string

	// ImageURLs are the photo source links for that day.
	ImageURLs []string

	// FromCache and Stale mirror the underlying Result.
	FromCache bool
	Stale     bool

	// Err is set when that day's fetch failed; other days are unaffected.
	Err error
}

// FetchDateRange fetches photos for the given rover and camera over a span
// of days, walking backwards from endingDate. Each day is one logical query
// going through the full cache/quota flow, fetched by a bounded worker pool.
// Results are ordered from endingDate backwards.
func (c *Client) FetchDateRange(ctx context.Context, rover, camera string, endingDate time.Time, days int, cfg RangeConfig) []DayResult {
	if days < 1 {
		return nil
	}
	if cfg.MaxConcurrency < 1 {
		cfg.MaxConcurrency = 1
	}

	results := make([]DayResult, days)

	jobs := make(chan int, days)
	var wg sync.WaitGroup

	workers := cfg.MaxConcurrency
	if workers > days {
		workers = days
	}

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				date := endingDate.AddDate(0, 0, -i).Format("2006-01-02")
				results[i] = c.fetchDay(ctx, rover, camera, date, cfg.MaxPhotos)
			}
		}()
	}

	for i := 0; i < days; i++ {
		jobs <- i
	}
	close(jobs)

	wg.Wait()

	return results
}

// fetchDay runs one day's query and projects the payload to image links.
func (c *Client) fetchDay(ctx context.Context, rover, camera, date string, maxPhotos int) DayResult {
	result := DayResult{Date: date}

	res, err := c.FetchPhotos(ctx, query.Query{
		Rover:     rover,
		Camera:    camera,
		EarthDate: date,
	})
	if err != nil {
		result.Err = err
		return result
	}

	urls, err := nasaapi.ImageURLs(res.Payload, maxPhotos)
	if err != nil {
		result.Err = err
		return result
	}

	result.ImageURLs = urls
	result.FromCache = res.FromCache
	result.Stale = res.Stale
	return result
}
