package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/marsimaging/rover-photos/pkg/client"
	"github.com/marsimaging/rover-photos/pkg/nasaapi"
	"github.com/marsimaging/rover-photos/pkg/query"
)

// photosCmd fetches photos for a single query or a backwards date range.
var photosCmd = &cobra.Command{
	Use:   "photos",
	Short: "Fetch rover photos for a sol or Earth date",
	Long: `Fetch Mars rover photos and print their image links.

A query names one rover and either a sol or an Earth date. Repeating a query
answers from the cache without touching the hourly API budget.

With --days N (N > 1) the query walks N days backwards from --earth-date,
one cached query per day.

Examples:
  # Curiosity navcam photos from sol 1000
  rover-photos photos --rover curiosity --camera navcam --sol 1000

  # A week of photos ending on a date
  rover-photos photos --rover curiosity --earth-date 2023-06-01 --days 7`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		setupLogging()

		stg, err := openStorage()
		if err != nil {
			return err
		}
		defer stg.Close()

		coord, err := newCoordinator(stg)
		if err != nil {
			return err
		}

		if days := viper.GetInt("days"); days > 1 {
			return runDateRange(cmd.Context(), coord, days)
		}
		return runSingleQuery(cmd.Context(), coord)
	},
}

// runSingleQuery performs one photo query and prints every image link.
func runSingleQuery(ctx context.Context, coord *client.Client) error {
	q := query.Query{
		Rover:     viper.GetString("rover"),
		Camera:    viper.GetString("camera"),
		EarthDate: viper.GetString("earth-date"),
		Page:      viper.GetInt("page"),
	}
	if sol := viper.GetInt("sol"); sol >= 0 {
		q.Sol = &sol
	}

	result, err := coord.FetchPhotos(ctx, q)
	if err != nil {
		return describeFetchError(err)
	}

	urls, err := nasaapi.ImageURLs(result.Payload, 0)
	if err != nil {
		return fmt.Errorf("decode photos payload: %w", err)
	}

	source := "api"
	if result.FromCache {
		source = "cache"
	}
	if result.Stale {
		source = "cache (stale)"
	}
	fmt.Printf("%d photos (%s)\n", len(urls), source)
	for _, u := range urls {
		fmt.Println(u)
	}
	return nil
}

// runDateRange fetches a span of days ending at --earth-date.
func runDateRange(ctx context.Context, coord *client.Client, days int) error {
	endingDate := time.Now().UTC()
	if date := viper.GetString("earth-date"); date != "" {
		parsed, err := time.Parse("2006-01-02", date)
		if err != nil {
			return fmt.Errorf("parse --earth-date: %w", err)
		}
		endingDate = parsed
	}

	cfg := client.DefaultRangeConfig()
	cfg.MaxPhotos = viper.GetInt("max-photos")

	results := coord.FetchDateRange(ctx,
		viper.GetString("rover"), viper.GetString("camera"),
		endingDate, days, cfg)

	for _, day := range results {
		if day.Err != nil {
			fmt.Printf("%s: error: %v\n", day.Date, day.Err)
			continue
		}
		source := "api"
		if day.FromCache {
			source = "cache"
		}
		if day.Stale {
			source = "cache (stale)"
		}
		fmt.Printf("%s: %d photos (%s)\n", day.Date, len(day.ImageURLs), source)
		for _, u := range day.ImageURLs {
			fmt.Println("  " + u)
		}
	}
	return nil
}

// describeFetchError turns coordinator errors into actionable messages.
func describeFetchError(err error) error {
	switch {
	case errors.Is(err, query.ErrInvalidQuery):
		return fmt.Errorf("invalid query: %w", err)
	case errors.Is(err, client.ErrQuotaExceeded):
		return fmt.Errorf("hourly API budget spent, try again next hour or enable --stale-fallback: %w", err)
	case errors.Is(err, client.ErrFetchFailed):
		return fmt.Errorf("API request failed: %w", err)
	default:
		return err
	}
}
