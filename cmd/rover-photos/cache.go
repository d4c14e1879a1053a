package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/marsimaging/rover-photos/pkg/store"
)

// cacheCmd groups response cache management.
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the cached API responses",
}

// cacheStatusCmd shows how many responses the configured backend holds.
var cacheStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show cache backend and entry count",
	RunE: func(cmd *cobra.Command, _ []string) error {
		setupLogging()

		stg, err := openStorage()
		if err != nil {
			return err
		}
		defer stg.Close()

		count, err := countEntries(cmd.Context(), stg.store)
		if err != nil {
			return fmt.Errorf("count cache entries: %w", err)
		}

		fmt.Printf("Backend: %s\n", viper.GetString("backend"))
		fmt.Printf("Cached responses: %d\n", count)
		return nil
	},
}

// cacheSweepCmd removes old entries.
var cacheSweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Remove cache entries older than --older-than",
	Long: `Remove cached responses older than the given age.

The coordinator never reads expired entries (outside stale fallback), but
they still occupy storage until swept.

Examples:
  # Drop everything older than a week
  rover-photos cache sweep --older-than 168h`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		setupLogging()

		maxAge, err := time.ParseDuration(viper.GetString("older-than"))
		if err != nil {
			return fmt.Errorf("parse --older-than: %w", err)
		}

		stg, err := openStorage()
		if err != nil {
			return err
		}
		defer stg.Close()

		removed, err := stg.store.Sweep(cmd.Context(), maxAge)
		if err != nil {
			return fmt.Errorf("sweep cache: %w", err)
		}

		fmt.Printf("Removed %d entries older than %s\n", removed, maxAge)
		return nil
	},
}

// countEntries asks the backend for its entry count.
func countEntries(ctx context.Context, st store.Store) (int, error) {
	switch s := st.(type) {
	case *store.MemoryStore:
		return s.Len(), nil
	case *store.SQLiteStore:
		return s.Count(ctx)
	case *store.RedisStore:
		return s.Count(ctx)
	default:
		return 0, fmt.Errorf("unknown store type %T", st)
	}
}
