package main

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/marsimaging/rover-photos/pkg/client"
	"github.com/marsimaging/rover-photos/pkg/logging"
	"github.com/marsimaging/rover-photos/pkg/nasaapi"
	"github.com/marsimaging/rover-photos/pkg/quota"
	"github.com/marsimaging/rover-photos/pkg/store"
)

// Set by goreleaser at build time.
var version = "dev"

const defaultDBPath = "rover-photos.db"

// rootCmd is the command-line entrypoint for all other commands.
var rootCmd = &cobra.Command{
	Use:     "rover-photos",
	Short:   "Query NASA Mars rover photos through a caching, quota-aware client.",
	Long: `rover-photos answers Mars rover photo queries from a local cache whenever
it can, and spends the hourly API budget only on queries it has never seen.

Storage backends: memory (per process), sqlite (default, durable), redis (shared).`,
	Version:       version,
	SilenceErrors: true,
	SilenceUsage:  true,
	Run: func(cmd *cobra.Command, _ []string) {
		_ = cmd.Help()
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.AddCommand(photosCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(quotaCmd)

	cacheCmd.AddCommand(cacheStatusCmd)
	cacheCmd.AddCommand(cacheSweepCmd)

	rootCmd.PersistentFlags().String("api-key", "", "api.nasa.gov API key (default: DEMO_KEY)")
	rootCmd.PersistentFlags().String("backend", "sqlite", "Storage backend: memory, sqlite or redis")
	rootCmd.PersistentFlags().String("db-path", defaultDBPath, "SQLite database path (sqlite backend)")
	rootCmd.PersistentFlags().String("redis-addr", "localhost:6379", "Redis address (redis backend)")
	rootCmd.PersistentFlags().Int("quota-per-hour", quota.DefaultQuotaPerHour, "Outbound API requests allowed per hour")
	rootCmd.PersistentFlags().String("ttl", "", "Cache entry lifetime, e.g. 24h (empty = never expire)")
	rootCmd.PersistentFlags().Bool("stale-fallback", false, "Serve expired cache entries when the hourly budget is spent")
	rootCmd.PersistentFlags().String("log-level", string(logging.LevelInfo), "Log level: debug, info, warn or error")
	rootCmd.PersistentFlags().Bool("pretty", false, "Human-readable log output instead of JSON")
	rootCmd.PersistentFlags().String("config", "", "Path to config file")
	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		panic(fmt.Sprintf("bind root flags: %v", err))
	}

	photosCmd.Flags().String("rover", "", "Rover name: curiosity, opportunity or spirit")
	photosCmd.Flags().String("camera", "", "Camera abbreviation, e.g. navcam (optional)")
	photosCmd.Flags().Int("sol", -1, "Martian sol of the mission")
	photosCmd.Flags().String("earth-date", "", "Earth date in YYYY-MM-DD")
	photosCmd.Flags().Int("page", 1, "Result page (25 photos per page)")
	photosCmd.Flags().Int("days", 1, "Walk this many days backwards from --earth-date")
	photosCmd.Flags().Int("max-photos", 3, "Image links to print per day in range mode")
	if err := viper.BindPFlags(photosCmd.Flags()); err != nil {
		panic(fmt.Sprintf("bind photos flags: %v", err))
	}

	cacheSweepCmd.Flags().String("older-than", "24h", "Remove entries older than this duration")
	if err := viper.BindPFlags(cacheSweepCmd.Flags()); err != nil {
		panic(fmt.Sprintf("bind cache sweep flags: %v", err))
	}
}

// initConfig reads in the config file and ROVER_* environment variables.
func initConfig() {
	if configFile := viper.GetString("config"); configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName(".rover-photos")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME")
	}

	viper.SetEnvPrefix("ROVER")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	// Missing config file is fine, flags and env cover everything.
	_ = viper.ReadInConfig()
}

// setupLogging configures the global logger from flags.
func setupLogging() {
	logging.Setup(logging.Config{
		Level:  logging.LogLevel(viper.GetString("log-level")),
		Pretty: viper.GetBool("pretty"),
	})
}

// storage bundles the configured backend with its cleanup.
type storage struct {
	store   store.Store
	limiter quota.Limiter
	db      *sql.DB       // non-nil for the sqlite backend
	redis   *redis.Client // non-nil for the redis backend
}

// Close releases the shared backend handle.
func (s *storage) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	if s.redis != nil {
		return s.redis.Close()
	}
	return nil
}

// openStorage builds the store and limiter for the configured backend.
// The sqlite backend shares one database handle between both so the cache
// and the quota window live in the same file.
func openStorage() (*storage, error) {
	logger := logging.NewLogger("storage")
	quotaPerHour := viper.GetInt("quota-per-hour")

	switch backend := viper.GetString("backend"); backend {
	case "memory":
		limiter, err := quota.NewMemoryLimiter(quotaPerHour, logger)
		if err != nil {
			return nil, err
		}
		return &storage{store: store.NewMemoryStore(), limiter: limiter}, nil

	case "sqlite":
		db, err := store.OpenSQLiteDB(viper.GetString("db-path"))
		if err != nil {
			return nil, fmt.Errorf("open sqlite database: %w", err)
		}
		st, err := store.NewSQLiteStore(db)
		if err != nil {
			db.Close()
			return nil, err
		}
		limiter, err := quota.NewSQLiteLimiter(db, quotaPerHour, logger)
		if err != nil {
			db.Close()
			return nil, err
		}
		return &storage{store: st, limiter: limiter, db: db}, nil

	case "redis":
		rdb := redis.NewClient(&redis.Options{Addr: viper.GetString("redis-addr")})
		limiter, err := quota.NewRedisLimiter(rdb, quotaPerHour, logger)
		if err != nil {
			rdb.Close()
			return nil, err
		}
		return &storage{store: store.NewRedisStore(rdb), limiter: limiter, redis: rdb}, nil

	default:
		return nil, fmt.Errorf("unknown backend %q (want memory, sqlite or redis)", backend)
	}
}

// newCoordinator wires the full client: storage, quota and the API fetcher.
func newCoordinator(stg *storage) (*client.Client, error) {
	fetcher, err := nasaapi.New(nasaapi.DefaultConfig(viper.GetString("api-key")))
	if err != nil {
		return nil, err
	}

	cfg := client.DefaultConfig(stg.store, stg.limiter, fetcher)
	cfg.StaleFallback = viper.GetBool("stale-fallback")
	if ttl := viper.GetString("ttl"); ttl != "" {
		d, err := time.ParseDuration(ttl)
		if err != nil {
			return nil, fmt.Errorf("parse --ttl: %w", err)
		}
		cfg.TTL = d
	}

	return client.New(cfg)
}
