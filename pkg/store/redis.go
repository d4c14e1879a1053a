package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/marsimaging/rover-photos/pkg/query"
)

// redisKeyPrefix namespaces cache entries in a shared Redis instance.
const redisKeyPrefix = "rover:cache:"

// RedisStore is a Store backed by Redis, for deployments where several
// processes share one cache and one API credential.
type RedisStore struct {
	redis *redis.Client
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore creates a store on top of an existing Redis client.
func NewRedisStore(redisClient *redis.Client) *RedisStore {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &RedisStore{redis: redisClient}
}

// Get retrieves the entry for key, or ErrCacheMiss if absent.
func (s *RedisStore) Get(ctx context.Context, key query.Key) (*Entry, error) {
	data, err := s.redis.Get(ctx, redisKeyPrefix+key.String()).Bytes()
	if err != nil {
		if err == redis.Nil {
			CacheMisses.Inc()
			return nil, ErrCacheMiss
		}
		CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}

	CacheHits.WithLabelValues("redis").Inc()
	return &entry, nil
}

// Put writes an entry for key. Redis SET replaces the value atomically, so
// readers never see a partial entry. Entries are stored without a Redis TTL:
// expiry is a read-side policy and removal happens through Sweep.
func (s *RedisStore) Put(ctx context.Context, key query.Key, payload []byte, source query.Query) error {
	entry := &Entry{
		Key:         key,
		Payload:     payload,
		SourceQuery: source,
		StoredAt:    time.Now(),
	}

	data, err := json.Marshal(entry)
	if err != nil {
		CacheErrors.WithLabelValues("put").Inc()
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	if err := s.redis.Set(ctx, redisKeyPrefix+key.String(), data, 0).Err(); err != nil {
		CacheErrors.WithLabelValues("put").Inc()
		return fmt.Errorf("redis set: %w", err)
	}

	return nil
}

// Sweep enumerates cache entries and removes those older than maxAge.
func (s *RedisStore) Sweep(ctx context.Context, maxAge time.Duration) (int, error) {
	now := time.Now()
	removed := 0

	iter := s.redis.Scan(ctx, 0, redisKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		redisKey := iter.Val()

		data, err := s.redis.Get(ctx, redisKey).Bytes()
		if err != nil {
			if err == redis.Nil {
				continue // removed concurrently
			}
			CacheErrors.WithLabelValues("sweep").Inc()
			return removed, fmt.Errorf("redis sweep get: %w", err)
		}

		var entry Entry
		if err := json.Unmarshal(data, &entry); err != nil {
			// Undecodable entries are removed rather than kept forever.
			if err := s.redis.Del(ctx, redisKey).Err(); err != nil {
				return removed, fmt.Errorf("redis sweep del: %w", err)
			}
			removed++
			continue
		}

		if entry.OlderThan(maxAge, now) {
			if err := s.redis.Del(ctx, redisKey).Err(); err != nil {
				CacheErrors.WithLabelValues("sweep").Inc()
				return removed, fmt.Errorf("redis sweep del: %w", err)
			}
			removed++
		}
	}
	if err := iter.Err(); err != nil {
		CacheErrors.WithLabelValues("sweep").Inc()
		return removed, fmt.Errorf("redis sweep scan: %w", err)
	}

	SweepRemoved.Add(float64(removed))
	return removed, nil
}

// Count returns the number of stored entries.
func (s *RedisStore) Count(ctx context.Context) (int, error) {
	count := 0
	iter := s.redis.Scan(ctx, 0, redisKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		count++
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("redis count: %w", err)
	}
	return count, nil
}

// Close is a no-op; the Redis client is owned by the caller.
func (s *RedisStore) Close() error {
	return nil
}
