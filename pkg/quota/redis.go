package quota

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// redisKeyPrefix namespaces quota buckets in a shared Redis instance.
const redisKeyPrefix = "rover:quota:"

// admitScript performs the check-and-increment atomically on the server.
// KEYS[1] is the hourly bucket, ARGV[1] the quota, ARGV[2] the unix time the
// bucket expires at. Returns 0 when denied, the new count when admitted.
var admitScript = redis.NewScript(`
local count = tonumber(redis.call('GET', KEYS[1]) or '0')
if count >= tonumber(ARGV[1]) then
	return 0
end
count = redis.call('INCR', KEYS[1])
if count == 1 then
	redis.call('EXPIREAT', KEYS[1], tonumber(ARGV[2]))
end
return count
`)

// RedisLimiter tracks the quota window in Redis, one bucket per hour
// boundary. Every process sharing the Redis instance shares the window.
type RedisLimiter struct {
	redis        *redis.Client
	quotaPerHour int
	logger       zerolog.Logger
	now          func() time.Time
}

var _ Limiter = (*RedisLimiter)(nil)

// NewRedisLimiter creates a limiter on top of an existing Redis client.
func NewRedisLimiter(redisClient *redis.Client, quotaPerHour int, logger zerolog.Logger) (*RedisLimiter, error) {
	if redisClient == nil {
		return nil, fmt.Errorf("redis client cannot be nil")
	}
	if quotaPerHour < 1 {
		return nil, fmt.Errorf("quota per hour must be >= 1 (got %d)", quotaPerHour)
	}
	return &RedisLimiter{
		redis:        redisClient,
		quotaPerHour: quotaPerHour,
		logger:       logger,
		now:          time.Now,
	}, nil
}

// SetClock overrides the limiter's clock (for testing window resets).
func (l *RedisLimiter) SetClock(now func() time.Time) {
	l.now = now
}

// bucketKey returns the Redis key for the window enclosing now. Keying by
// hour boundary makes the reset implicit: a new hour is a new key.
func (l *RedisLimiter) bucketKey(now time.Time) string {
	return fmt.Sprintf("%s%d", redisKeyPrefix, windowStart(now).Unix())
}

// Admit implements Limiter.
func (l *RedisLimiter) Admit(ctx context.Context) (bool, error) {
	now := l.now()
	start := windowStart(now)

	count, err := admitScript.Run(ctx, l.redis,
		[]string{l.bucketKey(now)},
		l.quotaPerHour, start.Add(Period).Unix(),
	).Int()
	if err != nil {
		return false, fmt.Errorf("quota admit: %w", err)
	}

	if count == 0 {
		quotaDeniedTotal.Inc()
		l.logger.Warn().
			Int("quota_per_hour", l.quotaPerHour).
			Time("window_start", start).
			Msg("Hourly quota consumed, denying request")
		return false, nil
	}

	quotaAdmittedTotal.Inc()
	quotaWindowCount.Set(float64(count))
	return true, nil
}

// Window implements Limiter.
func (l *RedisLimiter) Window(ctx context.Context) (Window, error) {
	now := l.now()

	count, err := l.redis.Get(ctx, l.bucketKey(now)).Int()
	if err != nil && err != redis.Nil {
		return Window{}, fmt.Errorf("quota window: %w", err)
	}

	return Window{Start: windowStart(now), Count: count}, nil
}
