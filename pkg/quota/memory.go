package quota

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// MemoryLimiter tracks the quota window in process memory. Each process gets
// its own window; use the SQLite or Redis limiter to share one window across
// invocations using the same API credential.
type MemoryLimiter struct {
	quotaPerHour int
	logger       zerolog.Logger

	mu     sync.Mutex
	window Window
	now    func() time.Time
}

var _ Limiter = (*MemoryLimiter)(nil)

// NewMemoryLimiter creates a per-process limiter with the given hourly quota.
func NewMemoryLimiter(quotaPerHour int, logger zerolog.Logger) (*MemoryLimiter, error) {
	if quotaPerHour < 1 {
		return nil, fmt.Errorf("quota per hour must be >= 1 (got %d)", quotaPerHour)
	}
	return &MemoryLimiter{
		quotaPerHour: quotaPerHour,
		logger:       logger,
		now:          time.Now,
	}, nil
}

// SetClock overrides the limiter's clock (for testing window resets).
func (l *MemoryLimiter) SetClock(now func() time.Time) {
	l.mu.Lock()
	l.now = now
	l.mu.Unlock()
}

// Admit implements Limiter.
func (l *MemoryLimiter) Admit(_ context.Context) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.rollLocked(now)

	if l.window.Count >= l.quotaPerHour {
		quotaDeniedTotal.Inc()
		l.logger.Warn().
			Int("window_count", l.window.Count).
			Int("quota_per_hour", l.quotaPerHour).
			Dur("reset_in", l.window.TimeUntilReset(now)).
			Msg("Hourly quota consumed, denying request")
		return false, nil
	}

	l.window.Count++
	quotaAdmittedTotal.Inc()
	quotaWindowCount.Set(float64(l.window.Count))

	l.logger.Debug().
		Int("window_count", l.window.Count).
		Int("remaining", l.window.Remaining(l.quotaPerHour)).
		Msg("Request admitted")

	return true, nil
}

// Window implements Limiter.
func (l *MemoryLimiter) Window(_ context.Context) (Window, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.rollLocked(l.now())
	return l.window, nil
}

// rollLocked resets the window when the hour boundary has passed.
// Caller must hold l.mu.
func (l *MemoryLimiter) rollLocked(now time.Time) {
	if l.window.Start.IsZero() || l.window.Expired(now) {
		l.window = Window{Start: windowStart(now)}
		quotaWindowCount.Set(0)
	}
}
