package quota

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite" // SQLite driver
)

const windowTable = "rover_quota_window"

// SQLiteLimiter tracks the quota window in a SQLite table, typically in the
// same database file as the response cache. The window survives restarts and
// is shared by every process using the same file, so the quota is enforced
// per credential rather than per invocation.
type SQLiteLimiter struct {
	db           *sql.DB
	quotaPerHour int
	logger       zerolog.Logger
	now          func() time.Time
}

var _ Limiter = (*SQLiteLimiter)(nil)

// NewSQLiteLimiter creates a limiter on an existing database handle and
// ensures the window table exists. The caller owns the handle.
func NewSQLiteLimiter(db *sql.DB, quotaPerHour int, logger zerolog.Logger) (*SQLiteLimiter, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle cannot be nil")
	}
	if quotaPerHour < 1 {
		return nil, fmt.Errorf("quota per hour must be >= 1 (got %d)", quotaPerHour)
	}

	schema := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			window_start INTEGER NOT NULL,
			count INTEGER NOT NULL
		);
	`, windowTable)
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("create table %s: %w", windowTable, err)
	}

	return &SQLiteLimiter{
		db:           db,
		quotaPerHour: quotaPerHour,
		logger:       logger,
		now:          time.Now,
	}, nil
}

// SetClock overrides the limiter's clock (for testing window resets).
func (l *SQLiteLimiter) SetClock(now func() time.Time) {
	l.now = now
}

// Admit implements Limiter. The increment is a single conditional UPDATE, so
// the read-modify-write cannot interleave with another process sharing the
// file.
func (l *SQLiteLimiter) Admit(ctx context.Context) (bool, error) {
	now := l.now()

	if err := l.roll(ctx, now); err != nil {
		return false, err
	}

	res, err := l.db.ExecContext(ctx,
		fmt.Sprintf("UPDATE %s SET count = count + 1 WHERE id = 1 AND count < ?", windowTable),
		l.quotaPerHour,
	)
	if err != nil {
		return false, fmt.Errorf("quota admit: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("quota admit: %w", err)
	}

	if affected == 0 {
		quotaDeniedTotal.Inc()
		w, werr := l.Window(ctx)
		logEvent := l.logger.Warn().Int("quota_per_hour", l.quotaPerHour)
		if werr == nil {
			logEvent = logEvent.
				Int("window_count", w.Count).
				Dur("reset_in", w.TimeUntilReset(now))
		}
		logEvent.Msg("Hourly quota consumed, denying request")
		return false, nil
	}

	quotaAdmittedTotal.Inc()
	if w, err := l.Window(ctx); err == nil {
		quotaWindowCount.Set(float64(w.Count))
	}

	return true, nil
}

// Window implements Limiter.
func (l *SQLiteLimiter) Window(ctx context.Context) (Window, error) {
	now := l.now()

	var startUnix int64
	var count int
	err := l.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT window_start, count FROM %s WHERE id = 1", windowTable),
	).Scan(&startUnix, &count)
	if err == sql.ErrNoRows {
		return Window{Start: windowStart(now)}, nil
	}
	if err != nil {
		return Window{}, fmt.Errorf("quota window: %w", err)
	}

	w := Window{Start: time.Unix(startUnix, 0), Count: count}
	if w.Expired(now) {
		return Window{Start: windowStart(now)}, nil
	}
	return w, nil
}

// roll initializes the window row and resets it when the hour boundary has
// passed. Both statements are conditional, so concurrent rollers are
// harmless.
func (l *SQLiteLimiter) roll(ctx context.Context, now time.Time) error {
	start := windowStart(now).Unix()

	_, err := l.db.ExecContext(ctx,
		fmt.Sprintf("INSERT OR IGNORE INTO %s (id, window_start, count) VALUES (1, ?, 0)", windowTable),
		start,
	)
	if err != nil {
		return fmt.Errorf("quota window init: %w", err)
	}

	// Reset only when the stored window has fully expired.
	res, err := l.db.ExecContext(ctx,
		fmt.Sprintf("UPDATE %s SET window_start = ?, count = 0 WHERE id = 1 AND window_start + ? <= ?", windowTable),
		start, int64(Period/time.Second), now.Unix(),
	)
	if err != nil {
		return fmt.Errorf("quota window roll: %w", err)
	}

	if affected, err := res.RowsAffected(); err == nil && affected > 0 {
		quotaWindowCount.Set(0)
		l.logger.Debug().
			Time("window_start", windowStart(now)).
			Msg("Quota window reset")
	}

	return nil
}
