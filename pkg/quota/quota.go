// Package quota enforces the Mars Photos API per-hour request ceiling.
//
// Consumption is tracked in a fixed hourly window: the window starts at the
// current hour boundary and the counter resets to zero once the boundary
// plus one hour has passed. Admit is the only mutation and is an atomic
// check-and-increment, so concurrent callers sharing the same backing
// storage cannot over-consume the quota. Admit never blocks; callers decide
// whether to wait, fail, or serve stale cache on denial.
//
// Whether the window is shared across processes is a deployment choice made
// by backend selection: the memory limiter tracks per-process, the SQLite
// and Redis limiters share one durable window per storage location.
package quota

import (
	"context"
	"time"
)

// Period is the length of the quota window.
const Period = time.Hour

// DefaultQuotaPerHour is NASA's published hourly ceiling for DEMO_KEY.
const DefaultQuotaPerHour = 30

// Window is the request consumption inside the current hourly window.
type Window struct {
	// Start is the hour boundary the window began at.
	Start time.Time `json:"start"`

	// Count is the number of requests admitted inside the window.
	// Failed fetches still count: the remote call was made.
	Count int `json:"count"`
}

// End returns the instant the window expires.
func (w Window) End() time.Time {
	return w.Start.Add(Period)
}

// Expired reports whether the window has passed relative to now.
func (w Window) Expired(now time.Time) bool {
	return !now.Before(w.End())
}

// Remaining returns how many admissions are left given the hourly quota.
func (w Window) Remaining(quotaPerHour int) int {
	remaining := quotaPerHour - w.Count
	if remaining < 0 {
		return 0
	}
	return remaining
}

// TimeUntilReset returns the duration until the window resets.
// Returns 0 if the window has already expired.
func (w Window) TimeUntilReset(now time.Time) time.Duration {
	d := w.End().Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// windowStart truncates now to the enclosing hour boundary.
func windowStart(now time.Time) time.Time {
	return now.Truncate(Period)
}

// Limiter admits or rejects outbound API requests against the hourly quota.
type Limiter interface {
	// Admit returns true and increments the window counter if a request
	// is currently allowed. It returns false without incrementing when
	// the quota is consumed. The check-and-increment is atomic.
	Admit(ctx context.Context) (bool, error)

	// Window returns the current window state for diagnostics. An
	// expired window is reported as reset.
	Window(ctx context.Context) (Window, error)
}
