package quota

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "quota.db")
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", path))
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	return db
}

func TestSQLiteLimiter_EnforcesQuota(t *testing.T) {
	limiter, err := NewSQLiteLimiter(newTestDB(t), 3, testLogger())
	require.NoError(t, err)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, err := limiter.Admit(ctx)
		require.NoError(t, err)
		require.True(t, allowed, "call %d should be admitted", i+1)
	}

	allowed, err := limiter.Admit(ctx)
	require.NoError(t, err)
	assert.False(t, allowed, "fourth call should be denied")

	w, err := limiter.Window(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, w.Count, "denial must not increment the counter")
}

func TestSQLiteLimiter_WindowReset(t *testing.T) {
	limiter, err := NewSQLiteLimiter(newTestDB(t), 1, testLogger())
	require.NoError(t, err)
	ctx := context.Background()

	current := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)
	limiter.SetClock(func() time.Time { return current })

	allowed, err := limiter.Admit(ctx)
	require.NoError(t, err)
	require.True(t, allowed)

	allowed, err = limiter.Admit(ctx)
	require.NoError(t, err)
	require.False(t, allowed)

	current = current.Add(time.Hour)

	allowed, err = limiter.Admit(ctx)
	require.NoError(t, err)
	assert.True(t, allowed, "request should be admitted after the window resets")

	w, err := limiter.Window(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, w.Count)
	assert.Equal(t, time.Date(2024, 3, 1, 13, 0, 0, 0, time.UTC).Unix(), w.Start.Unix())
}

// TestSQLiteLimiter_SharedWindow verifies two limiters on the same database
// consume one shared budget, as two CLI invocations sharing a cache file do.
func TestSQLiteLimiter_SharedWindow(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	first, err := NewSQLiteLimiter(db, 2, testLogger())
	require.NoError(t, err)
	second, err := NewSQLiteLimiter(db, 2, testLogger())
	require.NoError(t, err)

	allowed, err := first.Admit(ctx)
	require.NoError(t, err)
	require.True(t, allowed)

	allowed, err = second.Admit(ctx)
	require.NoError(t, err)
	require.True(t, allowed)

	allowed, err = first.Admit(ctx)
	require.NoError(t, err)
	assert.False(t, allowed, "budget is shared, third admit should be denied")
}

// TestSQLiteLimiter_Persistence simulates a restart by building a new
// limiter over a reopened database file.
func TestSQLiteLimiter_Persistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quota.db")
	ctx := context.Background()

	open := func() *sql.DB {
		db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", path))
		require.NoError(t, err)
		db.SetMaxOpenConns(1)
		return db
	}

	db := open()
	limiter, err := NewSQLiteLimiter(db, 1, testLogger())
	require.NoError(t, err)

	allowed, err := limiter.Admit(ctx)
	require.NoError(t, err)
	require.True(t, allowed)
	require.NoError(t, db.Close())

	db = open()
	defer db.Close()
	reopened, err := NewSQLiteLimiter(db, 1, testLogger())
	require.NoError(t, err)

	allowed, err = reopened.Admit(ctx)
	require.NoError(t, err)
	assert.False(t, allowed, "consumed window must survive the restart")
}

func TestNewSQLiteLimiter_Validation(t *testing.T) {
	_, err := NewSQLiteLimiter(nil, 3, testLogger())
	assert.Error(t, err)

	_, err = NewSQLiteLimiter(newTestDB(t), 0, testLogger())
	assert.Error(t, err)
}
