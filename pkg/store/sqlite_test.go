package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marsimaging/rover-photos/pkg/query"
)

func newTestSQLiteStore(t *testing.T) (*SQLiteStore, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "cache.db")
	st, err := OpenSQLite(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	return st, path
}

func testQuery(sol int) query.Query {
	return query.Query{Rover: "curiosity", Camera: "navcam", Sol: &sol, Page: 1}
}

func TestSQLiteStore_PutGet(t *testing.T) {
	st, _ := newTestSQLiteStore(t)
	ctx := context.Background()

	q := testQuery(1000)
	key, err := query.Normalize(q)
	require.NoError(t, err)

	payload := []byte(`{"photos":[{"id":1,"img_src":"https://mars.nasa.gov/1.jpg"}]}`)
	require.NoError(t, st.Put(ctx, key, payload, q))

	entry, err := st.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, key, entry.Key)
	assert.Equal(t, payload, entry.Payload)
	assert.Equal(t, "curiosity", entry.SourceQuery.Rover)
	assert.WithinDuration(t, time.Now(), entry.StoredAt, 5*time.Second)
}

func TestSQLiteStore_GetMiss(t *testing.T) {
	st, _ := newTestSQLiteStore(t)

	_, err := st.Get(context.Background(), "mars:curiosity:sol=1:page=1")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestSQLiteStore_PutOverwrites(t *testing.T) {
	st, _ := newTestSQLiteStore(t)
	ctx := context.Background()

	q := testQuery(500)
	key, err := query.Normalize(q)
	require.NoError(t, err)

	require.NoError(t, st.Put(ctx, key, []byte("first"), q))
	require.NoError(t, st.Put(ctx, key, []byte("second"), q))

	entry, err := st.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), entry.Payload)

	count, err := st.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

// TestSQLiteStore_Persistence simulates a process restart by reopening the
// store from the same file.
func TestSQLiteStore_Persistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	ctx := context.Background()

	q := testQuery(2000)
	key, err := query.Normalize(q)
	require.NoError(t, err)
	payload := []byte(`{"photos":[]}`)

	st, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, st.Put(ctx, key, payload, q))
	require.NoError(t, st.Close())

	reopened, err := OpenSQLite(path)
	require.NoError(t, err)
	defer reopened.Close()

	entry, err := reopened.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, payload, entry.Payload)
	assert.Equal(t, q.Rover, entry.SourceQuery.Rover)
}

func TestSQLiteStore_Sweep(t *testing.T) {
	st, _ := newTestSQLiteStore(t)
	ctx := context.Background()

	for _, sol := range []int{1, 2, 3} {
		q := testQuery(sol)
		key, err := query.Normalize(q)
		require.NoError(t, err)
		require.NoError(t, st.Put(ctx, key, []byte("data"), q))
	}

	// Nothing is older than an hour yet.
	removed, err := st.Sweep(ctx, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 0, removed)

	// A zero max age removes everything.
	removed, err = st.Sweep(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, removed)

	count, err := st.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestSQLiteStore_SharedHandle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")

	db, err := OpenSQLiteDB(path)
	require.NoError(t, err)
	defer db.Close()

	st, err := NewSQLiteStore(db)
	require.NoError(t, err)

	// Close must not tear down a handle the store does not own.
	require.NoError(t, st.Close())
	assert.NoError(t, db.Ping())
}
