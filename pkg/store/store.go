package store

import (
	"context"
	"errors"
	"time"

	"github.com/marsimaging/rover-photos/pkg/query"
)

var (
	// ErrCacheMiss indicates the requested key was not found in the store.
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidEntry indicates a stored entry could not be decoded.
	ErrInvalidEntry = errors.New("invalid cache entry")
)

// Entry is a cached API response. Entries are owned by the store and
// overwritten wholesale on re-fetch.
type Entry struct {
	// Key is the canonical query key this entry was stored under.
	Key query.Key `json:"key"`

	// Payload is the raw response body from the Mars Photos API.
	Payload []byte `json:"payload"`

	// SourceQuery is the original query, kept for diagnostics.
	SourceQuery query.Query `json:"source_query"`

	// StoredAt is when the entry was written.
	StoredAt time.Time `json:"stored_at"`
}

// Age returns how long ago the entry was stored relative to now.
func (e *Entry) Age(now time.Time) time.Duration {
	return now.Sub(e.StoredAt)
}

// OlderThan reports whether the entry's age meets or exceeds maxAge.
// A maxAge of zero makes every entry stale.
func (e *Entry) OlderThan(maxAge time.Duration, now time.Time) bool {
	return e.Age(now) >= maxAge
}

// Store is a durable key-value mapping of query keys to response entries.
// Implementations must be safe for concurrent use, including concurrent
// processes sharing the same backing storage.
type Store interface {
	// Get retrieves the entry for key, or ErrCacheMiss if absent.
	// Expiry is the caller's concern: present entries are returned
	// regardless of age.
	Get(ctx context.Context, key query.Key) (*Entry, error)

	// Put writes an entry for key, overwriting any existing one and
	// stamping it with the current time. The write is atomic from a
	// reader's perspective.
	Put(ctx context.Context, key query.Key, payload []byte, source query.Query) error

	// Sweep removes entries older than maxAge and returns how many were
	// removed.
	Sweep(ctx context.Context, maxAge time.Duration) (int, error)

	// Close releases the backing resources.
	Close() error
}
