package store

import (
	"context"
	"sync"
	"time"

	"github.com/marsimaging/rover-photos/pkg/query"
)

// MemoryStore is an in-process Store. It does not survive restarts and is
// intended for tests and for callers that explicitly opt out of durable
// caching.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[query.Key]*Entry
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[query.Key]*Entry),
	}
}

// Get retrieves the entry for key, or ErrCacheMiss if absent.
func (s *MemoryStore) Get(_ context.Context, key query.Key) (*Entry, error) {
	s.mu.RLock()
	entry, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok {
		CacheMisses.Inc()
		return nil, ErrCacheMiss
	}

	CacheHits.WithLabelValues("memory").Inc()

	// Copy so callers never share the stored entry.
	out := *entry
	return &out, nil
}

// Put writes an entry for key, replacing any existing one.
func (s *MemoryStore) Put(_ context.Context, key query.Key, payload []byte, source query.Query) error {
	entry := &Entry{
		Key:         key,
		Payload:     append([]byte(nil), payload...),
		SourceQuery: source,
		StoredAt:    time.Now(),
	}

	s.mu.Lock()
	s.entries[key] = entry
	s.mu.Unlock()

	return nil
}

// Sweep removes entries older than maxAge.
func (s *MemoryStore) Sweep(_ context.Context, maxAge time.Duration) (int, error) {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, entry := range s.entries {
		if entry.OlderThan(maxAge, now) {
			delete(s.entries, key)
			removed++
		}
	}

	SweepRemoved.Add(float64(removed))
	return removed, nil
}

// Close is a no-op for the in-process store.
func (s *MemoryStore) Close() error {
	return nil
}

// Len returns the number of stored entries (for tests and status output).
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
