package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/marsimaging/rover-photos/pkg/query"
)

const cacheTable = "rover_photo_cache"

// SQLiteStore is a Store backed by a SQLite database file. It is the default
// durable backend: the file survives restarts and SQLite's locking keeps
// concurrent CLI invocations against the same file consistent.
type SQLiteStore struct {
	db     *sql.DB
	ownsDB bool
}

var _ Store = (*SQLiteStore)(nil)

// OpenSQLite opens (and if necessary creates) the cache database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := OpenSQLiteDB(path)
	if err != nil {
		return nil, err
	}

	st, err := NewSQLiteStore(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	st.ownsDB = true
	return st, nil
}

// NewSQLiteStore wraps an existing database handle and ensures the cache
// table exists. The caller remains the owner of the handle; Close does not
// close a shared connection. Sharing one handle between the store and the
// quota limiter keeps both in a single database file.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle cannot be nil")
	}

	schema := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			cache_key TEXT PRIMARY KEY,
			payload BLOB NOT NULL,
			source_query TEXT NOT NULL,
			stored_at INTEGER NOT NULL
		);
	`, cacheTable)
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("create table %s: %w", cacheTable, err)
	}

	return &SQLiteStore{db: db}, nil
}

// OpenSQLiteDB opens a SQLite database with the settings shared by the cache
// and quota tables.
func OpenSQLiteDB(path string) (*sql.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("storage path cannot be empty")
	}

	// The busy timeout covers concurrent invocations sharing the file.
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database at %q: %w", path, err)
	}

	// A single connection avoids "database is locked" errors in-process.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open sqlite database at %q: %w", path, err)
	}

	return db, nil
}

// Get retrieves the entry for key, or ErrCacheMiss if absent.
func (s *SQLiteStore) Get(ctx context.Context, key query.Key) (*Entry, error) {
	row := s.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT payload, source_query, stored_at FROM %s WHERE cache_key = ?", cacheTable),
		key.String(),
	)

	var payload []byte
	var sourceJSON string
	var storedAt int64
	if err := row.Scan(&payload, &sourceJSON, &storedAt); err != nil {
		if err == sql.ErrNoRows {
			CacheMisses.Inc()
			return nil, ErrCacheMiss
		}
		CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("sqlite get: %w", err)
	}

	var source query.Query
	if err := json.Unmarshal([]byte(sourceJSON), &source); err != nil {
		CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}

	CacheHits.WithLabelValues("sqlite").Inc()

	return &Entry{
		Key:         key,
		Payload:     payload,
		SourceQuery: source,
		StoredAt:    time.Unix(storedAt, 0),
	}, nil
}

// Put writes an entry for key. The upsert is a single statement, so readers
// see either the old entry or the new one, never a partial write.
func (s *SQLiteStore) Put(ctx context.Context, key query.Key, payload []byte, source query.Query) error {
	sourceJSON, err := json.Marshal(source)
	if err != nil {
		CacheErrors.WithLabelValues("put").Inc()
		return fmt.Errorf("marshal source query: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		fmt.Sprintf(`
			INSERT INTO %s (cache_key, payload, source_query, stored_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(cache_key) DO UPDATE SET
				payload = excluded.payload,
				source_query = excluded.source_query,
				stored_at = excluded.stored_at
		`, cacheTable),
		key.String(), payload, string(sourceJSON), time.Now().Unix(),
	)
	if err != nil {
		CacheErrors.WithLabelValues("put").Inc()
		return fmt.Errorf("sqlite put: %w", err)
	}

	return nil
}

// Sweep removes entries stored before now-maxAge.
func (s *SQLiteStore) Sweep(ctx context.Context, maxAge time.Duration) (int, error) {
	cutoff := time.Now().Add(-maxAge).Unix()

	res, err := s.db.ExecContext(ctx,
		fmt.Sprintf("DELETE FROM %s WHERE stored_at <= ?", cacheTable),
		cutoff,
	)
	if err != nil {
		CacheErrors.WithLabelValues("sweep").Inc()
		return 0, fmt.Errorf("sqlite sweep: %w", err)
	}

	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite sweep: %w", err)
	}

	SweepRemoved.Add(float64(removed))
	return int(removed), nil
}

// Count returns the number of stored entries.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT COUNT(*) FROM %s", cacheTable),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("sqlite count: %w", err)
	}
	return count, nil
}

// Close closes the underlying database handle if this store owns it.
func (s *SQLiteStore) Close() error {
	if !s.ownsDB {
		return nil
	}
	return s.db.Close()
}
