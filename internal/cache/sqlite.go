package cache

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/hercule-app/hercule/internal/core"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS cache_entries (
	hash       TEXT PRIMARY KEY,
	result     TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
);
`

// SQLiteStore implements Store with SQLite storage, for deployments that
// prefer a database file over a rewritten JSON map.
type SQLiteStore struct {
	dbPath string
	ttl    time.Duration
	now    func() time.Time

	mu sync.RWMutex
	db *sql.DB
}

// SQLiteStoreOption configures the store.
type SQLiteStoreOption func(*SQLiteStore)

// WithSQLiteTTL sets the entry time-to-live.
func WithSQLiteTTL(ttl time.Duration) SQLiteStoreOption {
	return func(s *SQLiteStore) {
		s.ttl = ttl
	}
}

// WithSQLiteClock sets the time source, for tests.
func WithSQLiteClock(now func() time.Time) SQLiteStoreOption {
	return func(s *SQLiteStore) {
		s.now = now
	}
}

// NewSQLiteStore opens (or creates) the cache database at dbPath.
func NewSQLiteStore(dbPath string, opts ...SQLiteStoreOption) (*SQLiteStore, error) {
	s := &SQLiteStore{
		dbPath: dbPath,
		ttl:    DefaultTTL,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o750); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}

	// WAL mode keeps concurrent readers unblocked during writes.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("opening cache database: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating cache schema: %w", err)
	}

	s.db = db
	return s, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Get returns the entry for hash, or absent when missing or expired.
func (s *SQLiteStore) Get(hash string) (*Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var resultJSON string
	var createdAt time.Time
	err := s.db.QueryRow(
		"SELECT result, created_at FROM cache_entries WHERE hash = ?", hash,
	).Scan(&resultJSON, &createdAt)
	if errors.Is(err, sql.ErrNoRows) || err != nil {
		return nil, false
	}

	if s.now().Sub(createdAt) >= s.ttl {
		return nil, false
	}

	var result core.AnalysisResult
	if err := json.Unmarshal([]byte(resultJSON), &result); err != nil {
		return nil, false
	}
	return &Entry{Result: result, Timestamp: createdAt, TextHash: hash}, true
}

// Put stores a new entry for hash, superseding any prior entry.
func (s *SQLiteStore) Put(hash string, result core.AnalysisResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	resultJSON, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshaling result: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO cache_entries (hash, result, created_at) VALUES (?, ?, ?)
		ON CONFLICT(hash) DO UPDATE SET result = excluded.result, created_at = excluded.created_at`,
		hash, string(resultJSON), s.now(),
	)
	if err != nil {
		return fmt.Errorf("storing cache entry: %w", err)
	}
	return nil
}

// Size returns the number of stored entries, expired ones included.
func (s *SQLiteStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM cache_entries").Scan(&n); err != nil {
		return 0
	}
	return n
}

// Clear removes all entries.
func (s *SQLiteStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec("DELETE FROM cache_entries")
	return err
}
