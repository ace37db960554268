package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/hercule-app/hercule/internal/core"
)

// JSONStore implements Store with a single JSON file.
//
// The file holds the full hash -> Entry map. It is loaded once at startup
// and rewritten in full on every Put, through an atomic write so a crash
// never leaves a partially written file behind.
type JSONStore struct {
	path string
	ttl  time.Duration
	now  func() time.Time

	mu      sync.RWMutex
	entries map[string]*Entry
}

// JSONStoreOption configures the store.
type JSONStoreOption func(*JSONStore)

// WithTTL sets the entry time-to-live.
func WithTTL(ttl time.Duration) JSONStoreOption {
	return func(s *JSONStore) {
		s.ttl = ttl
	}
}

// WithClock sets the time source, for tests.
func WithClock(now func() time.Time) JSONStoreOption {
	return func(s *JSONStore) {
		s.now = now
	}
}

// NewJSONStore creates a JSON-file-backed store and loads any existing
// entries. A corrupt or unreadable file resets to an empty cache instead of
// failing startup; cached analyses are reproducible.
func NewJSONStore(path string, opts ...JSONStoreOption) (*JSONStore, error) {
	s := &JSONStore{
		path:    path,
		ttl:     DefaultTTL,
		now:     time.Now,
		entries: make(map[string]*Entry),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}
	s.load()
	return s, nil
}

func (s *JSONStore) load() {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return
	}
	var entries map[string]*Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		// Corrupt cache file: start over rather than refuse to start.
		s.entries = make(map[string]*Entry)
		return
	}
	s.entries = entries
}

// Get returns the entry for hash, or absent when missing or expired. A hit
// never mutates the entry or its timestamp; expiry is absolute.
func (s *JSONStore) Get(hash string) (*Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[hash]
	if !ok {
		return nil, false
	}
	if s.now().Sub(entry.Timestamp) >= s.ttl {
		// Expired entries are left in place; Put overwrites them.
		return nil, false
	}
	return entry, true
}

// Put stores a new entry for hash, superseding any prior entry, and
// persists the full map atomically.
func (s *JSONStore) Put(hash string, result core.AnalysisResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[hash] = &Entry{
		Result:    result,
		Timestamp: s.now(),
		TextHash:  hash,
	}
	return s.persist()
}

// Size returns the number of stored entries, expired ones included.
func (s *JSONStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Clear removes all entries.
func (s *JSONStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = make(map[string]*Entry)
	return s.persist()
}

func (s *JSONStore) persist() error {
	data, err := json.MarshalIndent(s.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling cache: %w", err)
	}
	if err := atomicWriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("writing cache file: %w", err)
	}
	return nil
}
