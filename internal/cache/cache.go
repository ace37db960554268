// Package cache provides a durable, content-addressed cache of analysis
// results keyed by policy-text hash, with absolute TTL expiry.
package cache

import (
	"time"

	"github.com/hercule-app/hercule/internal/core"
)

// DefaultTTL is how long an entry stays valid after creation.
const DefaultTTL = 30 * 24 * time.Hour

// Entry is one cached analysis. Entries are immutable once written: a hit
// returns the stored result untouched, and re-analysis after expiry writes a
// new entry rather than mutating this one.
type Entry struct {
	Result    core.AnalysisResult `json:"result"`
	Timestamp time.Time           `json:"timestamp"`
	TextHash  string              `json:"text_hash"`
}

// Store is a persistent hash -> Entry map with TTL-bound reads.
//
// Get treats an entry older than the TTL as absent; whether the backend
// physically evicts it or leaves it for Put to overwrite is an
// implementation detail.
type Store interface {
	Get(hash string) (*Entry, bool)
	Put(hash string, result core.AnalysisResult) error
	Size() int
	Clear() error
}

// Closeable is an optional interface for stores that need cleanup.
type Closeable interface {
	Close() error
}

// CloseStore safely closes a Store if it implements Closeable.
func CloseStore(s Store) error {
	if c, ok := s.(Closeable); ok {
		return c.Close()
	}
	return nil
}
