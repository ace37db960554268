package cache

import (
	"fmt"
	"time"
)

// Options configures store creation.
type Options struct {
	// TTL is the entry time-to-live. Zero means DefaultTTL.
	TTL time.Duration

	// Clock overrides the time source, for tests.
	Clock func() time.Time
}

// NewStore creates a Store with the given backend ("json" or "sqlite") at
// the specified path.
func NewStore(backend, path string) (Store, error) {
	return NewStoreWithOptions(backend, path, Options{})
}

// NewStoreWithOptions creates a Store with additional options.
func NewStoreWithOptions(backend, path string, opts Options) (Store, error) {
	switch backend {
	case "", "json":
		var jsonOpts []JSONStoreOption
		if opts.TTL > 0 {
			jsonOpts = append(jsonOpts, WithTTL(opts.TTL))
		}
		if opts.Clock != nil {
			jsonOpts = append(jsonOpts, WithClock(opts.Clock))
		}
		return NewJSONStore(path, jsonOpts...)
	case "sqlite":
		var sqliteOpts []SQLiteStoreOption
		if opts.TTL > 0 {
			sqliteOpts = append(sqliteOpts, WithSQLiteTTL(opts.TTL))
		}
		if opts.Clock != nil {
			sqliteOpts = append(sqliteOpts, WithSQLiteClock(opts.Clock))
		}
		return NewSQLiteStore(path, sqliteOpts...)
	default:
		return nil, fmt.Errorf("unknown cache backend: %q", backend)
	}
}
