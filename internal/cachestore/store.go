// Package cachestore provides persistent blob stores for the image cache.
// All drivers expose the same Store interface so the cache layer can run
// against a directory, PostgreSQL, MariaDB or an in-memory mock.
package cachestore

import (
	"context"
	"time"
)

// Entry is one cached blob. CachedAt is epoch milliseconds, refreshed on
// every cache hit so hot entries never expire.
type Entry struct {
	Key      string
	Blob     []byte
	CachedAt int64
	Size     int64
}

// Store persists cache entries. Implementations must be safe for
// concurrent use. Store failures are treated as cache misses by callers;
// caching is best-effort.
type Store interface {
	// Get returns the entry for key. The second return value is false
	// when the key is not present.
	Get(ctx context.Context, key string) (Entry, bool, error)

	// Put inserts or replaces the entry.
	Put(ctx context.Context, e Entry) error

	// Touch refreshes the entry's CachedAt timestamp.
	Touch(ctx context.Context, key string, at time.Time) error

	// Delete removes the entry. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Len returns the number of stored entries.
	Len(ctx context.Context) (int, error)

	// Size returns the total stored blob bytes.
	Size(ctx context.Context) (int64, error)

	// Clear removes all entries.
	Clear(ctx context.Context) error

	// Close releases the store's resources.
	Close() error
}

// EpochMs converts a time to epoch milliseconds.
func EpochMs(t time.Time) int64 {
	return t.UnixMilli()
}

// Interface compliance checks.
var (
	_ Store = (*FS)(nil)
	_ Store = (*Postgres)(nil)
	_ Store = (*MariaDB)(nil)
	_ Store = (*Mock)(nil)
)
