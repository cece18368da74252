// Package cache provides a small key/value cache used to memoize binary
// inspection results between runs.
//
// Keys are derived from file content hashes, so an entry can never describe a
// binary that has since been rewritten: the rewrite changes the content and
// therefore the key.
//
// Two implementations are provided:
//   - [FileCache]: JSON entries on disk, used by the CLI
//   - [NullCache]: never stores anything, used when caching is disabled
package cache

import (
	"context"
	"time"
)

// TTLInspect is how long inspection results stay valid. Entries are keyed by
// content, so the TTL only bounds disk usage.
const TTLInspect = 30 * 24 * time.Hour

// Cache is a byte-oriented key/value store with optional expiry.
type Cache interface {
	// Get returns the stored value and whether it was found.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value. A zero ttl means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a value. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases resources held by the cache.
	Close() error
}
