// Package cachestore defines the key-value cache contract the module's
// repositories and the protection registry are built on, plus the
// concrete backends (in-memory, SQLite, Redis, filesystem) that
// implement it.
//
// Values are opaque byte buffers; decoding (e.g. into a quad-tree index
// or a partition record) happens above this package. TTL eviction and
// protect/release pinning are first-class: a key pinned via Protect is
// exempt from TTL eviction until a matching Release.
package cachestore

import (
	"context"
	"time"
)

// Store is the cache engine contract consumed by the repositories and
// the protection registry. Implementations must be safe for concurrent
// use; Get/Put/Contains/RemoveKeysWithPrefix are each individually
// atomic, with no cross-call ordering guarantee.
type Store interface {
	// Get returns the stored value for key, or ok=false if absent or
	// expired (and not protected).
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)

	// Put stores value under key with the given TTL. A zero TTL means
	// "use the store's configured default expiration".
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Contains reports whether key currently holds a live (unexpired or
	// protected) value, without returning it.
	Contains(ctx context.Context, key string) (bool, error)

	// RemoveKeysWithPrefix deletes every key with the given prefix. It
	// returns true unless a removal that should have succeeded failed.
	// A prefix matching nothing is not an error: it returns true.
	RemoveKeysWithPrefix(ctx context.Context, prefix string) (bool, error)

	// Protect exempts keys from TTL eviction until a matching Release.
	Protect(ctx context.Context, keys []string) error

	// Release removes the TTL exemption Protect established, restoring
	// normal expiration behavior for keys.
	Release(ctx context.Context, keys []string) error
}

// DefaultTTL is the expiration RedisStore falls back to when it is
// configured with a zero TTL. The other stores use the default they were
// constructed with and do not consult it.
const DefaultTTL = 24 * time.Hour
