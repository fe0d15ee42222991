// Package kv provides the shared key/value store used by the session-day
// rate limiter. The store must support atomic INCR, TTL inspection, EXPIRE,
// and SET-if-absent with expiry; INCR+TTL are issued as one pipelined
// round-trip.
package kv

import (
	"context"
	"time"
)

// Store is the counter/TTL contract consumed by the rate limiter.
type Store interface {
	// IncrWithTTL atomically increments key and reads its TTL in a single
	// pipelined round-trip. A negative TTL means the key has no expiry set,
	// mirroring Redis semantics; callers bind one with Expire.
	IncrWithTTL(ctx context.Context, key string) (count int64, ttl time.Duration, err error)

	// Expire binds a TTL to an existing key.
	Expire(ctx context.Context, key string, ttl time.Duration) error

	// SetNX sets key to value with the given TTL only if the key is absent.
	// Returns true when the set took effect.
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)

	// Close releases the underlying client.
	Close() error
}
