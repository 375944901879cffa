// Package cache provides the read-side cache used for loan statements.
// The interface keeps handlers storage-agnostic: Redis in production, an
// in-memory map in tests or when no Redis address is configured.
package cache

import (
	"context"
	"time"
)

// Cache is a small key/value cache with TTL. A miss is (value="",
// ok=false), never an error; cache failures must not fail reads.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
