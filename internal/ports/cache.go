package ports

import (
	"context"
	"time"
)

// Cache is a byte-oriented read-through store for upstream lookups. A miss is
// reported with ok=false and a nil error.
type Cache interface {
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
