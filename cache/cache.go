// Package cache stores opaque byte payloads under well-known slot names.
// Backends honour an optional time-to-live; a zero TTL keeps the slot until
// it is overwritten or deleted.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss signals that the slot is absent or has expired.
var ErrMiss = errors.New("cache: miss")

// Store is implemented by every slot backend.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
