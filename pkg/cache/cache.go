package cache

import (
	"context"
	"time"
)

// BytesCache is a minimal key-value API storing raw bytes with TTL.
// A ttl <= 0 keeps the value until it is overwritten or deleted.
type BytesCache interface {
	GetBytes(ctx context.Context, key string) (b []byte, ok bool, err error)
	SetBytes(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Close() error
}
