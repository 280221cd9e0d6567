package cachepool

import (
	"context"
	"time"
)

// Store is the byte-oriented backend contract a Pool persists through.
// A ttl <= 0 means the entry never expires at the backend; the pool tracks
// logical expiry itself inside the stored envelope, so backend TTLs are a
// best-effort hint for shared backends.
type Store interface {
	Driver() Driver
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	DeleteMany(ctx context.Context, keys ...string) error
	Flush(ctx context.Context) error
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	clone := make([]byte, len(b))
	copy(clone, b)
	return clone
}
