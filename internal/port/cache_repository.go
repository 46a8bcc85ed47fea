package port

import (
	"context"
	"time"
)

type CacheRepository interface {
	// Get returns the cached value; ok is false on a miss
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)

	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// DeletePattern removes every key matching a glob pattern and reports how many
	DeletePattern(ctx context.Context, pattern string) (int, error)
}
