package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"
)

// TieredCache implements a two-tier caching strategy for values of type T:
// - L1: In-memory cache (fast, per process, always on)
// - L2: Redis cache (shared, optional)
//
// L2 values are JSON encoded. An L2 hit is promoted to L1.
type TieredCache[T any] struct {
	l1  *Cache
	l2  RedisCacheInterface
	ttl time.Duration
}

// NewTieredCache creates a tiered cache. A nil l2 disables the second tier.
func NewTieredCache[T any](config Config, l2 RedisCacheInterface) *TieredCache[T] {
	if l2 == nil {
		l2 = NilRedisCache{}
	}
	return &TieredCache[T]{
		l1:  New(config),
		l2:  l2,
		ttl: config.DefaultTTL,
	}
}

// Get retrieves a value from the cache, checking L1, then L2.
func (t *TieredCache[T]) Get(ctx context.Context, key string) (T, bool) {
	var zero T
	if v, ok := t.l1.Get(ctx, key); ok {
		if value, ok := v.(T); ok {
			return value, true
		}
	}

	data, ok := t.l2.Get(ctx, key)
	if !ok {
		return zero, false
	}
	var value T
	if err := json.Unmarshal(data, &value); err != nil {
		slog.Warn("failed to decode cache value", "key", key, "error", err)
		t.l2.Delete(ctx, key)
		return zero, false
	}
	t.l1.Set(ctx, key, value)
	return value, true
}

// Set stores a value in both L1 and L2.
func (t *TieredCache[T]) Set(ctx context.Context, key string, value T) {
	t.l1.Set(ctx, key, value)
	data, err := json.Marshal(value)
	if err != nil {
		slog.Warn("failed to encode cache value", "key", key, "error", err)
		return
	}
	t.l2.SetWithTTL(ctx, key, data, t.ttl)
}

// Delete removes a value from both L1 and L2.
func (t *TieredCache[T]) Delete(ctx context.Context, key string) {
	t.l1.Delete(ctx, key)
	t.l2.Delete(ctx, key)
}

// Size returns the number of L1 entries.
func (t *TieredCache[T]) Size() int64 {
	return t.l1.Size()
}

// Close closes all cache connections.
func (t *TieredCache[T]) Close() error {
	if err := t.l1.Close(); err != nil {
		return err
	}
	return t.l2.Close()
}
