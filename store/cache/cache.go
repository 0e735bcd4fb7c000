// Package cache provides the in-memory and Redis caches used by the store.
package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Config holds the configuration for the memory cache.
type Config struct {
	// DefaultTTL is used by Set.
	DefaultTTL time.Duration
	// CleanupInterval is how often expired items are swept. Zero disables the sweeper.
	CleanupInterval time.Duration
	// MaxItems bounds the number of entries. Zero means unbounded.
	MaxItems int
	// OnEviction is called with every key removed by expiry or capacity.
	OnEviction func(key string, value any)
}

type item struct {
	value     any
	expiresAt time.Time
}

func (i *item) expired(now time.Time) bool {
	return !i.expiresAt.IsZero() && now.After(i.expiresAt)
}

// Cache is a concurrency safe in-memory cache with per-entry TTL.
type Cache struct {
	data      sync.Map
	itemCount atomic.Int64
	config    Config

	mu     sync.Mutex // serializes capacity eviction
	stopCh chan struct{}
	once   sync.Once
}

// New creates a memory cache and starts its sweeper.
func New(config Config) *Cache {
	c := &Cache{
		config: config,
		stopCh: make(chan struct{}),
	}
	if config.CleanupInterval > 0 {
		go c.cleanupLoop()
	}
	return c
}

func (c *Cache) Get(_ context.Context, key string) (any, bool) {
	v, ok := c.data.Load(key)
	if !ok {
		return nil, false
	}
	it := v.(*item)
	if it.expired(time.Now()) {
		c.remove(key, true)
		return nil, false
	}
	return it.value, true
}

func (c *Cache) Set(ctx context.Context, key string, value any) {
	c.SetWithTTL(ctx, key, value, c.config.DefaultTTL)
}

// SetWithTTL stores value under key. A non-positive ttl never expires.
func (c *Cache) SetWithTTL(_ context.Context, key string, value any, ttl time.Duration) {
	it := &item{value: value}
	if ttl > 0 {
		it.expiresAt = time.Now().Add(ttl)
	}
	if _, loaded := c.data.Swap(key, it); !loaded {
		if c.itemCount.Add(1) > int64(c.config.MaxItems) && c.config.MaxItems > 0 {
			c.evictOldest()
		}
	}
}

func (c *Cache) Delete(_ context.Context, key string) {
	c.remove(key, false)
}

func (c *Cache) Clear(_ context.Context) {
	c.data.Range(func(key, _ any) bool {
		c.remove(key.(string), false)
		return true
	})
}

// Size returns the number of entries, including expired ones not yet swept.
func (c *Cache) Size() int64 {
	return c.itemCount.Load()
}

// Close stops the sweeper. The cache stays usable.
func (c *Cache) Close() error {
	c.once.Do(func() { close(c.stopCh) })
	return nil
}

func (c *Cache) remove(key string, evicted bool) {
	v, loaded := c.data.LoadAndDelete(key)
	if !loaded {
		return
	}
	c.itemCount.Add(-1)
	if evicted && c.config.OnEviction != nil {
		c.config.OnEviction(key, v.(*item).value)
	}
}

// evictOldest drops expired entries, then the entry closest to expiry.
func (c *Cache) evictOldest() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	var oldestKey string
	var oldest time.Time
	c.data.Range(func(key, value any) bool {
		it := value.(*item)
		if it.expired(now) {
			c.remove(key.(string), true)
			return true
		}
		if !it.expiresAt.IsZero() && (oldestKey == "" || it.expiresAt.Before(oldest)) {
			oldestKey, oldest = key.(string), it.expiresAt
		}
		return true
	})
	if c.itemCount.Load() > int64(c.config.MaxItems) && oldestKey != "" {
		c.remove(oldestKey, true)
	}
}

func (c *Cache) cleanupLoop() {
	ticker := time.NewTicker(c.config.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			now := time.Now()
			c.data.Range(func(key, value any) bool {
				if value.(*item).expired(now) {
					c.remove(key.(string), true)
				}
				return true
			})
		case <-c.stopCh:
			return
		}
	}
}
