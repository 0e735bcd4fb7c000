package store

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/hrygo/studydeck/internal/profile"
	"github.com/hrygo/studydeck/store/cache"
)

// Store provides database access to all raw objects.
type Store struct {
	profile *profile.Profile
	driver  Driver

	// Cache settings
	cacheConfig cache.Config

	// Caches
	userCache *cache.TieredCache[User] // cache for users, nil inside a transaction
	userGroup *singleflight.Group

	// tx is set on stores bound to a transaction.
	tx *txState
}

type txState struct {
	evicted []int32
}

// Option configures a Store.
type Option func(*options)

type options struct {
	l2 cache.RedisCacheInterface
}

// WithL2Cache shares cached users across instances through the given L2 cache.
func WithL2Cache(l2 cache.RedisCacheInterface) Option {
	return func(o *options) {
		o.l2 = l2
	}
}

// New creates a new instance of Store.
func New(driver Driver, profile *profile.Profile, opts ...Option) *Store {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	ttl := profile.CacheTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	cacheConfig := cache.Config{
		DefaultTTL:      ttl,
		CleanupInterval: time.Minute,
		MaxItems:        1000,
	}

	store := &Store{
		driver:      driver,
		profile:     profile,
		cacheConfig: cacheConfig,
		userCache:   cache.NewTieredCache[User](cacheConfig, o.l2),
		userGroup:   &singleflight.Group{},
	}

	return store
}

func (s *Store) GetDriver() Driver {
	return s.driver
}

func (s *Store) Close() error {
	// Stop all cache cleanup goroutines
	if s.userCache != nil {
		if err := s.userCache.Close(); err != nil {
			return err
		}
	}

	return s.driver.Close()
}

// RunInTx runs fn with a store bound to one database transaction.
// Reads inside fn bypass the user cache; users updated inside fn are evicted
// only after the transaction commits.
func (s *Store) RunInTx(ctx context.Context, fn func(tx *Store) error) error {
	if s.tx != nil {
		return fn(s)
	}

	state := &txState{}
	err := s.driver.WithTx(ctx, func(driver Driver) error {
		state.evicted = state.evicted[:0]
		return fn(&Store{
			profile:     s.profile,
			driver:      driver,
			cacheConfig: s.cacheConfig,
			userGroup:   s.userGroup,
			tx:          state,
		})
	})
	if err != nil {
		return err
	}

	for _, id := range state.evicted {
		s.evictUser(ctx, id)
	}
	return nil
}
