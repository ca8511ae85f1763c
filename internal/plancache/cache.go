// Package plancache memoizes planning results per catalog and search
// configuration. Concurrent requests for the same key share one run.
package plancache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/kosarica/coupon-planner/internal/optimizer"
)

// Config holds cache settings.
type Config struct {
	// TTL is how long a result is served from cache. Zero disables caching
	// but still collapses concurrent identical requests.
	TTL time.Duration `mapstructure:"ttl"`

	// MaxEntries bounds the number of cached results.
	MaxEntries int `mapstructure:"max_entries"`
}

// DefaultConfig returns the default cache configuration.
func DefaultConfig() Config {
	return Config{
		TTL:        10 * time.Minute,
		MaxEntries: 256,
	}
}

// Loader runs a planning search on a cache miss.
type Loader func(ctx context.Context) (*optimizer.Result, error)

// Cache is a TTL cache of planning results.
// Cached results are shared between callers and must not be modified.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]entry
	sf      singleflight.Group

	config Config
	logger zerolog.Logger
	now    func() time.Time
}

type entry struct {
	result   *optimizer.Result
	storedAt time.Time
}

// New creates a plan cache.
func New(config Config) *Cache {
	if config.MaxEntries <= 0 {
		config.MaxEntries = DefaultConfig().MaxEntries
	}
	return &Cache{
		entries: make(map[string]entry),
		config:  config,
		logger:  log.With().Str("component", "plan_cache").Logger(),
		now:     time.Now,
	}
}

// Key identifies a planning run by catalog fingerprint and every config
// field that changes the outcome.
func Key(fingerprint string, cfg optimizer.Config) string {
	return fmt.Sprintf("%s|%d|%s|%g|%s|%d|%d|%d|%d|%s",
		fingerprint, cfg.Iterations, cfg.TimeBudget, cfg.Exploration, cfg.Strategy,
		cfg.TopK, cfg.Seed, cfg.Workers, cfg.ExpansionWidth, cfg.EvaluationOrder)
}

// Get returns the cached result for key or runs load. The second return
// value reports whether the result came from cache or a shared in-flight run.
//
// The load runs detached from ctx so one caller giving up does not cancel
// the run for the others; ctx only bounds how long this caller waits.
func (c *Cache) Get(ctx context.Context, key string, load Loader) (*optimizer.Result, bool, error) {
	if res, ok := c.lookup(key); ok {
		hits.Inc()
		return res, true, nil
	}
	misses.Inc()

	ch := c.sf.DoChan(key, func() (interface{}, error) {
		res, err := load(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		c.store(key, res)
		return res, nil
	})

	select {
	case r := <-ch:
		if r.Err != nil {
			return nil, false, r.Err
		}
		if r.Shared {
			shared.Inc()
		}
		return r.Val.(*optimizer.Result), r.Shared, nil
	case <-ctx.Done():
		return nil, false, fmt.Errorf("waiting for plan %s: %w", key, ctx.Err())
	}
}

func (c *Cache) lookup(key string) (*optimizer.Result, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if c.now().Sub(e.storedAt) > c.config.TTL {
		c.mu.Lock()
		if cur, ok := c.entries[key]; ok && cur.storedAt.Equal(e.storedAt) {
			delete(c.entries, key)
			entries.Set(float64(len(c.entries)))
		}
		c.mu.Unlock()
		return nil, false
	}
	return e.result, true
}

// store caches complete runs only; a canceled run holds partial plans.
func (c *Cache) store(key string, res *optimizer.Result) {
	if c.config.TTL <= 0 || res.StopReason == optimizer.StopCanceled {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.config.MaxEntries {
		c.evictOldestLocked()
	}
	c.entries[key] = entry{result: res, storedAt: c.now()}
	entries.Set(float64(len(c.entries)))
}

func (c *Cache) evictOldestLocked() {
	var (
		oldestKey string
		oldest    time.Time
	)
	for k, e := range c.entries {
		if oldestKey == "" || e.storedAt.Before(oldest) {
			oldestKey, oldest = k, e.storedAt
		}
	}
	delete(c.entries, oldestKey)
	evictions.Inc()
	c.logger.Debug().Str("key", oldestKey).Msg("Evicted cached plan")
}

// Len returns the number of cached results, expired ones included.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Purge drops every cached result.
func (c *Cache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry)
	entries.Set(0)
}
