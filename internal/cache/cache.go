package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/PitokDf/express-app-useable/internal/platform/logger"
	"golang.org/x/sync/singleflight"
)

// DefaultTTL is used when a Cache is built without an explicit default.
const DefaultTTL = time.Hour

// Cache stores JSON-encoded values in a Backend. Backend failures are logged
// and swallowed: reads degrade to misses and writes to no-ops.
type Cache struct {
	backend    Backend
	defaultTTL time.Duration
	logger     *slog.Logger

	group singleflight.Group

	// mu orders invalidations against cache priming in GetOrCompute.
	// Invalidations bump version under the write lock; priming checks it
	// under the read lock.
	mu      sync.RWMutex
	version atomic.Uint64
}

// New creates a Cache over backend. A non-positive defaultTTL means DefaultTTL.
func New(backend Backend, defaultTTL time.Duration, logger *slog.Logger) *Cache {
	if defaultTTL <= 0 {
		defaultTTL = DefaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		backend:    backend,
		defaultTTL: defaultTTL,
		logger:     logger.With("component", "cache"),
	}
}

func (c *Cache) log(ctx context.Context) *slog.Logger {
	return logger.FromContextOrDefault(ctx, c.logger)
}

// Get decodes the value stored under key into dest and reports whether it
// was found.
func (c *Cache) Get(ctx context.Context, key string, dest any) bool {
	raw, ok, err := c.backend.Get(ctx, key)
	if err != nil {
		c.log(ctx).Warn("cache get failed", "key", key, "error", err)
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		c.log(ctx).Warn("cache entry could not be decoded", "key", key, "error", err)
		return false
	}
	return true
}

// Set stores value under key. A non-positive ttl means the default TTL.
func (c *Cache) Set(ctx context.Context, key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	raw, err := json.Marshal(value)
	if err != nil {
		c.log(ctx).Warn("cache value could not be encoded", "key", key, "error", err)
		return
	}
	if err := c.backend.Set(ctx, key, raw, ttl); err != nil {
		c.log(ctx).Warn("cache set failed", "key", key, "error", err)
	}
}

// Delete removes key.
func (c *Cache) Delete(ctx context.Context, key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.version.Add(1)
	if err := c.backend.Delete(ctx, key); err != nil {
		c.log(ctx).Warn("cache delete failed", "key", key, "error", err)
	}
}

// DeleteByPrefix removes every key starting with prefix and returns how many
// were removed. It returns once the backend has applied the deletion.
func (c *Cache) DeleteByPrefix(ctx context.Context, prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.version.Add(1)
	n, err := c.backend.DeleteByPrefix(ctx, prefix)
	if err != nil {
		c.log(ctx).Warn("cache prefix delete failed", "prefix", prefix, "error", err)
	}
	c.log(ctx).Debug("cache invalidated", "prefix", prefix, "removed", n)
	return n
}

// Ping checks the backend.
func (c *Cache) Ping(ctx context.Context) error {
	return c.backend.Ping(ctx)
}

// Close releases the backend.
func (c *Cache) Close() error {
	return c.backend.Close()
}

// prime stores value unless an invalidation happened after version was read.
func (c *Cache) prime(ctx context.Context, key string, value any, ttl time.Duration, version uint64) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.version.Load() != version {
		c.log(ctx).Debug("skipping cache prime after invalidation", "key", key)
		return
	}
	c.Set(ctx, key, value, ttl)
}

// GetOrCompute returns the cached value for key, or runs produce, caches its
// result and returns it.
//
// Concurrent misses on the same key share one call to produce. A result
// computed while an invalidation happens is returned to its callers but not
// cached, and callers arriving after the invalidation start a new
// computation. Errors from produce are returned and never cached.
//
// produce runs detached from the caller's cancellation because its result
// may be shared with other callers.
func GetOrCompute[T any](
	ctx context.Context,
	c *Cache,
	key string,
	ttl time.Duration,
	produce func(ctx context.Context) (T, error),
) (T, error) {
	var cached T
	if c.Get(ctx, key, &cached) {
		return cached, nil
	}

	version := c.version.Load()
	flightKey := strconv.FormatUint(version, 10) + "|" + key

	res, err, _ := c.group.Do(flightKey, func() (any, error) {
		detached := context.WithoutCancel(ctx)
		value, err := produce(detached)
		if err != nil {
			return nil, err
		}
		c.prime(detached, key, value, ttl, version)
		return value, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return res.(T), nil
}
