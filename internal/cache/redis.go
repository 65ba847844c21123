package cache

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/PitokDf/express-app-useable/internal/config"
	"github.com/redis/go-redis/v9"
)

const scanBatch = 100

// RedisBackend is a Backend shared by every instance pointing at the same
// Redis database.
type RedisBackend struct {
	rdb redis.UniversalClient
}

// NewRedisBackend connects to the Redis server described by cfg. The
// connection is established lazily; use Ping to verify it.
func NewRedisBackend(cfg config.CacheConfig) *RedisBackend {
	return NewRedisBackendFromClient(redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}))
}

// NewRedisBackendFromClient wraps an existing client.
func NewRedisBackendFromClient(rdb redis.UniversalClient) *RedisBackend {
	return &RedisBackend{rdb: rdb}
}

// Get implements Backend.
func (r *RedisBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := r.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

// Set implements Backend.
func (r *RedisBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	return r.rdb.Set(ctx, key, value, ttl).Err()
}

// Delete implements Backend.
func (r *RedisBackend) Delete(ctx context.Context, key string) error {
	return r.rdb.Del(ctx, key).Err()
}

// DeleteByPrefix implements Backend using SCAN so large keyspaces are
// walked incrementally rather than with KEYS.
func (r *RedisBackend) DeleteByPrefix(ctx context.Context, prefix string) (int, error) {
	iter := r.rdb.Scan(ctx, 0, escapeGlob(prefix)+"*", scanBatch).Iterator()

	removed := 0
	batch := make([]string, 0, scanBatch)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := r.rdb.Del(ctx, batch...).Result()
		removed += int(n)
		batch = batch[:0]
		return err
	}

	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == scanBatch {
			if err := flush(); err != nil {
				return removed, err
			}
		}
	}
	if err := iter.Err(); err != nil {
		return removed, err
	}
	return removed, flush()
}

// Ping implements Backend.
func (r *RedisBackend) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}

// Close implements Backend.
func (r *RedisBackend) Close() error {
	return r.rdb.Close()
}

var globEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)

// escapeGlob quotes Redis MATCH metacharacters so a prefix is matched literally.
func escapeGlob(s string) string {
	return globEscaper.Replace(s)
}
