package store

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"tandem/pkg/metrics"
)

// JSONCache stores JSON values in Redis with a TTL and falls back to an
// in-process map when Redis is disabled or failing. A cache error is logged
// and treated as a miss; it never surfaces to the caller.
type JSONCache struct {
	name   string
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger

	mu    sync.RWMutex
	local map[string]localEntry
	now   func() time.Time
}

type localEntry struct {
	data    []byte
	expires time.Time
}

func NewJSONCache(name string, rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *JSONCache {
	return &JSONCache{
		name:   name,
		rdb:    rdb,
		ttl:    ttl,
		logger: logger,
		local:  make(map[string]localEntry),
		now:    time.Now,
	}
}

// Get decodes the cached value for key into out and reports a hit.
func (c *JSONCache) Get(ctx context.Context, key string, out any) bool {
	data, ok := c.get(ctx, key)
	if !ok {
		metrics.IncrementCacheLookup(c.name, "miss")
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		c.logger.Warn("Discarding undecodable cache entry",
			zap.String("cache", c.name),
			zap.String("key", key),
			zap.Error(err),
		)
		c.Delete(ctx, key)
		metrics.IncrementCacheLookup(c.name, "miss")
		return false
	}
	metrics.IncrementCacheLookup(c.name, "hit")
	return true
}

func (c *JSONCache) get(ctx context.Context, key string) ([]byte, bool) {
	if c.rdb != nil {
		data, err := c.rdb.Get(ctx, key).Bytes()
		if err == nil {
			return data, true
		}
		if errors.Is(err, redis.Nil) {
			return nil, false
		}
		c.logger.Warn("Redis get failed, using local cache",
			zap.String("cache", c.name),
			zap.String("key", key),
			zap.Error(err),
		)
	}

	c.mu.RLock()
	e, ok := c.local[key]
	c.mu.RUnlock()
	if !ok || c.now().After(e.expires) {
		return nil, false
	}
	return e.data, true
}

func (c *JSONCache) Set(ctx context.Context, key string, value any) {
	data, err := json.Marshal(value)
	if err != nil {
		c.logger.Error("Failed to encode cache value",
			zap.String("cache", c.name),
			zap.String("key", key),
			zap.Error(err),
		)
		return
	}

	if c.rdb != nil {
		err := c.rdb.Set(ctx, key, data, c.ttl).Err()
		if err == nil {
			return
		}
		c.logger.Warn("Redis set failed, using local cache",
			zap.String("cache", c.name),
			zap.String("key", key),
			zap.Error(err),
		)
	}

	c.mu.Lock()
	c.local[key] = localEntry{data: data, expires: c.now().Add(c.ttl)}
	c.mu.Unlock()
}

func (c *JSONCache) Delete(ctx context.Context, key string) {
	if c.rdb != nil {
		if err := c.rdb.Del(ctx, key).Err(); err != nil {
			c.logger.Warn("Redis delete failed",
				zap.String("cache", c.name),
				zap.String("key", key),
				zap.Error(err),
			)
		}
	}
	c.mu.Lock()
	delete(c.local, key)
	c.mu.Unlock()
}
