package util

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Deduper suppresses repeated deliveries of the same event id.
type Deduper struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewDeduper(rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *Deduper {
	return &Deduper{rdb: rdb, ttl: ttl, logger: logger}
}

// AcquireOnce returns true the first time handler sees id within the TTL.
// A nil client or a Redis failure lets the event through.
func (d *Deduper) AcquireOnce(ctx context.Context, handler string, id string) bool {
	if d == nil || d.rdb == nil {
		return true
	}
	key := "dedup:" + handler + ":" + id

	ok, err := d.rdb.SetNX(ctx, key, 1, d.ttl).Result()
	if err != nil {
		if d.logger != nil {
			d.logger.Warn("Redis dedup check failed, allowing processing",
				zap.String("handler", handler),
				zap.String("id", id),
				zap.Error(err),
			)
		}
		return true
	}

	if !ok && d.logger != nil {
		d.logger.Info("Skipped duplicated event",
			zap.String("handler", handler),
			zap.String("id", id),
			zap.String("dedup_key", key),
		)
	}
	return ok
}

// Release forgets id so a later delivery is processed again.
func (d *Deduper) Release(ctx context.Context, handler string, id string) {
	if d == nil || d.rdb == nil {
		return
	}
	_ = d.rdb.Del(ctx, "dedup:"+handler+":"+id).Err()
}
