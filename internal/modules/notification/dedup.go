package notification

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Deduper suppresses repeat notifications for the same key inside a window.
type Deduper interface {
	// FirstInWindow reports whether this key has not fired within the window,
	// claiming it atomically when it has not.
	FirstInWindow(ctx context.Context, key string, window time.Duration) (bool, error)
}

const dedupKeyPrefix = "notify:dedup:"

// RedisDeduper claims keys with SETNX + TTL, the same idiom the rest of the
// platform uses for short-lived coordination keys.
type RedisDeduper struct {
	redis *redis.Client
}

func NewRedisDeduper(client *redis.Client) *RedisDeduper {
	return &RedisDeduper{redis: client}
}

func (d *RedisDeduper) FirstInWindow(ctx context.Context, key string, window time.Duration) (bool, error) {
	return d.redis.SetNX(ctx, dedupKeyPrefix+key, "1", window).Result()
}

var _ Deduper = (*RedisDeduper)(nil)
