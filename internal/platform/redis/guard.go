package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const guardPrefix = "unionhub:send-once:"

// SendGuard claims a notification slot with SET NX so that overlapping
// campaigns do not both dispatch to the same event member.
type SendGuard struct {
	rdb redis.Cmdable
	ttl time.Duration
}

// NewSendGuard builds a guard over any go-redis command surface.
func NewSendGuard(rdb redis.Cmdable, ttl time.Duration) *SendGuard {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SendGuard{rdb: rdb, ttl: ttl}
}

// Claim returns true when the caller won the slot for key.
func (g *SendGuard) Claim(ctx context.Context, key string) (bool, error) {
	ok, err := g.rdb.SetNX(ctx, guardPrefix+key, time.Now().UTC().Format(time.RFC3339), g.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claim send slot: %w", err)
	}
	return ok, nil
}

// Release frees a slot after a failed send so a later campaign can retry.
func (g *SendGuard) Release(ctx context.Context, key string) error {
	if err := g.rdb.Del(ctx, guardPrefix+key).Err(); err != nil {
		return fmt.Errorf("release send slot: %w", err)
	}
	return nil
}
