package redis

import (
	"context"
	"fmt"
	"time"
)

// RateLimiter is a fixed-window counter per key. The window opens on the
// first hit and closes when its TTL runs out.
type RateLimiter struct {
	client RedisClient
}

func NewRateLimiter(client RedisClient) *RateLimiter {
	return &RateLimiter{client: client}
}

// Allow counts one hit against key. A limit of zero or less never limits.
func (r *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if limit <= 0 {
		return true, nil
	}
	count, err := r.client.Incr(ctx, key)
	if err != nil {
		return false, fmt.Errorf("rate limit incr: %w", err)
	}
	if count == 1 {
		if err := r.client.Expire(ctx, key, window); err != nil {
			// a counter without TTL would block the user forever
			_ = r.client.Del(ctx, key)
			return false, fmt.Errorf("rate limit expire: %w", err)
		}
	}
	return count <= int64(limit), nil
}

// UserCommandKey buckets hits by user and interaction kind, e.g. "/start"
// or "genre_".
func UserCommandKey(tgID int64, kind string) string {
	return fmt.Sprintf("rate_limit:%d:%s", tgID, kind)
}
