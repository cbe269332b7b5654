// Package redis implements rate limit storage backed by Redis, for
// deployments running more than one server instance.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/coffersec/coffer/internal/cofferd/ratelimit"
)

// Store implements rate limit storage using Redis
type Store struct {
	client *redis.Client
}

// NewStore creates a new Redis-backed rate limit store
func NewStore(client *redis.Client) *Store {
	return &Store{client: client}
}

// keyStr converts a LimitKey to a Redis key
func (s *Store) keyStr(key ratelimit.LimitKey) string {
	return fmt.Sprintf("rate:%s:%s:%s",
		key.Type,
		key.DeviceID,
		key.RemoteIP,
	)
}

// Increment adds one to the counter for key and returns the count plus
// the window end time derived from the key TTL
func (s *Store) Increment(ctx context.Context, key ratelimit.LimitKey, limit ratelimit.Limit) (int, time.Time, error) {
	redisKey := s.keyStr(key)

	pipe := s.client.Pipeline()
	incrCmd := pipe.Incr(ctx, redisKey)
	ttlCmd := pipe.PTTL(ctx, redisKey)

	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return 0, time.Time{}, fmt.Errorf("%w: %v", ratelimit.ErrStoreError, err)
	}

	count := int(incrCmd.Val())

	// A fresh key has no expiry yet; start its window now
	ttl := ttlCmd.Val()
	if ttl < 0 {
		if err := s.client.PExpire(ctx, redisKey, limit.Period).Err(); err != nil {
			return 0, time.Time{}, fmt.Errorf("%w: %v", ratelimit.ErrStoreError, err)
		}
		ttl = limit.Period
	}

	return count, time.Now().Add(ttl), nil
}

// Reset clears a rate limit counter
func (s *Store) Reset(ctx context.Context, key ratelimit.LimitKey) error {
	if err := s.client.Del(ctx, s.keyStr(key)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ratelimit.ErrStoreError, err)
	}
	return nil
}
