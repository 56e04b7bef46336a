package scheduler

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

type redisLocker struct {
	client *redis.Client
}

// NewRedisLocker builds the production advisory lock on SET NX.
func NewRedisLocker(client *redis.Client) Locker {
	return &redisLocker{client: client}
}

func (l *redisLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return l.client.SetNX(ctx, key, "1", ttl).Result()
}

func (l *redisLocker) Unlock(ctx context.Context, key string) error {
	return l.client.Del(ctx, key).Err()
}
