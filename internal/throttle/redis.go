package throttle

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "rivals:throttle:"

// RedisStore shares throttle state between service replicas. The key's TTL
// is the cooldown window, so a present key means "not due".
type RedisStore struct {
	client   *redis.Client
	cooldown time.Duration
}

func NewRedisStore(client *redis.Client, cooldown time.Duration) *RedisStore {
	return &RedisStore{client: client, cooldown: cooldown}
}

func (s *RedisStore) Due(ctx context.Context, playerID string, now time.Time) (bool, error) {
	ok, err := s.client.SetNX(ctx, redisKeyPrefix+playerID, now.Unix(), s.cooldown).Result()
	if err != nil {
		return false, fmt.Errorf("throttle setnx: %w", err)
	}
	return ok, nil
}

func (s *RedisStore) Clear(ctx context.Context, playerID string) (bool, error) {
	n, err := s.client.Del(ctx, redisKeyPrefix+playerID).Result()
	if err != nil {
		return false, fmt.Errorf("throttle del: %w", err)
	}
	return n > 0, nil
}
