package nonce

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "oauth_state:"

// RedisStore keeps state nonces in Redis so callbacks can land on any
// instance behind a load balancer.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore creates a Redis-backed state store.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Save(ctx context.Context, state, shop string) error {
	if err := s.client.Set(ctx, keyPrefix+state, shop, s.ttl).Err(); err != nil {
		return fmt.Errorf("save oauth state: %w", err)
	}
	return nil
}

func (s *RedisStore) Consume(ctx context.Context, state string) (string, bool, error) {
	shop, err := s.client.GetDel(ctx, keyPrefix+state).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("consume oauth state: %w", err)
	}
	return shop, true, nil
}
