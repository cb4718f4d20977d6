package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisTierStore keeps the last reported quota tier per user in Redis so that
// edge-mode alerts survive restarts and are shared between instances.
type RedisTierStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisTierStore(client *redis.Client, ttl time.Duration) *RedisTierStore {
	return &RedisTierStore{client: client, prefix: "webdesk:quota:tier:", ttl: ttl}
}

func (s *RedisTierStore) LastTier(ctx context.Context, userID string) (int, error) {
	val, err := s.client.Get(ctx, s.prefix+userID).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read alert tier: %w", err)
	}
	tier, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("corrupt alert tier %q: %w", val, err)
	}
	return tier, nil
}

func (s *RedisTierStore) SetTier(ctx context.Context, userID string, tier int) error {
	if err := s.client.Set(ctx, s.prefix+userID, tier, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store alert tier: %w", err)
	}
	return nil
}

func (s *RedisTierStore) Forget(ctx context.Context, userID string) error {
	if err := s.client.Del(ctx, s.prefix+userID).Err(); err != nil {
		return fmt.Errorf("failed to clear alert tier: %w", err)
	}
	return nil
}
