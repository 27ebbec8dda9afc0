package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"shopsite/internal/models"
)

// ThrottleStore keeps per-session OTP attempt counters in an ephemeral store.
type ThrottleStore interface {
	Get(ctx context.Context, sessionID string) (models.ThrottleState, error)
	Set(ctx context.Context, sessionID string, state models.ThrottleState, ttl time.Duration) error
	Clear(ctx context.Context, sessionID string) error
}

type redisThrottleStore struct {
	client *redis.Client
}

func NewThrottleStore(client *redis.Client) ThrottleStore {
	return &redisThrottleStore{client: client}
}

func throttleKey(sessionID string) string {
	return "otp:throttle:" + sessionID
}

// Get returns the zero state when no counter exists yet.
func (s *redisThrottleStore) Get(ctx context.Context, sessionID string) (models.ThrottleState, error) {
	var state models.ThrottleState
	raw, err := s.client.Get(ctx, throttleKey(sessionID)).Bytes()
	if err == redis.Nil {
		return state, nil
	}
	if err != nil {
		return state, fmt.Errorf("throttle get: %w", err)
	}
	if err := json.Unmarshal(raw, &state); err != nil {
		return models.ThrottleState{}, fmt.Errorf("throttle decode: %w", err)
	}
	return state, nil
}

func (s *redisThrottleStore) Set(ctx context.Context, sessionID string, state models.ThrottleState, ttl time.Duration) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("throttle encode: %w", err)
	}
	if err := s.client.Set(ctx, throttleKey(sessionID), raw, ttl).Err(); err != nil {
		return fmt.Errorf("throttle set: %w", err)
	}
	return nil
}

func (s *redisThrottleStore) Clear(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, throttleKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("throttle clear: %w", err)
	}
	return nil
}
