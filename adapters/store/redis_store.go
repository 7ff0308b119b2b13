package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hivelink/warden/core"
	"github.com/hivelink/warden/ports"
)

const (
	invalidatedPrefix = "warden:invalidated:"
	challengePrefix   = "warden:challenge:"
	consentPrefix     = "warden:consent:"
)

// RedisStore is a Redis implementation of the Store interface.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a new Redis store.
func NewRedisStore(client *redis.Client) ports.Store {
	return &RedisStore{client: client}
}

// InvalidateToken marks a token as invalidated in Redis.
func (s *RedisStore) InvalidateToken(ctx context.Context, tokenID string, expiry time.Duration) error {
	if err := s.client.Set(ctx, invalidatedPrefix+tokenID, "1", expiry).Err(); err != nil {
		return fmt.Errorf("failed to invalidate token: %w", err)
	}
	return nil
}

// IsTokenInvalidated checks if a token is invalidated in Redis.
func (s *RedisStore) IsTokenInvalidated(ctx context.Context, tokenID string) (bool, error) {
	val, err := s.client.Exists(ctx, invalidatedPrefix+tokenID).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check token invalidation: %w", err)
	}
	return val > 0, nil
}

// ConsumeChallenge atomically marks a challenge as used. SETNX makes the
// first caller win; every later caller sees false.
func (s *RedisStore) ConsumeChallenge(ctx context.Context, challengeID string, ttl time.Duration) (bool, error) {
	fresh, err := s.client.SetNX(ctx, challengePrefix+challengeID, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to consume challenge: %w", err)
	}
	return fresh, nil
}

// SaveConsent stores a consent decision.
func (s *RedisStore) SaveConsent(ctx context.Context, record *core.ConsentRecord) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal consent: %w", err)
	}

	key := consentPrefix + record.Account + "/" + record.ClientID
	if err := s.client.Set(ctx, key, payload, 0).Err(); err != nil {
		return fmt.Errorf("failed to save consent: %w", err)
	}
	return nil
}

// FindConsent returns a stored consent decision, or nil when undecided.
func (s *RedisStore) FindConsent(ctx context.Context, account, clientID string) (*core.ConsentRecord, error) {
	val, err := s.client.Get(ctx, consentPrefix+account+"/"+clientID).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load consent: %w", err)
	}

	var record core.ConsentRecord
	if err := json.Unmarshal([]byte(val), &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal consent: %w", err)
	}
	return &record, nil
}
