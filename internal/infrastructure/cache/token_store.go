package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const verificationKeyPrefix = "verify:"

// ErrTokenNotFound is returned when a verification token is unknown or expired.
var ErrTokenNotFound = errors.New("verification token not found")

// VerificationTokenStore holds short-lived email verification tokens.
type VerificationTokenStore interface {
	// Put associates a token with a user ID for the given TTL.
	Put(ctx context.Context, token string, userID int64, ttl time.Duration) error

	// Consume resolves a token to its user ID and removes it.
	Consume(ctx context.Context, token string) (int64, error)
}

// RedisTokenStore implements VerificationTokenStore on Redis.
type RedisTokenStore struct {
	client *redis.Client
}

// NewRedisTokenStore creates a Redis-backed verification token store.
func NewRedisTokenStore(client *redis.Client) *RedisTokenStore {
	return &RedisTokenStore{client: client}
}

func (s *RedisTokenStore) Put(ctx context.Context, token string, userID int64, ttl time.Duration) error {
	if err := s.client.Set(ctx, verificationKeyPrefix+token, userID, ttl).Err(); err != nil {
		return fmt.Errorf("redis set verification token: %w", err)
	}
	return nil
}

func (s *RedisTokenStore) Consume(ctx context.Context, token string) (int64, error) {
	key := verificationKeyPrefix + token

	userID, err := s.client.Get(ctx, key).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, ErrTokenNotFound
		}
		return 0, fmt.Errorf("redis get verification token: %w", err)
	}

	if err := s.client.Del(ctx, key).Err(); err != nil {
		return 0, fmt.Errorf("redis del verification token: %w", err)
	}

	return userID, nil
}

// Compile-time verification that RedisTokenStore implements VerificationTokenStore.
var _ VerificationTokenStore = (*RedisTokenStore)(nil)
