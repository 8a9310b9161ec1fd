package credential

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "flodesk:account:"

// Store resolves a workflow-platform account to its stored Flodesk API key.
// Lookup returns ("", nil) when no mapping exists.
type Store interface {
	Lookup(ctx context.Context, accountID string) (string, error)
}

// RedisStore keeps the per-account credential mapping in Redis.
type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func (s *RedisStore) Lookup(ctx context.Context, accountID string) (string, error) {
	key, err := s.rdb.Get(ctx, redisKeyPrefix+accountID).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("lookup account %s: %w", accountID, err)
	}
	return key, nil
}

// Save stores or replaces the credential for an account. No expiry: the
// mapping lives until the operator deletes it.
func (s *RedisStore) Save(ctx context.Context, accountID, apiKey string) error {
	if err := s.rdb.Set(ctx, redisKeyPrefix+accountID, apiKey, 0).Err(); err != nil {
		return fmt.Errorf("save account %s: %w", accountID, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, accountID string) error {
	if err := s.rdb.Del(ctx, redisKeyPrefix+accountID).Err(); err != nil {
		return fmt.Errorf("delete account %s: %w", accountID, err)
	}
	return nil
}
