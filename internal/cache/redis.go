package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rickgao/ares/internal/model"
)

var _ Store = (*RedisStore)(nil)

// DefaultKeyPrefix namespaces snapshot keys in Redis.
const DefaultKeyPrefix = "ares:snapshot:"

// RedisStore is a Store shared between instances through Redis.
type RedisStore struct {
	client redis.UniversalClient
	ttl    time.Duration
	prefix string
}

// NewRedisStore creates a store whose entries expire after ttl.
// A non-positive ttl stores entries without expiry.
func NewRedisStore(client redis.UniversalClient, ttl time.Duration) *RedisStore {
	if ttl < 0 {
		ttl = 0
	}
	return &RedisStore{
		client: client,
		ttl:    ttl,
		prefix: DefaultKeyPrefix,
	}
}

// key returns the Redis key for a market.
func (s *RedisStore) key(marketID string) string {
	return s.prefix + marketID
}

// Get returns the cached snapshot for marketID.
func (s *RedisStore) Get(ctx context.Context, marketID string) (model.Snapshot, bool, error) {
	raw, err := s.client.Get(ctx, s.key(marketID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}

	var snap model.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, false, fmt.Errorf("decode cached snapshot: %w", err)
	}
	return snap, true, nil
}

// Set stores snapshot as JSON under the market's key.
func (s *RedisStore) Set(ctx context.Context, marketID string, snapshot model.Snapshot) error {
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := s.client.Set(ctx, s.key(marketID), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Len counts snapshot keys under the store's prefix.
func (s *RedisStore) Len(ctx context.Context) (int, error) {
	var (
		cursor uint64
		count  int
	)
	for {
		keys, next, err := s.client.Scan(ctx, cursor, s.prefix+"*", 100).Result()
		if err != nil {
			return 0, fmt.Errorf("redis scan: %w", err)
		}
		count += len(keys)
		cursor = next
		if cursor == 0 {
			return count, nil
		}
	}
}

// Ping checks the connection to the Redis server.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
