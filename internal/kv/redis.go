package kv

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements Store on a Redis connection.
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore connects to the Redis instance described by url
// (e.g. "redis://localhost:6379/0").
func NewRedisStore(url string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("kv: parse redis url: %w", err)
	}
	log.Printf("[kv] redis connect %s", opts.Addr)
	return &RedisStore{rdb: redis.NewClient(opts)}, nil
}

// Ping verifies connectivity. Used by readiness checks.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

// IncrWithTTL issues INCR + TTL in one transactional pipeline.
func (s *RedisStore) IncrWithTTL(ctx context.Context, key string) (int64, time.Duration, error) {
	pipe := s.rdb.TxPipeline()
	incr := pipe.Incr(ctx, key)
	ttl := pipe.TTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, 0, fmt.Errorf("kv: incr %s: %w", key, err)
	}
	return incr.Val(), ttl.Val(), nil
}

// Expire binds a TTL to key.
func (s *RedisStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	if err := s.rdb.Expire(ctx, key, ttl).Err(); err != nil {
		return fmt.Errorf("kv: expire %s: %w", key, err)
	}
	return nil
}

// SetNX sets key to value with ttl only if absent.
func (s *RedisStore) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	ok, err := s.rdb.SetNX(ctx, key, value, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("kv: setnx %s: %w", key, err)
	}
	return ok, nil
}

// Close closes the Redis client.
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
