package cachestore

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore is a Store backed by Redis, adapted from the teacher's
// tile cache: native key TTL, plus a PERSIST/EXPIRE dance for
// protect/release so a pinned key survives past its TTL without the
// registry needing to track Redis-specific state.
type RedisStore struct {
	client     *redis.Client
	defaultTTL time.Duration
}

// RedisConfig mirrors the teacher's cache.RedisConfig.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

var _ Store = (*RedisStore)(nil)

func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("cachestore: connect to redis: %w", err)
	}

	ttl := cfg.TTL
	if ttl == 0 {
		ttl = DefaultTTL
	}

	return &RedisStore{client: client, defaultTTL: ttl}, nil
}

func (s *RedisStore) Close() error { return s.client.Close() }

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("cachestore: redis get: %w", err)
	}
	return data, true, nil
}

func (s *RedisStore) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl == 0 {
		ttl = s.defaultTTL
	}
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("cachestore: redis set: %w", err)
	}
	return nil
}

func (s *RedisStore) Contains(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("cachestore: redis exists: %w", err)
	}
	return n > 0, nil
}

func (s *RedisStore) RemoveKeysWithPrefix(ctx context.Context, prefix string) (bool, error) {
	var cursor uint64
	for {
		keys, next, err := s.client.Scan(ctx, cursor, prefix+"*", 100).Result()
		if err != nil {
			return false, fmt.Errorf("cachestore: redis scan: %w", err)
		}
		if len(keys) > 0 {
			if err := s.client.Del(ctx, keys...).Err(); err != nil {
				return false, fmt.Errorf("cachestore: redis del: %w", err)
			}
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return true, nil
}

func (s *RedisStore) Protect(ctx context.Context, keys []string) error {
	for _, key := range keys {
		if err := s.client.Persist(ctx, key).Err(); err != nil && err != redis.Nil {
			return fmt.Errorf("cachestore: redis persist %q: %w", key, err)
		}
	}
	return nil
}

func (s *RedisStore) Release(ctx context.Context, keys []string) error {
	for _, key := range keys {
		if err := s.client.Expire(ctx, key, s.defaultTTL).Err(); err != nil && err != redis.Nil {
			return fmt.Errorf("cachestore: redis expire %q: %w", key, err)
		}
	}
	return nil
}
