package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "pagetutor:"

// RedisStore keeps each record under prefix+name.
type RedisStore struct {
	client *redis.Client
	prefix string
	owned  bool
}

func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &RedisStore{client: client, prefix: prefix}
}

// OpenRedis dials rawURL (redis://host:port/db) and verifies the connection.
func OpenRedis(ctx context.Context, rawURL, prefix string) (*RedisStore, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	store := NewRedisStore(client, prefix)
	store.owned = true
	return store, nil
}

func (s *RedisStore) Get(ctx context.Context, name string) ([]byte, error) {
	data, err := s.client.Get(ctx, s.prefix+name).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", name, err)
	}
	return data, nil
}

func (s *RedisStore) Set(ctx context.Context, name string, value []byte) error {
	if err := s.client.Set(ctx, s.prefix+name, value, 0).Err(); err != nil {
		return fmt.Errorf("failed to set %s: %w", name, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, name string) error {
	if err := s.client.Del(ctx, s.prefix+name).Err(); err != nil {
		return fmt.Errorf("failed to delete %s: %w", name, err)
	}
	return nil
}

// Close closes the client only when the store dialed it.
func (s *RedisStore) Close() error {
	if !s.owned {
		return nil
	}
	return s.client.Close()
}
