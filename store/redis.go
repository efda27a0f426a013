package store

import (
	"context"
	"errors"
	"strings"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "ecoecho:kv:"

// RedisStore keeps documents as plain redis strings under a shared prefix.
type RedisStore struct {
	client *redis.Client
}

// OpenRedis parses a redis:// URL and pings the server.
func OpenRedis(ctx context.Context, url string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, wrap("connect", "", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, wrap("connect", "", err)
	}
	return NewRedisStore(client), nil
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Client exposes the connection so the refresh throttle can share it.
func (s *RedisStore) Client() *redis.Client {
	return s.client
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	v, err := s.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, wrap("get", key, err)
	}
	return v, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte) error {
	return wrap("set", key, s.client.Set(ctx, redisKeyPrefix+key, value, 0).Err())
}

func (s *RedisStore) Remove(ctx context.Context, key string) error {
	return wrap("remove", key, s.client.Del(ctx, redisKeyPrefix+key).Err())
}

func (s *RedisStore) ListKeys(ctx context.Context) ([]string, error) {
	var keys []string
	iter := s.client.Scan(ctx, 0, redisKeyPrefix+"*", 200).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, strings.TrimPrefix(iter.Val(), redisKeyPrefix))
	}
	if err := iter.Err(); err != nil {
		return nil, wrap("list", "", err)
	}
	return keys, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
