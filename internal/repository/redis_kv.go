package repository

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// RedisKV stores entries as plain Redis strings under "<Prefix>:<key>".
type RedisKV struct {
	RDB    *redis.Client
	Prefix string
}

func NewRedisKV(rdb *redis.Client, prefix string) *RedisKV {
	if prefix == "" {
		prefix = "roadassist:session"
	}
	return &RedisKV{RDB: rdb, Prefix: prefix}
}

func (s *RedisKV) key(k string) string { return s.Prefix + ":" + k }

func (s *RedisKV) Get(ctx context.Context, key string) (string, error) {
	v, err := s.RDB.Get(ctx, s.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	return v, err
}

func (s *RedisKV) Set(ctx context.Context, key, value string) error {
	return s.RDB.Set(ctx, s.key(key), value, 0).Err()
}

func (s *RedisKV) Delete(ctx context.Context, key string) error {
	return s.RDB.Del(ctx, s.key(key)).Err()
}
