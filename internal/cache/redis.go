package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gomodule/redigo/redis"
)

// NewRedisPool creates the redigo pool shared by the cache and the session store.
func NewRedisPool(addr, password string, db int) *redis.Pool {
	return &redis.Pool{
		MaxIdle:     10,
		IdleTimeout: 240 * time.Second,
		DialContext: func(ctx context.Context) (redis.Conn, error) {
			return redis.DialContext(ctx, "tcp", addr,
				redis.DialPassword(password),
				redis.DialDatabase(db),
				redis.DialConnectTimeout(5*time.Second),
			)
		},
		TestOnBorrow: func(c redis.Conn, t time.Time) error {
			if time.Since(t) < time.Minute {
				return nil
			}
			_, err := c.Do("PING")
			return err
		},
	}
}

// RedisStore is a Store backed by Redis strings.
type RedisStore struct {
	pool *redis.Pool
}

func NewRedisStore(pool *redis.Pool) *RedisStore {
	return &RedisStore{pool: pool}
}

func (s *RedisStore) do(ctx context.Context, cmd string, args ...any) (any, error) {
	conn, err := s.pool.GetContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("redis connection: %w", err)
	}
	defer conn.Close()

	return redis.DoContext(conn, ctx, cmd, args...)
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	raw, err := redis.Bytes(s.do(ctx, "GET", key))
	if err != nil {
		if errors.Is(err, redis.ErrNil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return raw, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte) error {
	_, err := s.do(ctx, "SET", key, value)
	return err
}

func (s *RedisStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	args := make([]any, len(keys))
	for i, k := range keys {
		args[i] = k
	}
	_, err := s.do(ctx, "DEL", args...)
	return err
}

func (s *RedisStore) Ping(ctx context.Context) error {
	_, err := s.do(ctx, "PING")
	return err
}
