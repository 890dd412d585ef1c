package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/receiving/internal/domain/shared"
	"github.com/erp/receiving/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
)

const (
	idempotencyKeyPrefix = "receiving:commit:"
	redisDialTimeout     = 5 * time.Second
)

// RedisIdempotencyStore shares commit keys between service instances.
// Each key holds the UTC time it was first marked.
type RedisIdempotencyStore struct {
	client *redis.Client
}

// DialRedisIdempotencyStore opens a client for cfg and pings it before returning.
func DialRedisIdempotencyStore(ctx context.Context, cfg config.RedisConfig) (*RedisIdempotencyStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr(),
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: redisDialTimeout,
	})

	ctx, cancel := context.WithTimeout(ctx, redisDialTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis %s: %w", cfg.Addr(), err)
	}
	return &RedisIdempotencyStore{client: client}, nil
}

func (s *RedisIdempotencyStore) MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	stamp := time.Now().UTC().Format(time.RFC3339Nano)
	err := s.client.SetArgs(ctx, idempotencyKeyPrefix+key, stamp, redis.SetArgs{
		Mode: "NX",
		TTL:  ttl,
	}).Err()
	switch {
	case errors.Is(err, redis.Nil):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("mark commit key: %w", err)
	}
	return true, nil
}

func (s *RedisIdempotencyStore) IsProcessed(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, idempotencyKeyPrefix+key).Result()
	if err != nil {
		return false, fmt.Errorf("check commit key: %w", err)
	}
	return n == 1, nil
}

// Forget releases key so a failed commit can be retried.
func (s *RedisIdempotencyStore) Forget(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, idempotencyKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("forget commit key: %w", err)
	}
	return nil
}

// Ping is used by the readiness check.
func (s *RedisIdempotencyStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisIdempotencyStore) Close() error {
	return s.client.Close()
}

var _ shared.IdempotencyStore = (*RedisIdempotencyStore)(nil)
