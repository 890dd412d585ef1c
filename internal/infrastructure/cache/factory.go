package cache

import (
	"context"
	"fmt"

	"github.com/erp/receiving/internal/domain/shared"
	"github.com/erp/receiving/internal/infrastructure/config"
	"go.uber.org/zap"
)

// Idempotency store backends
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// IdempotencyStoreFactory picks the commit key store for a configured backend.
type IdempotencyStoreFactory struct {
	redis         config.RedisConfig
	logger        *zap.Logger
	allowFallback bool
}

// IdempotencyStoreFactoryOption configures the factory
type IdempotencyStoreFactoryOption func(*IdempotencyStoreFactory)

func WithLogger(logger *zap.Logger) IdempotencyStoreFactoryOption {
	return func(f *IdempotencyStoreFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether an unreachable Redis degrades to the
// in-memory store. Enabled by default.
func WithInMemoryFallback(allow bool) IdempotencyStoreFactoryOption {
	return func(f *IdempotencyStoreFactory) {
		f.allowFallback = allow
	}
}

func NewIdempotencyStoreFactory(cfg config.RedisConfig, opts ...IdempotencyStoreFactoryOption) *IdempotencyStoreFactory {
	f := &IdempotencyStoreFactory{
		redis:         cfg,
		logger:        zap.NewNop(),
		allowFallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CreateStore returns the store for backend. An empty backend means memory.
func (f *IdempotencyStoreFactory) CreateStore(ctx context.Context, backend string) (shared.IdempotencyStore, error) {
	switch backend {
	case BackendMemory, "":
		f.logger.Info("Idempotency store ready", zap.String("backend", BackendMemory))
		return NewInMemoryIdempotencyStore(), nil
	case BackendRedis:
		return f.redisStore(ctx)
	default:
		return nil, fmt.Errorf("unknown idempotency backend %q", backend)
	}
}

func (f *IdempotencyStoreFactory) redisStore(ctx context.Context) (shared.IdempotencyStore, error) {
	store, err := DialRedisIdempotencyStore(ctx, f.redis)
	if err == nil {
		f.logger.Info("Idempotency store ready",
			zap.String("backend", BackendRedis),
			zap.String("addr", f.redis.Addr()),
		)
		return store, nil
	}
	if !f.allowFallback {
		return nil, fmt.Errorf("idempotency backend redis unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, commit keys are tracked per instance",
		zap.String("addr", f.redis.Addr()),
		zap.Error(err),
	)
	return NewInMemoryIdempotencyStore(), nil
}
