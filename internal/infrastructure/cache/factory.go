package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/tradedesk/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const pingTimeout = 5 * time.Second

// NewStore connects to the configured Redis. When Redis cannot be reached
// and fallback is allowed, an in-memory store is returned instead; the
// reference data it caches is then per instance.
func NewStore(cfg config.RedisConfig, allowInMemoryFallback bool, logger *zap.Logger) (Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		if !allowInMemoryFallback {
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		logger.Warn("Redis unavailable, caching reference data in memory",
			zap.String("addr", cfg.Addr()),
			zap.Error(err),
		)
		return NewInMemoryStore(logger), nil
	}

	logger.Info("Reference data cache connected to Redis", zap.String("addr", cfg.Addr()))
	return NewRedisStore(client), nil
}
