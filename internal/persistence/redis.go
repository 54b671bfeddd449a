package persistence

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/proroto/workorder-service/internal/config"
)

// Redis wraps the go-redis client used as the realtime change bus for
// ticket events. The service stays up when the bus is unreachable; only
// realtime fan-out degrades.
type Redis struct {
	Client *redis.Client
}

// NewRedis connects to the change bus using REDIS_* settings.
func NewRedis(cfg config.RedisConfig, logger *zap.Logger) *Redis {
	addr := cfg.Addr
	if addr == "" {
		addr = "127.0.0.1:6379"
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		logger.Warn("realtime change bus unreachable", zap.String("addr", addr), zap.Error(err))
	} else {
		logger.Info("connected to realtime change bus", zap.String("addr", addr))
	}

	return &Redis{Client: client}
}

// Close closes the client.
func (r *Redis) Close() {
	if r != nil && r.Client != nil {
		_ = r.Client.Close()
	}
}

// Ping verifies Redis connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	if r == nil || r.Client == nil {
		return errors.New("redis client not configured")
	}
	return r.Client.Ping(ctx).Err()
}
