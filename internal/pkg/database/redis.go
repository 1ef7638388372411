// Package database opens the Redis connection shared by the reasoner cache,
// the run rate limiter and the readiness probe.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/agenttrace/xray/internal/config"
)

// NewRedis creates a Redis client and checks the connection
func NewRedis(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) (*redis.Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	client := redis.NewClient(&redis.Options{
		Addr:            cfg.Addr(),
		Password:        cfg.Password,
		DB:              cfg.DB,
		MaxRetries:      3,
		MinRetryBackoff: 8 * time.Millisecond,
		MaxRetryBackoff: 512 * time.Millisecond,
		DialTimeout:     5 * time.Second,
		ReadTimeout:     3 * time.Second,
		WriteTimeout:    3 * time.Second,
		PoolSize:        20,
		PoolTimeout:     4 * time.Second,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	logger.Info("connected to Redis",
		zap.String("addr", cfg.Addr()),
		zap.Int("db", cfg.DB),
	)

	return client, nil
}
