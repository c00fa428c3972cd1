package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// NewClient creates a Redis client and verifies connectivity. Redis backs the
// background job queue and the realtime dashboard pub/sub.
func NewClient(ctx context.Context, addr, password string, db int, logger *zap.Logger) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	logger.Info("redis connected", zap.String("addr", addr))
	return rdb, nil
}
