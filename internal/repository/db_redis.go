package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/chnk8802/task-manager/internal/config"
	"github.com/chnk8802/task-manager/pkg/utils/zaplogger"
	"github.com/redis/go-redis/v9"
)

// ConnectRedis connects to Redis and pings it.
// It returns nil, nil when no Redis host is configured.
func ConnectRedis(cfg *config.Config) (*redis.Client, error) {
	if cfg.RedisHost == "" {
		zaplogger.Info("Redis not configured, account events will only be logged")
		return nil, nil
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.RedisHost, cfg.RedisPort),
		Password: cfg.RedisPassword,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := redisClient.Ping(ctx).Result(); err != nil {
		redisClient.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %v", err)
	}
	zaplogger.Info("  * redis connected", zaplogger.Fields{"addr": redisClient.Options().Addr})
	return redisClient, nil
}
