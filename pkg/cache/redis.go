package cache

import (
	"context"
	"fmt"
	"time"

	"kedoo/pkg/config"

	"github.com/redis/go-redis/v9"
)

// ModerationChannel carries "release:<id>" for every release entering moderation.
const ModerationChannel = "moderation_queue"

// NotificationsKey names both the per-user inbox list and its pub/sub channel.
func NotificationsKey(userID string) string {
	return fmt.Sprintf("notifications:%s", userID)
}

func NewRedisClient(cfg *config.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.RedisHost, cfg.RedisPort),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return client, nil
}
