package persistent

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"kedoo/pkg/cache"
	"kedoo/services/notification/internal/entity"

	"github.com/redis/go-redis/v9"
)

const (
	inboxSize = 100
	inboxTTL  = 30 * 24 * time.Hour
)

// NotificationRepository keeps the newest notifications of every user in a
// capped Redis list and fans each new one out on the user's channel.
type NotificationRepository interface {
	Push(ctx context.Context, notification *entity.Notification) error
	List(ctx context.Context, userID string, limit, offset int) ([]entity.Notification, int64, error)
}

type notificationRepository struct {
	redisClient *redis.Client
}

func NewNotificationRepository(redisClient *redis.Client) NotificationRepository {
	return &notificationRepository{redisClient: redisClient}
}

func (r *notificationRepository) Push(ctx context.Context, notification *entity.Notification) error {
	payload, err := json.Marshal(notification)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	key := cache.NotificationsKey(notification.UserID)
	pipe := r.redisClient.TxPipeline()
	pipe.LPush(ctx, key, payload)
	pipe.LTrim(ctx, key, 0, inboxSize-1)
	pipe.Expire(ctx, key, inboxTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store notification in %s: %w", key, err)
	}

	// live listeners only, the list above is the source of truth
	if err := r.redisClient.Publish(ctx, key, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish notification to %s: %w", key, err)
	}
	return nil
}

func (r *notificationRepository) List(ctx context.Context, userID string, limit, offset int) ([]entity.Notification, int64, error) {
	key := cache.NotificationsKey(userID)

	raw, err := r.redisClient.LRange(ctx, key, int64(offset), int64(offset+limit-1)).Result()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get notifications: %w", err)
	}

	notifications := make([]entity.Notification, 0, len(raw))
	for _, item := range raw {
		var notification entity.Notification
		if err := json.Unmarshal([]byte(item), &notification); err == nil {
			notifications = append(notifications, notification)
		}
	}

	total, err := r.redisClient.LLen(ctx, key).Result()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count notifications: %w", err)
	}
	return notifications, total, nil
}
