package usecase

import (
	"context"
	"fmt"
	"time"

	"kedoo/pkg/logger"
	"kedoo/services/notification/internal/entity"
	"kedoo/services/notification/internal/repo/persistent"
)

const (
	defaultLimit = 50
	maxLimit     = 100
)

// QueueInspector reports how many tasks wait in the broker.
type QueueInspector interface {
	GetQueueLength() (int, error)
}

type NotificationUseCase interface {
	HandleTask(task map[string]interface{}) error
	GetNotifications(ctx context.Context, userID string, limit, offset int) ([]entity.Notification, int64, error)
	QueueLength() (int64, error)
}

type notificationUseCase struct {
	notificationRepo persistent.NotificationRepository
	queue            QueueInspector
	logger           *logger.Logger
}

// NewNotificationUseCase builds the consumer side. queue may be nil.
func NewNotificationUseCase(notificationRepo persistent.NotificationRepository, queue QueueInspector, logger *logger.Logger) NotificationUseCase {
	return &notificationUseCase{
		notificationRepo: notificationRepo,
		queue:            queue,
		logger:           logger,
	}
}

// HandleTask turns one lifecycle task into an inbox entry for the owner.
// Unknown task types are acknowledged and dropped.
func (uc *notificationUseCase) HandleTask(task map[string]interface{}) error {
	taskType := field(task, "type")
	tmpl, ok := templates[taskType]
	if !ok {
		uc.logger.Warn("[NOTIFICATION HANDLER] Unknown notification type %q, task=%+v", taskType, task)
		return nil
	}

	ownerID := field(task, "owner_id")
	if ownerID == "" {
		uc.logger.Error("[NOTIFICATION HANDLER] Invalid %s task: missing owner_id, task=%+v", taskType, task)
		return nil
	}

	data := make(map[string]interface{})
	for _, key := range []string{"release_id", "ticket_id", "status", "reason"} {
		if value, ok := task[key]; ok {
			data[key] = value
		}
	}

	notification := &entity.Notification{
		UserID:    ownerID,
		Title:     tmpl.title,
		Message:   tmpl.render(task),
		Type:      taskType,
		Data:      data,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := uc.notificationRepo.Push(ctx, notification); err != nil {
		return fmt.Errorf("deliver %s to %s: %w", taskType, ownerID, err)
	}

	uc.logger.Info("[NOTIFICATION HANDLER] Delivered %s to user %s", taskType, ownerID)
	return nil
}

func (uc *notificationUseCase) GetNotifications(ctx context.Context, userID string, limit, offset int) ([]entity.Notification, int64, error) {
	if limit <= 0 || limit > maxLimit {
		limit = defaultLimit
	}
	if offset < 0 {
		offset = 0
	}
	return uc.notificationRepo.List(ctx, userID, limit, offset)
}

func (uc *notificationUseCase) QueueLength() (int64, error) {
	if uc.queue == nil {
		return 0, fmt.Errorf("queue client is not available")
	}
	length, err := uc.queue.GetQueueLength()
	return int64(length), err
}
