package usecase

import (
	"context"
	"fmt"
	"time"

	"kedoo/pkg/cache"
	"kedoo/services/release/internal/entity"
)

var eventPriority = map[string]int{
	"approved":  5,
	"rejected":  5,
	"submitted": 3,
}

// publish fans a committed transition out to the queue and, for new
// submissions, to the moderation channel. Failures are logged only.
func (uc *releaseUseCase) publish(event string, release *entity.Release) {
	priority := 1
	if p, ok := eventPriority[event]; ok {
		priority = p
	}

	task := map[string]interface{}{
		"type":       "release_" + event,
		"release_id": release.ID,
		"owner_id":   release.OwnerID,
		"title":      release.Title,
		"status":     string(release.Status),
		"priority":   priority,
	}
	if release.RejectionReason != nil {
		task["reason"] = *release.RejectionReason
	}

	if uc.notifier != nil {
		go func() {
			if err := uc.notifier.PublishNotificationTask(task); err != nil {
				uc.logger.Warn("Failed to publish %s for release %s: %v", task["type"], release.ID, err)
			}
		}()
	}

	if event == "submitted" && uc.redisClient != nil {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := uc.redisClient.Publish(ctx, cache.ModerationChannel, fmt.Sprintf("release:%s", release.ID)).Err(); err != nil {
				uc.logger.Warn("Failed to announce release %s on %s: %v", release.ID, cache.ModerationChannel, err)
			}
		}()
	}
}
