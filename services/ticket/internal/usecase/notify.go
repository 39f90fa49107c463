package usecase

import (
	"kedoo/services/ticket/internal/entity"
)

func (uc *ticketUseCase) publish(event string, ticket *entity.Ticket) {
	if uc.notifier == nil {
		return
	}

	priority := 1
	if event == "answered" {
		priority = 5
	}
	task := map[string]interface{}{
		"type":      "ticket_" + event,
		"ticket_id": ticket.ID,
		"owner_id":  ticket.OwnerID,
		"subject":   ticket.Subject,
		"status":    string(ticket.Status),
		"priority":  priority,
	}

	go func() {
		if err := uc.notifier.PublishNotificationTask(task); err != nil {
			uc.logger.Warn("Failed to publish %s for ticket %s: %v", task["type"], ticket.ID, err)
		}
	}()
}
