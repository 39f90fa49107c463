package persistent

import (
	"kedoo/services/ticket/internal/entity"
	"kedoo/services/ticket/internal/model"
)

func ToTicketEntity(m *model.TicketModel) *entity.Ticket {
	return &entity.Ticket{
		ID:            m.ID,
		OwnerID:       m.OwnerID,
		Subject:       m.Subject,
		Message:       m.Message,
		Status:        entity.TicketStatus(m.Status),
		AdminResponse: m.AdminResponse,
		AnsweredBy:    m.AnsweredBy,
		AnsweredAt:    m.AnsweredAt,
		ClosedAt:      m.ClosedAt,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

func ToTicketModel(t *entity.Ticket) *model.TicketModel {
	return &model.TicketModel{
		ID:            t.ID,
		OwnerID:       t.OwnerID,
		Subject:       t.Subject,
		Message:       t.Message,
		Status:        string(t.Status),
		AdminResponse: t.AdminResponse,
		AnsweredBy:    t.AnsweredBy,
		AnsweredAt:    t.AnsweredAt,
		ClosedAt:      t.ClosedAt,
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     t.UpdatedAt,
	}
}
