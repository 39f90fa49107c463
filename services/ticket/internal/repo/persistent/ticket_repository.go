package persistent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"kedoo/services/ticket/internal/entity"
	"kedoo/services/ticket/internal/model"

	"gorm.io/gorm"
)

var ErrTicketNotFound = errors.New("ticket not found")

type StatusConflictError struct {
	ID      string
	Current entity.TicketStatus
}

func (e *StatusConflictError) Error() string {
	return fmt.Sprintf("ticket %s is %s", e.ID, e.Current)
}

// TicketChange is one compare-and-swap on a ticket's status.
type TicketChange struct {
	From entity.TicketStatus
	To   entity.TicketStatus

	// Answer fields, only written when Response is set.
	Response   *string
	AnsweredBy string
}

type TicketRepository interface {
	Create(ctx context.Context, ticket *entity.Ticket) error
	GetByID(ctx context.Context, id string) (*entity.Ticket, error)
	Transition(ctx context.Context, id string, change TicketChange) (*entity.Ticket, error)
	List(ctx context.Context, filter entity.TicketFilter, limit, offset int) ([]*entity.Ticket, error)
}

type ticketRepository struct {
	db *gorm.DB
}

func NewTicketRepository(db *gorm.DB) TicketRepository {
	return &ticketRepository{db: db}
}

func (r *ticketRepository) Create(ctx context.Context, ticket *entity.Ticket) error {
	ticketModel := ToTicketModel(ticket)
	if err := r.db.WithContext(ctx).Create(ticketModel).Error; err != nil {
		return fmt.Errorf("insert ticket: %w", err)
	}
	*ticket = *ToTicketEntity(ticketModel)
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*entity.Ticket, error) {
	return loadTicket(r.db.WithContext(ctx), id)
}

func (r *ticketRepository) Transition(ctx context.Context, id string, change TicketChange) (*entity.Ticket, error) {
	now := time.Now().UTC()
	updates := map[string]interface{}{
		"status":     string(change.To),
		"updated_at": now,
	}
	if change.Response != nil {
		updates["admin_response"] = *change.Response
		updates["answered_by"] = change.AnsweredBy
		updates["answered_at"] = now
	}
	if change.To == entity.StatusClosed {
		updates["closed_at"] = now
	}

	var ticket *entity.Ticket
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.TicketModel{}).
			Where("id = ? AND status = ?", id, string(change.From)).
			Updates(updates)
		if res.Error != nil {
			return fmt.Errorf("update ticket %s: %w", id, res.Error)
		}

		var err error
		ticket, err = loadTicket(tx, id)
		if err != nil {
			return err
		}
		if res.RowsAffected == 0 {
			return &StatusConflictError{ID: id, Current: ticket.Status}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ticket, nil
}

func (r *ticketRepository) List(ctx context.Context, filter entity.TicketFilter, limit, offset int) ([]*entity.Ticket, error) {
	query := r.db.WithContext(ctx).Model(&model.TicketModel{})
	if filter.OwnerID != "" {
		query = query.Where("owner_id = ?", filter.OwnerID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", string(filter.Status))
	}
	if limit > 0 {
		query = query.Limit(limit).Offset(offset)
	}

	var ticketModels []model.TicketModel
	if err := query.Order("created_at DESC").Order("id DESC").Find(&ticketModels).Error; err != nil {
		return nil, fmt.Errorf("list tickets: %w", err)
	}

	tickets := make([]*entity.Ticket, len(ticketModels))
	for i := range ticketModels {
		tickets[i] = ToTicketEntity(&ticketModels[i])
	}
	return tickets, nil
}

func loadTicket(db *gorm.DB, id string) (*entity.Ticket, error) {
	var ticketModel model.TicketModel
	err := db.Where("id = ?", id).First(&ticketModel).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTicketNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load ticket %s: %w", id, err)
	}
	return ToTicketEntity(&ticketModel), nil
}
