package usecase

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"

	"kedoo/pkg/apperrors"
	"kedoo/pkg/identity"
	"kedoo/pkg/logger"
	"kedoo/pkg/validator"
	"kedoo/services/ticket/internal/entity"
	"kedoo/services/ticket/internal/repo/persistent"
)

const (
	domain = "ticket"

	defaultPageSize = 50
	maxPageSize     = 100
)

// Notifier receives ticket events after they are committed.
type Notifier interface {
	PublishNotificationTask(task map[string]interface{}) error
}

type TicketUseCase interface {
	Create(ctx context.Context, actor identity.Identity, input entity.TicketInput) (*entity.Ticket, error)
	Answer(ctx context.Context, actor identity.Identity, ticketID, response string) (*entity.Ticket, error)
	Close(ctx context.Context, actor identity.Identity, ticketID string) (*entity.Ticket, error)
	Get(ctx context.Context, actor identity.Identity, ticketID string) (*entity.Ticket, error)
	Filter(ctx context.Context, actor identity.Identity, filter entity.TicketFilter, limit, offset int) ([]*entity.Ticket, error)
	All(ctx context.Context, actor identity.Identity, filter entity.TicketFilter) iter.Seq2[*entity.Ticket, error]
}

type ticketUseCase struct {
	ticketRepo persistent.TicketRepository
	validator  *validator.Validator
	notifier   Notifier
	logger     *logger.Logger
}

func NewTicketUseCase(ticketRepo persistent.TicketRepository, notifier Notifier, logger *logger.Logger) TicketUseCase {
	return &ticketUseCase{
		ticketRepo: ticketRepo,
		validator:  validator.New(),
		notifier:   notifier,
		logger:     logger,
	}
}

func (uc *ticketUseCase) Create(ctx context.Context, actor identity.Identity, input entity.TicketInput) (*entity.Ticket, error) {
	if err := authorize(actor, identity.OpTicketCreate); err != nil {
		return nil, err
	}
	if err := uc.validator.Validate(input); err != nil {
		var vErr *validator.ValidationError
		if errors.As(err, &vErr) {
			return nil, apperrors.ValidationError(domain, vErr.Errors)
		}
		return nil, apperrors.InternalError(err)
	}

	ticket := &entity.Ticket{
		OwnerID: actor.UserID,
		Subject: strings.TrimSpace(input.Subject),
		Message: strings.TrimSpace(input.Message),
		Status:  entity.StatusOpen,
	}
	if err := uc.ticketRepo.Create(ctx, ticket); err != nil {
		return nil, uc.mapRepoError(err)
	}

	uc.logger.Info("Ticket %s opened by %s", ticket.ID, actor.UserID)
	return ticket, nil
}

func (uc *ticketUseCase) Answer(ctx context.Context, actor identity.Identity, ticketID, response string) (*entity.Ticket, error) {
	if err := authorize(actor, identity.OpTicketAnswer); err != nil {
		return nil, err
	}
	response = strings.TrimSpace(response)
	if response == "" {
		return nil, apperrors.ValidationError(domain, map[string]string{"response": "This field is required"})
	}

	current, err := uc.load(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if current.Status != entity.StatusOpen {
		return nil, invalidTransition("answer", current.Status)
	}

	ticket, err := uc.ticketRepo.Transition(ctx, ticketID, persistent.TicketChange{
		From:       entity.StatusOpen,
		To:         entity.StatusAnswered,
		Response:   &response,
		AnsweredBy: actor.UserID,
	})
	if err != nil {
		return nil, uc.mapRepoError(err)
	}

	uc.logger.Info("Ticket %s answered by %s", ticket.ID, actor.UserID)
	uc.publish("answered", ticket)
	return ticket, nil
}

func (uc *ticketUseCase) Close(ctx context.Context, actor identity.Identity, ticketID string) (*entity.Ticket, error) {
	if err := authorize(actor, identity.OpTicketClose); err != nil {
		return nil, err
	}

	current, err := uc.loadVisible(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}
	if current.Status == entity.StatusClosed {
		return nil, invalidTransition("close", current.Status)
	}

	ticket, err := uc.ticketRepo.Transition(ctx, ticketID, persistent.TicketChange{
		From: current.Status,
		To:   entity.StatusClosed,
	})
	if err != nil {
		return nil, uc.mapRepoError(err)
	}

	uc.logger.Info("Ticket %s closed by %s", ticket.ID, actor.UserID)
	uc.publish("closed", ticket)
	return ticket, nil
}

func (uc *ticketUseCase) Get(ctx context.Context, actor identity.Identity, ticketID string) (*entity.Ticket, error) {
	if err := authorize(actor, identity.OpView); err != nil {
		return nil, err
	}
	return uc.loadVisible(ctx, actor, ticketID)
}

func (uc *ticketUseCase) Filter(ctx context.Context, actor identity.Identity, filter entity.TicketFilter, limit, offset int) ([]*entity.Ticket, error) {
	if err := authorize(actor, identity.OpView); err != nil {
		return nil, err
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, apperrors.ValidationError(domain, map[string]string{"status": "Unknown ticket status"})
	}

	if !actor.IsModerator() {
		filter.OwnerID = actor.UserID
	}
	limit, offset = page(limit, offset)

	tickets, err := uc.ticketRepo.List(ctx, filter, limit, offset)
	if err != nil {
		return nil, apperrors.DatabaseError(err, domain)
	}
	return tickets, nil
}

// All pages through every ticket matching filter. Ranging twice scans twice.
func (uc *ticketUseCase) All(ctx context.Context, actor identity.Identity, filter entity.TicketFilter) iter.Seq2[*entity.Ticket, error] {
	return func(yield func(*entity.Ticket, error) bool) {
		for offset := 0; ; offset += defaultPageSize {
			batch, err := uc.Filter(ctx, actor, filter, defaultPageSize, offset)
			if err != nil {
				yield(nil, err)
				return
			}
			for _, ticket := range batch {
				if !yield(ticket, nil) {
					return
				}
			}
			if len(batch) < defaultPageSize {
				return
			}
		}
	}
}

func (uc *ticketUseCase) load(ctx context.Context, ticketID string) (*entity.Ticket, error) {
	ticket, err := uc.ticketRepo.GetByID(ctx, ticketID)
	if err != nil {
		return nil, uc.mapRepoError(err)
	}
	return ticket, nil
}

func (uc *ticketUseCase) loadVisible(ctx context.Context, actor identity.Identity, ticketID string) (*entity.Ticket, error) {
	ticket, err := uc.load(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !actor.IsModerator() && !actor.Owns(ticket.OwnerID) {
		return nil, apperrors.Forbidden(domain, "you can only access your own tickets")
	}
	return ticket, nil
}

func (uc *ticketUseCase) mapRepoError(err error) error {
	var conflict *persistent.StatusConflictError
	switch {
	case errors.Is(err, persistent.ErrTicketNotFound):
		return apperrors.NotFound(domain, "ticket not found")
	case errors.As(err, &conflict):
		return apperrors.InvalidStatus(domain, fmt.Sprintf("ticket is now %s", conflict.Current))
	}
	uc.logger.Error("Ticket persistence failed: %v", err)
	return apperrors.DatabaseError(err, domain)
}

func authorize(actor identity.Identity, op identity.Operation) error {
	if !identity.CanPerform(actor.Role, op) {
		return apperrors.Forbidden(domain, fmt.Sprintf("role %q may not %s", actor.Role, op))
	}
	return nil
}

func invalidTransition(action string, status entity.TicketStatus) error {
	return apperrors.InvalidStatus(domain, fmt.Sprintf("cannot %s a ticket in status %s", action, status))
}

func page(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
