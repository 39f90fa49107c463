package usecase

import (
	"context"
	"testing"
	"time"

	"kedoo/pkg/apperrors"
	"kedoo/pkg/database/databasetest"
	"kedoo/pkg/identity"
	"kedoo/pkg/logger"
	"kedoo/services/ticket/internal/entity"
	"kedoo/services/ticket/internal/model"
	"kedoo/services/ticket/internal/repo/persistent"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	owner      = identity.Identity{UserID: "owner-1", Role: identity.RoleOwner}
	otherOwner = identity.Identity{UserID: "owner-2", Role: identity.RoleOwner}
	moderator  = identity.Identity{UserID: "mod-1", Role: identity.RoleModerator}
)

type recordingNotifier struct {
	tasks chan map[string]interface{}
}

func (n *recordingNotifier) PublishNotificationTask(task map[string]interface{}) error {
	n.tasks <- task
	return nil
}

func setupUseCase(t *testing.T, notifier Notifier) TicketUseCase {
	db := databasetest.OpenMemory(t, &model.TicketModel{})
	return NewTicketUseCase(persistent.NewTicketRepository(db), notifier, logger.New())
}

func assertCode(t *testing.T, err error, code apperrors.ErrorCode) {
	t.Helper()
	require.Error(t, err)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok, "expected AppError, got %v", err)
	assert.Equal(t, code, appErr.Code, appErr.Message)
}

func openTicket(t *testing.T, uc TicketUseCase) *entity.Ticket {
	t.Helper()
	ticket, err := uc.Create(context.Background(), owner, entity.TicketInput{Subject: "Payout delayed", Message: "Where is my money?"})
	require.NoError(t, err)
	require.Equal(t, entity.StatusOpen, ticket.Status)
	return ticket
}

func TestAnswer_ThenCloseKeepsResponse(t *testing.T) {
	uc := setupUseCase(t, nil)
	ctx := context.Background()
	ticket := openTicket(t, uc)

	_, err := uc.Answer(ctx, moderator, ticket.ID, "")
	assertCode(t, err, apperrors.CodeValidationFailed)

	answered, err := uc.Answer(ctx, moderator, ticket.ID, "thanks")
	require.NoError(t, err)
	assert.Equal(t, entity.StatusAnswered, answered.Status)
	require.NotNil(t, answered.AdminResponse)
	assert.Equal(t, "thanks", *answered.AdminResponse)

	closed, err := uc.Close(ctx, owner, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusClosed, closed.Status)
	require.NotNil(t, closed.AdminResponse)
	assert.Equal(t, "thanks", *closed.AdminResponse)

	_, err = uc.Answer(ctx, moderator, ticket.ID, "again")
	assertCode(t, err, apperrors.CodeInvalidStatus)
}

func TestCreate_Validation(t *testing.T) {
	uc := setupUseCase(t, nil)

	_, err := uc.Create(context.Background(), owner, entity.TicketInput{Subject: "  ", Message: ""})
	assertCode(t, err, apperrors.CodeValidationFailed)
	appErr, _ := apperrors.AsAppError(err)
	details := appErr.Details.(map[string]string)
	assert.Contains(t, details, "subject")
	assert.Contains(t, details, "message")
}

func TestCreate_ModeratorForbidden(t *testing.T) {
	uc := setupUseCase(t, nil)

	_, err := uc.Create(context.Background(), moderator, entity.TicketInput{Subject: "s", Message: "m"})
	assertCode(t, err, apperrors.CodeForbidden)
}

func TestCreate_NoResponseUntilAnswered(t *testing.T) {
	uc := setupUseCase(t, nil)
	ticket := openTicket(t, uc)

	assert.Nil(t, ticket.AdminResponse)
	assert.Equal(t, owner.UserID, ticket.OwnerID)
}

func TestAnswer_OnlyModerator(t *testing.T) {
	uc := setupUseCase(t, nil)
	ticket := openTicket(t, uc)

	_, err := uc.Answer(context.Background(), owner, ticket.ID, "answering myself")
	assertCode(t, err, apperrors.CodeForbidden)
}

func TestAnswer_Twice(t *testing.T) {
	uc := setupUseCase(t, nil)
	ticket := openTicket(t, uc)

	_, err := uc.Answer(context.Background(), moderator, ticket.ID, "first")
	require.NoError(t, err)

	_, err = uc.Answer(context.Background(), moderator, ticket.ID, "second")
	assertCode(t, err, apperrors.CodeInvalidStatus)

	stored, err := uc.Get(context.Background(), moderator, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, "first", *stored.AdminResponse)
}

func TestAnswer_NotFound(t *testing.T) {
	uc := setupUseCase(t, nil)

	_, err := uc.Answer(context.Background(), moderator, "missing", "hello")
	assertCode(t, err, apperrors.CodeNotFound)
}

func TestClose_FromOpenWithoutResponse(t *testing.T) {
	uc := setupUseCase(t, nil)
	ticket := openTicket(t, uc)

	closed, err := uc.Close(context.Background(), moderator, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusClosed, closed.Status)
	assert.Nil(t, closed.AdminResponse)
	assert.NotNil(t, closed.ClosedAt)
}

func TestClose_IsAbsorbing(t *testing.T) {
	uc := setupUseCase(t, nil)
	ticket := openTicket(t, uc)

	_, err := uc.Close(context.Background(), owner, ticket.ID)
	require.NoError(t, err)

	_, err = uc.Close(context.Background(), owner, ticket.ID)
	assertCode(t, err, apperrors.CodeInvalidStatus)
	_, err = uc.Close(context.Background(), moderator, ticket.ID)
	assertCode(t, err, apperrors.CodeInvalidStatus)
	_, err = uc.Answer(context.Background(), moderator, ticket.ID, "too late")
	assertCode(t, err, apperrors.CodeInvalidStatus)
}

func TestClose_OtherOwnerForbidden(t *testing.T) {
	uc := setupUseCase(t, nil)
	ticket := openTicket(t, uc)

	_, err := uc.Close(context.Background(), otherOwner, ticket.ID)
	assertCode(t, err, apperrors.CodeForbidden)

	stored, err := uc.Get(context.Background(), owner, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusOpen, stored.Status)
}

func TestGet_Visibility(t *testing.T) {
	uc := setupUseCase(t, nil)
	ticket := openTicket(t, uc)

	_, err := uc.Get(context.Background(), otherOwner, ticket.ID)
	assertCode(t, err, apperrors.CodeForbidden)

	got, err := uc.Get(context.Background(), moderator, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, ticket.ID, got.ID)
}

func TestFilter_Scope(t *testing.T) {
	uc := setupUseCase(t, nil)
	ctx := context.Background()
	first := openTicket(t, uc)
	openTicket(t, uc)
	_, err := uc.Create(ctx, otherOwner, entity.TicketInput{Subject: "other", Message: "m"})
	require.NoError(t, err)
	_, err = uc.Answer(ctx, moderator, first.ID, "ok")
	require.NoError(t, err)

	own, err := uc.Filter(ctx, owner, entity.TicketFilter{OwnerID: otherOwner.UserID}, 0, 0)
	require.NoError(t, err)
	assert.Len(t, own, 2)

	all, err := uc.Filter(ctx, moderator, entity.TicketFilter{}, 0, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	answered, err := uc.Filter(ctx, moderator, entity.TicketFilter{Status: entity.StatusAnswered}, 0, 0)
	require.NoError(t, err)
	require.Len(t, answered, 1)
	assert.Equal(t, first.ID, answered[0].ID)

	_, err = uc.Filter(ctx, moderator, entity.TicketFilter{Status: "pending"}, 0, 0)
	assertCode(t, err, apperrors.CodeValidationFailed)
}

func TestAll_Restartable(t *testing.T) {
	uc := setupUseCase(t, nil)
	for i := 0; i < defaultPageSize+3; i++ {
		openTicket(t, uc)
	}

	count := func() int {
		n := 0
		for ticket, err := range uc.All(context.Background(), owner, entity.TicketFilter{}) {
			require.NoError(t, err)
			require.NotNil(t, ticket)
			n++
		}
		return n
	}
	assert.Equal(t, defaultPageSize+3, count())
	assert.Equal(t, defaultPageSize+3, count())
}

func TestNotifications(t *testing.T) {
	notifier := &recordingNotifier{tasks: make(chan map[string]interface{}, 4)}
	uc := setupUseCase(t, notifier)
	ticket := openTicket(t, uc)

	_, err := uc.Answer(context.Background(), moderator, ticket.ID, "on it")
	require.NoError(t, err)

	select {
	case task := <-notifier.tasks:
		assert.Equal(t, "ticket_answered", task["type"])
		assert.Equal(t, ticket.ID, task["ticket_id"])
		assert.Equal(t, owner.UserID, task["owner_id"])
		assert.Equal(t, 5, task["priority"])
	case <-time.After(2 * time.Second):
		t.Fatal("no notification published")
	}

	_, err = uc.Close(context.Background(), owner, ticket.ID)
	require.NoError(t, err)

	select {
	case task := <-notifier.tasks:
		assert.Equal(t, "ticket_closed", task["type"])
	case <-time.After(2 * time.Second):
		t.Fatal("no notification published")
	}
}
