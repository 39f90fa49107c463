package http

import (
	"net/http"
	"strconv"

	"kedoo/pkg/apperrors"
	"kedoo/pkg/identity"
	"kedoo/pkg/logger"
	"kedoo/services/ticket/internal/entity"
	"kedoo/services/ticket/internal/usecase"

	"github.com/gin-gonic/gin"
)

type TicketHandler struct {
	ticketUseCase usecase.TicketUseCase
	logger        *logger.Logger
}

func NewTicketHandler(ticketUseCase usecase.TicketUseCase, logger *logger.Logger) *TicketHandler {
	return &TicketHandler{
		ticketUseCase: ticketUseCase,
		logger:        logger,
	}
}

type AnswerRequest struct {
	Response string `json:"response"`
}

// CreateTicket godoc
// @Summary      Open a support ticket
// @Tags         tickets
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body entity.TicketInput true "Ticket"
// @Success      201  {object}  entity.Ticket
// @Failure      400  {object}  apperrors.ErrorResponse
// @Failure      403  {object}  apperrors.ErrorResponse
// @Router       /tickets [post]
func (h *TicketHandler) CreateTicket(c *gin.Context) {
	actor, ok := h.identity(c)
	if !ok {
		return
	}

	var req entity.TicketInput
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.HandleValidationError(c, err)
		return
	}

	ticket, err := h.ticketUseCase.Create(c.Request.Context(), actor, req)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, ticket)
}

// ListTickets godoc
// @Summary      List tickets
// @Description  Owners see their own tickets, moderators see all
// @Tags         tickets
// @Produce      json
// @Security     BearerAuth
// @Param        status query string false "Status" Enums(open, answered, closed)
// @Param        limit query int false "Limit" default(20)
// @Param        offset query int false "Offset" default(0)
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  apperrors.ErrorResponse
// @Router       /tickets [get]
func (h *TicketHandler) ListTickets(c *gin.Context) {
	actor, ok := h.identity(c)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	filter := entity.TicketFilter{Status: entity.TicketStatus(c.Query("status"))}

	tickets, err := h.ticketUseCase.Filter(c.Request.Context(), actor, filter, limit, offset)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"tickets": tickets, "count": len(tickets)})
}

// GetTicket godoc
// @Summary      Get ticket by ID
// @Tags         tickets
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Ticket ID"
// @Success      200  {object}  entity.Ticket
// @Failure      403  {object}  apperrors.ErrorResponse
// @Failure      404  {object}  apperrors.ErrorResponse
// @Router       /tickets/{id} [get]
func (h *TicketHandler) GetTicket(c *gin.Context) {
	actor, ok := h.identity(c)
	if !ok {
		return
	}

	ticket, err := h.ticketUseCase.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, ticket)
}

// AnswerTicket godoc
// @Summary      Answer a ticket
// @Description  Moderator only. The response must not be empty.
// @Tags         tickets
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Ticket ID"
// @Param        request body AnswerRequest true "Response"
// @Success      200  {object}  entity.Ticket
// @Failure      400  {object}  apperrors.ErrorResponse
// @Failure      409  {object}  apperrors.ErrorResponse
// @Router       /tickets/{id}/answer [post]
func (h *TicketHandler) AnswerTicket(c *gin.Context) {
	actor, ok := h.identity(c)
	if !ok {
		return
	}

	var req AnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.HandleValidationError(c, err)
		return
	}

	ticket, err := h.ticketUseCase.Answer(c.Request.Context(), actor, c.Param("id"), req.Response)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, ticket)
}

// CloseTicket godoc
// @Summary      Close a ticket
// @Tags         tickets
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Ticket ID"
// @Success      200  {object}  entity.Ticket
// @Failure      403  {object}  apperrors.ErrorResponse
// @Failure      409  {object}  apperrors.ErrorResponse
// @Router       /tickets/{id}/close [post]
func (h *TicketHandler) CloseTicket(c *gin.Context) {
	actor, ok := h.identity(c)
	if !ok {
		return
	}

	ticket, err := h.ticketUseCase.Close(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, ticket)
}

func (h *TicketHandler) identity(c *gin.Context) (identity.Identity, bool) {
	actor, ok := identity.FromGin(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
	}
	return actor, ok
}

func (h *TicketHandler) fail(c *gin.Context, err error) {
	handler := &apperrors.GinErrorHandler{Debug: gin.Mode() == gin.DebugMode}
	if h.logger != nil {
		handler.Logger = h.logger
	}
	handler.HandleGinError(c, err)
}
