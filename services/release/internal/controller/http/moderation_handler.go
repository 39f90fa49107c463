package http

import (
	"net/http"

	"kedoo/pkg/apperrors"
	"kedoo/pkg/logger"
	"kedoo/services/release/internal/usecase"

	"github.com/gin-gonic/gin"
)

type ModerationHandler struct {
	releaseUseCase usecase.ReleaseUseCase
	logger         *logger.Logger
}

func NewModerationHandler(releaseUseCase usecase.ReleaseUseCase, logger *logger.Logger) *ModerationHandler {
	return &ModerationHandler{
		releaseUseCase: releaseUseCase,
		logger:         logger,
	}
}

type RejectRequest struct {
	Reason string `json:"reason"`
}

// GetPendingReleases godoc
// @Summary      Get releases waiting for moderation
// @Description  Oldest submissions first (moderator only)
// @Tags         moderation
// @Produce      json
// @Security     BearerAuth
// @Param        limit query int false "Limit" default(20)
// @Param        offset query int false "Offset" default(0)
// @Success      200  {object}  map[string]interface{}
// @Failure      403  {object}  apperrors.ErrorResponse
// @Router       /moderation/pending [get]
func (h *ModerationHandler) GetPendingReleases(c *gin.Context) {
	actor, ok := currentIdentity(c)
	if !ok {
		return
	}

	limit, offset := pagination(c)
	releases, err := h.releaseUseCase.ModerationQueue(c.Request.Context(), actor, limit, offset)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"releases": releases, "count": len(releases)})
}

// ApproveRelease godoc
// @Summary      Approve a release
// @Tags         moderation
// @Produce      json
// @Security     BearerAuth
// @Param        release_id path string true "Release ID"
// @Success      200  {object}  entity.Release
// @Failure      403  {object}  apperrors.ErrorResponse
// @Failure      409  {object}  apperrors.ErrorResponse
// @Router       /moderation/approve/{release_id} [post]
func (h *ModerationHandler) ApproveRelease(c *gin.Context) {
	actor, ok := currentIdentity(c)
	if !ok {
		return
	}

	release, err := h.releaseUseCase.Approve(c.Request.Context(), actor, c.Param("release_id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.logger.Info("Release %s approved by %s", release.ID, actor.UserID)
	c.JSON(http.StatusOK, release)
}

// RejectRelease godoc
// @Summary      Reject a release
// @Description  Rejects a release under moderation. A non-empty reason is required.
// @Tags         moderation
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        release_id path string true "Release ID"
// @Param        request body RejectRequest true "Rejection reason"
// @Success      200  {object}  entity.Release
// @Failure      400  {object}  apperrors.ErrorResponse
// @Failure      409  {object}  apperrors.ErrorResponse
// @Router       /moderation/reject/{release_id} [post]
func (h *ModerationHandler) RejectRelease(c *gin.Context) {
	actor, ok := currentIdentity(c)
	if !ok {
		return
	}

	var req RejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.HandleValidationError(c, err)
		return
	}

	release, err := h.releaseUseCase.Reject(c.Request.Context(), actor, c.Param("release_id"), req.Reason)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.logger.Info("Release %s rejected by %s", release.ID, actor.UserID)
	c.JSON(http.StatusOK, release)
}
