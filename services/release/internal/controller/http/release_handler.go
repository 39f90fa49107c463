package http

import (
	"net/http"

	"kedoo/pkg/apperrors"
	"kedoo/pkg/logger"
	"kedoo/services/release/internal/entity"
	"kedoo/services/release/internal/usecase"

	"github.com/gin-gonic/gin"
)

type ReleaseHandler struct {
	releaseUseCase usecase.ReleaseUseCase
	logger         *logger.Logger
}

func NewReleaseHandler(releaseUseCase usecase.ReleaseUseCase, logger *logger.Logger) *ReleaseHandler {
	return &ReleaseHandler{
		releaseUseCase: releaseUseCase,
		logger:         logger,
	}
}

type ReleaseRequest struct {
	entity.ReleaseInput
	Submit bool `json:"submit"`
}

// CreateRelease godoc
// @Summary      Create a release
// @Description  Create a draft release with optional tracks. With submit=true the release goes straight to moderation.
// @Tags         releases
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body ReleaseRequest true "Release data"
// @Success      201  {object}  entity.Release
// @Failure      400  {object}  apperrors.ErrorResponse
// @Failure      403  {object}  apperrors.ErrorResponse
// @Router       /releases [post]
func (h *ReleaseHandler) CreateRelease(c *gin.Context) {
	actor, ok := currentIdentity(c)
	if !ok {
		return
	}

	var req ReleaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.HandleValidationError(c, err)
		return
	}

	release, err := h.releaseUseCase.Create(c.Request.Context(), actor, req.ReleaseInput, req.Submit)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, release)
}

// ListReleases godoc
// @Summary      List releases
// @Description  Owners see their own releases, moderators see all. Deleted releases are hidden.
// @Tags         releases
// @Produce      json
// @Security     BearerAuth
// @Param        title query string false "Title contains (case-insensitive)"
// @Param        artist query string false "Track performer contains (case-insensitive)"
// @Param        genre query string false "Exact genre"
// @Param        status query string false "Status" Enums(draft, moderation, approved, rejected)
// @Param        limit query int false "Limit" default(20)
// @Param        offset query int false "Offset" default(0)
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  apperrors.ErrorResponse
// @Router       /releases [get]
func (h *ReleaseHandler) ListReleases(c *gin.Context) {
	actor, ok := currentIdentity(c)
	if !ok {
		return
	}

	filter := entity.ReleaseFilter{
		TitleContains:  c.Query("title"),
		ArtistContains: c.Query("artist"),
		Genre:          c.Query("genre"),
		Status:         entity.ReleaseStatus(c.Query("status")),
		HideDeleted:    true,
	}
	if filter.Status == entity.StatusDeleted {
		respondError(c, h.logger, apperrors.ValidationError("release", map[string]string{
			"status": "Deleted releases are listed at /releases/trash",
		}))
		return
	}
	limit, offset := pagination(c)

	releases, err := h.releaseUseCase.Filter(c.Request.Context(), actor, filter, limit, offset)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"releases": releases, "count": len(releases)})
}

// ListTrash godoc
// @Summary      List deleted releases
// @Tags         releases
// @Produce      json
// @Security     BearerAuth
// @Param        limit query int false "Limit" default(20)
// @Param        offset query int false "Offset" default(0)
// @Success      200  {object}  map[string]interface{}
// @Router       /releases/trash [get]
func (h *ReleaseHandler) ListTrash(c *gin.Context) {
	actor, ok := currentIdentity(c)
	if !ok {
		return
	}

	limit, offset := pagination(c)
	releases, err := h.releaseUseCase.Trash(c.Request.Context(), actor, limit, offset)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"releases": releases, "count": len(releases)})
}

// GetRelease godoc
// @Summary      Get release by ID
// @Tags         releases
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Release ID"
// @Success      200  {object}  entity.Release
// @Failure      403  {object}  apperrors.ErrorResponse
// @Failure      404  {object}  apperrors.ErrorResponse
// @Router       /releases/{id} [get]
func (h *ReleaseHandler) GetRelease(c *gin.Context) {
	actor, ok := currentIdentity(c)
	if !ok {
		return
	}

	release, err := h.releaseUseCase.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, release)
}

// ListTracks godoc
// @Summary      List tracks of a release
// @Tags         releases
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Release ID"
// @Success      200  {object}  map[string]interface{}
// @Failure      404  {object}  apperrors.ErrorResponse
// @Router       /releases/{id}/tracks [get]
func (h *ReleaseHandler) ListTracks(c *gin.Context) {
	actor, ok := currentIdentity(c)
	if !ok {
		return
	}

	tracks, err := h.releaseUseCase.ListTracks(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"tracks": tracks, "count": len(tracks)})
}

// UpdateRelease godoc
// @Summary      Edit a release
// @Description  Replaces metadata and the whole track list. submit=true sends the release to moderation.
// @Tags         releases
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Release ID"
// @Param        request body ReleaseRequest true "Release data"
// @Success      200  {object}  entity.Release
// @Failure      400  {object}  apperrors.ErrorResponse
// @Failure      409  {object}  apperrors.ErrorResponse
// @Router       /releases/{id} [put]
func (h *ReleaseHandler) UpdateRelease(c *gin.Context) {
	actor, ok := currentIdentity(c)
	if !ok {
		return
	}

	var req ReleaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.HandleValidationError(c, err)
		return
	}

	release, err := h.releaseUseCase.Update(c.Request.Context(), actor, c.Param("id"), req.ReleaseInput, req.Submit)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, release)
}

// SubmitRelease godoc
// @Summary      Submit a release for moderation
// @Tags         releases
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Release ID"
// @Success      200  {object}  entity.Release
// @Failure      409  {object}  apperrors.ErrorResponse
// @Failure      422  {object}  apperrors.ErrorResponse
// @Router       /releases/{id}/submit [post]
func (h *ReleaseHandler) SubmitRelease(c *gin.Context) {
	h.transition(c, h.releaseUseCase.SubmitForModeration)
}

// WithdrawRelease godoc
// @Summary      Withdraw a release from moderation
// @Tags         releases
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Release ID"
// @Success      200  {object}  entity.Release
// @Failure      409  {object}  apperrors.ErrorResponse
// @Router       /releases/{id}/withdraw [post]
func (h *ReleaseHandler) WithdrawRelease(c *gin.Context) {
	h.transition(c, h.releaseUseCase.Withdraw)
}

// DeleteRelease godoc
// @Summary      Move a release to the trash
// @Tags         releases
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Release ID"
// @Success      200  {object}  entity.Release
// @Failure      409  {object}  apperrors.ErrorResponse
// @Router       /releases/{id} [delete]
func (h *ReleaseHandler) DeleteRelease(c *gin.Context) {
	h.transition(c, h.releaseUseCase.SoftDelete)
}

// RestoreRelease godoc
// @Summary      Restore a release from the trash
// @Tags         releases
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Release ID"
// @Success      200  {object}  entity.Release
// @Failure      409  {object}  apperrors.ErrorResponse
// @Router       /releases/{id}/restore [post]
func (h *ReleaseHandler) RestoreRelease(c *gin.Context) {
	h.transition(c, h.releaseUseCase.Restore)
}

// PurgeRelease godoc
// @Summary      Permanently delete a release from the trash
// @Tags         releases
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Release ID"
// @Success      200  {object}  map[string]string
// @Failure      409  {object}  apperrors.ErrorResponse
// @Router       /releases/{id}/permanent [delete]
func (h *ReleaseHandler) PurgeRelease(c *gin.Context) {
	actor, ok := currentIdentity(c)
	if !ok {
		return
	}

	if err := h.releaseUseCase.PermanentDelete(c.Request.Context(), actor, c.Param("id")); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Release permanently deleted"})
}
