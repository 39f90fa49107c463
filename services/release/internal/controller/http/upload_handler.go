package http

import (
	"mime/multipart"
	"net/http"

	"kedoo/pkg/apperrors"
	"kedoo/pkg/identity"
	"kedoo/pkg/logger"
	"kedoo/pkg/s3"

	"github.com/gin-gonic/gin"
)

// AssetUploader is implemented by *s3.Client.
type AssetUploader interface {
	UploadAsset(kind s3.AssetKind, userID string, header *multipart.FileHeader) (string, error)
}

type UploadHandler struct {
	uploader AssetUploader
	logger   *logger.Logger
}

func NewUploadHandler(uploader AssetUploader, logger *logger.Logger) *UploadHandler {
	return &UploadHandler{
		uploader: uploader,
		logger:   logger,
	}
}

// UploadCover godoc
// @Summary      Upload a cover image
// @Description  Stores a jpg/png/webp cover and returns the reference to put into cover_ref
// @Tags         uploads
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        file formData file true "Cover image"
// @Success      201  {object}  map[string]string
// @Failure      400  {object}  apperrors.ErrorResponse
// @Router       /uploads/cover [post]
func (h *UploadHandler) UploadCover(c *gin.Context) {
	h.upload(c, s3.AssetCover)
}

// UploadAudio godoc
// @Summary      Upload a track audio file
// @Description  Stores a wav/flac/mp3 file and returns the reference to put into audio_ref
// @Tags         uploads
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        file formData file true "Audio file"
// @Success      201  {object}  map[string]string
// @Failure      400  {object}  apperrors.ErrorResponse
// @Router       /uploads/audio [post]
func (h *UploadHandler) UploadAudio(c *gin.Context) {
	h.upload(c, s3.AssetAudio)
}

func (h *UploadHandler) upload(c *gin.Context, kind s3.AssetKind) {
	actor, ok := currentIdentity(c)
	if !ok {
		return
	}
	if !identity.CanPerform(actor.Role, identity.OpEdit) {
		respondError(c, h.logger, apperrors.Forbidden("upload", "only release owners can upload assets"))
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		respondError(c, h.logger, apperrors.ValidationError("upload", map[string]string{"file": "This field is required"}))
		return
	}
	if err := s3.CheckExtension(kind, file.Filename); err != nil {
		respondError(c, h.logger, apperrors.ValidationError("upload", map[string]string{"file": err.Error()}))
		return
	}

	ref, err := h.uploader.UploadAsset(kind, actor.UserID, file)
	if err != nil {
		h.logger.Error("Failed to upload %s: %v", kind, err)
		respondError(c, h.logger, apperrors.InternalError(err))
		return
	}

	c.JSON(http.StatusCreated, gin.H{"ref": ref})
}
