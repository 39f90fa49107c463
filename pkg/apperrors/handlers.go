package apperrors

import (
	"github.com/gin-gonic/gin"
)

type ErrorResponse struct {
	Error *AppError `json:"error"`
}

// ServerErrorLogger is the slice of pkg/logger the handler needs.
type ServerErrorLogger interface {
	Error(format string, v ...interface{})
}

type GinErrorHandler struct {
	Debug  bool
	Logger ServerErrorLogger
}

func (h *GinErrorHandler) HandleGinError(c *gin.Context, err error) {
	appErr, ok := AsAppError(err)
	if !ok {
		appErr = InternalError(err)
	}

	if appErr.HTTPCode >= 500 {
		if h.Logger != nil {
			h.Logger.Error("Server error on %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		}
		if !h.Debug {
			// hide internals from clients outside debug mode
			appErr = &AppError{
				Code:     appErr.Code,
				Domain:   appErr.Domain,
				Message:  appErr.Message,
				HTTPCode: appErr.HTTPCode,
			}
		}
	}

	c.JSON(appErr.HTTPCode, ErrorResponse{Error: appErr})
}

// HandleError renders err using gin's current mode to decide on debug output.
func HandleError(c *gin.Context, err error) {
	handler := &GinErrorHandler{Debug: gin.Mode() == gin.DebugMode}
	handler.HandleGinError(c, err)
}

func HandleValidationError(c *gin.Context, err error) {
	HandleError(c, NewBadRequestError(err.Error()))
}
