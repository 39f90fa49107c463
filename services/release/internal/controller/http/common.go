package http

import (
	"net/http"
	"strconv"

	"kedoo/pkg/apperrors"
	"kedoo/pkg/identity"
	"kedoo/pkg/logger"

	"github.com/gin-gonic/gin"
)

func currentIdentity(c *gin.Context) (identity.Identity, bool) {
	actor, ok := identity.FromGin(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return identity.Identity{}, false
	}
	return actor, true
}

func pagination(c *gin.Context) (int, int) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	return limit, offset
}

func respondError(c *gin.Context, log *logger.Logger, err error) {
	handler := &apperrors.GinErrorHandler{Debug: gin.Mode() == gin.DebugMode}
	if log != nil {
		handler.Logger = log
	}
	handler.HandleGinError(c, err)
}
