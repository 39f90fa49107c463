package http

import (
	"context"
	"net/http"

	"kedoo/pkg/identity"
	"kedoo/services/release/internal/entity"

	"github.com/gin-gonic/gin"
)

type transitionFunc func(ctx context.Context, actor identity.Identity, releaseID string) (*entity.Release, error)

func (h *ReleaseHandler) transition(c *gin.Context, apply transitionFunc) {
	actor, ok := currentIdentity(c)
	if !ok {
		return
	}

	release, err := apply(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, release)
}
