package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"tandem/internal/identity"
	"tandem/internal/model"
)

const (
	webhookTokenHeader = "X-Webhook-Token"
	webhookIDHeader    = "Webhook-Id"
)

type IdentityService interface {
	CurrentUser(ctx context.Context, userID string) (*model.Profile, error)
	HandleEvent(ctx context.Context, deliveryID string, evt identity.Event) error
}

type IdentityHandler struct {
	service IdentityService
}

func NewIdentityHandler(service IdentityService) *IdentityHandler {
	return &IdentityHandler{service: service}
}

// Me returns the caller's id and role, plus the synced profile if any.
func (h *IdentityHandler) Me(c *gin.Context) {
	userID := currentUser(c)
	p, err := h.service.CurrentUser(c.Request.Context(), userID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user_id": userID,
		"role":    currentRole(c),
		"profile": p,
	})
}

// Webhook accepts user lifecycle events from the identity provider.
func (h *IdentityHandler) Webhook(c *gin.Context) {
	var evt identity.Event
	if err := c.ShouldBindJSON(&evt); err != nil {
		badRequest(c, "invalid event body")
		return
	}
	if err := h.service.HandleEvent(c.Request.Context(), c.GetHeader(webhookIDHeader), evt); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
