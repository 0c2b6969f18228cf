package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"tandem/internal/assistant"
	"tandem/internal/model"
)

type OnboardingService interface {
	Send(ctx context.Context, userID, input string) assistant.Reply
	Current(ctx context.Context, userID string) assistant.Reply
	Complete(ctx context.Context, userID string) (model.Goal, error)
	Reset(ctx context.Context, userID string)
}

type ChatService interface {
	Reply(ctx context.Context, userID string, history []assistant.Message) (assistant.Message, error)
}

// GoalCreator stores the goal a finished dialogue produced.
type GoalCreator interface {
	Create(ctx context.Context, userID string, g model.Goal) (*model.Goal, error)
}

type AssistantHandler struct {
	onboarding OnboardingService
	chat       ChatService
	goals      GoalCreator
}

func NewAssistantHandler(onboarding OnboardingService, chat ChatService, goals GoalCreator) *AssistantHandler {
	return &AssistantHandler{onboarding: onboarding, chat: chat, goals: goals}
}

func (h *AssistantHandler) CurrentStep(c *gin.Context) {
	c.JSON(http.StatusOK, h.onboarding.Current(c.Request.Context(), currentUser(c)))
}

type onboardingMessageRequest struct {
	Message string `json:"message"`
}

func (h *AssistantHandler) SendMessage(c *gin.Context) {
	var req onboardingMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	c.JSON(http.StatusOK, h.onboarding.Send(c.Request.Context(), currentUser(c), req.Message))
}

// Complete materialises the finished draft as a goal and clears the session.
func (h *AssistantHandler) Complete(c *gin.Context) {
	ctx := c.Request.Context()
	userID := currentUser(c)

	draft, err := h.onboarding.Complete(ctx, userID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	g, err := h.goals.Create(ctx, userID, draft)
	if err != nil {
		abortWithError(c, err)
		return
	}
	h.onboarding.Reset(ctx, userID)
	c.JSON(http.StatusCreated, g)
}

func (h *AssistantHandler) Reset(c *gin.Context) {
	h.onboarding.Reset(c.Request.Context(), currentUser(c))
	c.Status(http.StatusNoContent)
}

type chatRequest struct {
	Messages []assistant.Message `json:"messages"`
}

// Chat answers with the next assistant message. Failures still carry the
// apology in "message" next to "error".
func (h *AssistantHandler) Chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	msg, err := h.chat.Reply(c.Request.Context(), currentUser(c), req.Messages)
	if err != nil {
		_ = c.Error(err)
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			status = http.StatusBadGateway
		}
		c.AbortWithStatusJSON(status, gin.H{"error": err.Error(), "message": msg})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": msg})
}
