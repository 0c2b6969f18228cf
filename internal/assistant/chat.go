package assistant

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"tandem/internal/dialogue"
	"tandem/pkg/logger"
)

// Chat fronts a Responder with per-user rate limiting and input checks.
type Chat struct {
	responder    Responder
	limiter      *UserLimiter
	systemPrompt string
	logger       *zap.Logger
}

func NewChat(responder Responder, limiter *UserLimiter, systemPrompt string, logger *zap.Logger) *Chat {
	return &Chat{
		responder:    responder,
		limiter:      limiter,
		systemPrompt: systemPrompt,
		logger:       logger,
	}
}

// Reply answers the conversation. On failure the returned message is the
// apology, alongside the error.
func (c *Chat) Reply(ctx context.Context, userID string, history []Message) (Message, error) {
	apology := Message{Role: RoleAssistant, Content: dialogue.Apology}

	if !c.limiter.Allow(userID) {
		return apology, ErrRateLimited
	}
	if len(history) == 0 || history[len(history)-1].Role != RoleUser ||
		strings.TrimSpace(history[len(history)-1].Content) == "" {
		return apology, ErrEmptyHistory
	}

	msg, err := c.responder.Respond(ctx, history, c.systemPrompt)
	if err != nil {
		logger.WithTrace(ctx, c.logger).Warn("Assistant reply failed",
			zap.String("user_id", userID),
			zap.Int("turns", len(history)),
			zap.Error(err),
		)
		return apology, fmt.Errorf("assistant reply: %w", err)
	}
	if strings.TrimSpace(msg.Content) == "" {
		return apology, fmt.Errorf("assistant reply: empty response")
	}
	return msg, nil
}
