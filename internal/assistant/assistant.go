// Package assistant answers chat messages, either through an LLM completion
// endpoint or by driving the scripted goal-creation dialogue.
package assistant

import (
	"context"
	"errors"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Responder produces the next assistant message for a conversation.
type Responder interface {
	Respond(ctx context.Context, history []Message, systemPrompt string) (Message, error)
}

var (
	ErrRateLimited  = errors.New("assistant rate limit exceeded")
	ErrEmptyHistory = errors.New("conversation must end with a user message")
)
