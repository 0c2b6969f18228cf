package mqhandler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"tandem/internal/model"
	"tandem/internal/store"
	"tandem/pkg/util"
)

type GoalCache interface {
	Refresh(ctx context.Context, userID string, load store.Loader) ([]model.Goal, error)
	Invalidate(ctx context.Context, userID string)
}

// GoalEventsHandler keeps the per-user goal cache in step with goal.*
// events written by any API instance.
type GoalEventsHandler struct {
	cache  GoalCache
	load   store.Loader
	logger *zap.Logger
}

func NewGoalEventsHandler(cache GoalCache, load store.Loader, logger *zap.Logger) *GoalEventsHandler {
	return &GoalEventsHandler{cache: cache, load: load, logger: logger}
}

// goal.created, goal.changed and goal.progress_changed all carry user_id.
type goalEvent struct {
	UserID string `json:"user_id"`
	GoalID string `json:"goal_id"`
}

func (h *GoalEventsHandler) Handle(ctx context.Context, raw json.RawMessage) error {
	var e goalEvent
	if err := json.Unmarshal(raw, &e); err != nil {
		return fmt.Errorf("decode goal event: %w", err)
	}
	if e.UserID == "" {
		return &util.Permanent{Err: errors.New("goal event without user_id")}
	}

	goals, err := h.cache.Refresh(ctx, e.UserID, h.load)
	if err != nil {
		h.cache.Invalidate(ctx, e.UserID)
		return fmt.Errorf("refresh goals of %s: %w", e.UserID, err)
	}
	h.logger.Debug("Goal cache refreshed",
		zap.String("user_id", e.UserID),
		zap.String("goal_id", e.GoalID),
		zap.Int("goals", len(goals)),
	)
	return nil
}
