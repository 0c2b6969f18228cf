package goals

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"tandem/internal/model"
	"tandem/internal/progress"
	"tandem/internal/repository"
	"tandem/pkg/logger"
	"tandem/pkg/metrics"
)

// MilestoneResult carries the written milestone and the goal's new progress.
type MilestoneResult struct {
	Milestone model.Milestone `json:"milestone"`
	GoalID    uuid.UUID       `json:"goal_id"`
	Progress  int             `json:"progress"`
}

func (s *Service) applyMilestone(ctx context.Context, userID string, op repository.MilestoneOp, m model.Milestone) (*MilestoneResult, error) {
	change, err := s.milestones.Apply(ctx, userID, op, m, progress.MilestoneProgress)
	if err != nil {
		return nil, err
	}
	metrics.IncrementProgressRecompute()

	logger.WithTrace(ctx, s.logger).Info("Milestone change applied",
		zap.String("op", op.String()),
		zap.String("goal_id", change.GoalID.String()),
		zap.Int("previous", change.Previous),
		zap.Int("progress", change.Progress),
	)
	s.refresh(ctx, userID)
	return &MilestoneResult{Milestone: change.Milestone, GoalID: change.GoalID, Progress: change.Progress}, nil
}

func (s *Service) CreateMilestone(ctx context.Context, userID string, goalID uuid.UUID, m model.Milestone) (*MilestoneResult, error) {
	if strings.TrimSpace(m.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", model.ErrInvalidInput)
	}
	if m.Date.IsZero() {
		return nil, fmt.Errorf("%w: date is required", model.ErrInvalidInput)
	}
	m.ID = uuid.New()
	m.GoalID = goalID

	res, err := s.applyMilestone(ctx, userID, repository.MilestoneInsert, m)
	if err != nil {
		return nil, fmt.Errorf("create milestone: %w", err)
	}
	return res, nil
}

// ToggleMilestone flips the milestone and recomputes the goal's progress.
func (s *Service) ToggleMilestone(ctx context.Context, userID string, id uuid.UUID) (*MilestoneResult, error) {
	res, err := s.applyMilestone(ctx, userID, repository.MilestoneToggle, model.Milestone{ID: id})
	if err != nil {
		return nil, fmt.Errorf("toggle milestone %s: %w", id, err)
	}
	return res, nil
}

func (s *Service) DeleteMilestone(ctx context.Context, userID string, id uuid.UUID) (*MilestoneResult, error) {
	res, err := s.applyMilestone(ctx, userID, repository.MilestoneDelete, model.Milestone{ID: id})
	if err != nil {
		return nil, fmt.Errorf("delete milestone %s: %w", id, err)
	}
	return res, nil
}
