package goals

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"tandem/internal/model"
	"tandem/internal/progress"
	"tandem/pkg/logger"
	"tandem/pkg/metrics"
)

// TaskFilter narrows ListTasks. Zero values mean no filtering.
type TaskFilter struct {
	Date    *time.Time
	GoalID  *uuid.UUID
	General bool // only tasks without a goal
	Kind    model.TaskKind
}

// ListTasks returns the user's tasks after applying f, in creation order.
func (s *Service) ListTasks(ctx context.Context, userID string, f TaskFilter) ([]model.Task, error) {
	tasks, err := s.tasks.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}

	switch {
	case f.General:
		tasks = progress.GeneralTasks(tasks)
	case f.GoalID != nil:
		tasks = progress.GoalTasks(tasks, *f.GoalID)
	}

	if f.Kind != "" {
		buckets, err := progress.Partition(tasks)
		if err != nil {
			return nil, fmt.Errorf("list tasks: %w", err)
		}
		switch f.Kind {
		case model.TaskKindDaily:
			tasks = buckets.Daily
		case model.TaskKindWeekly:
			tasks = buckets.Weekly
		case model.TaskKindCustom:
			tasks = buckets.Custom
		}
	}

	if f.Date != nil {
		tasks = progress.DueTasks(tasks, *f.Date)
	}
	return tasks, nil
}

func (s *Service) CreateTask(ctx context.Context, userID string, t model.Task) (*model.Task, error) {
	t.ID = uuid.New()
	t.UserID = userID
	if err := t.Validate(); err != nil {
		return nil, err
	}
	if err := s.tasks.Insert(ctx, &t); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	s.refresh(ctx, userID)
	return &t, nil
}

// ToggleTask flips the completion state. Goal progress is unaffected.
func (s *Service) ToggleTask(ctx context.Context, userID string, id uuid.UUID) (*model.Task, error) {
	t, err := s.tasks.Toggle(ctx, userID, id)
	if err != nil {
		return nil, fmt.Errorf("toggle task %s: %w", id, err)
	}
	metrics.IncrementTaskToggle(string(t.Kind))

	logger.WithTrace(ctx, s.logger).Debug("Task toggled",
		zap.String("task_id", id.String()),
		zap.Bool("completed", t.Completed),
	)
	s.refresh(ctx, userID)
	return t, nil
}

func (s *Service) DeleteTask(ctx context.Context, userID string, id uuid.UUID) error {
	if err := s.tasks.Delete(ctx, userID, id); err != nil {
		return fmt.Errorf("delete task %s: %w", id, err)
	}
	s.refresh(ctx, userID)
	return nil
}
