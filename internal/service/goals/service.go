// Package goals owns every read and write of a user's goal tree: goals,
// their tasks, milestones, reflections and resources.
package goals

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"tandem/internal/model"
	"tandem/internal/progress"
	"tandem/internal/repository"
	"tandem/internal/store"
	"tandem/pkg/logger"
)

type GoalRepository interface {
	ListByUser(ctx context.Context, userID string) ([]model.Goal, error)
	FindByID(ctx context.Context, userID string, id uuid.UUID) (*model.Goal, error)
	Create(ctx context.Context, g *model.Goal) error
	Update(ctx context.Context, g *model.Goal) error
	Delete(ctx context.Context, userID string, id uuid.UUID) error
}

type TaskRepository interface {
	ListByUser(ctx context.Context, userID string) ([]model.Task, error)
	Insert(ctx context.Context, t *model.Task) error
	Toggle(ctx context.Context, userID string, id uuid.UUID) (*model.Task, error)
	Delete(ctx context.Context, userID string, id uuid.UUID) error
}

type MilestoneRepository interface {
	Apply(ctx context.Context, userID string, op repository.MilestoneOp, m model.Milestone,
		recompute func([]model.Milestone) int) (repository.ProgressChange, error)
}

type JournalRepository interface {
	ListGeneralReflections(ctx context.Context, userID string) ([]model.Reflection, error)
	InsertReflection(ctx context.Context, rf *model.Reflection) error
	DeleteReflection(ctx context.Context, userID string, id uuid.UUID) error
	InsertResource(ctx context.Context, rs *model.Resource) error
	DeleteResource(ctx context.Context, userID string, id uuid.UUID) error
}

// Cache holds the per-user goal slice.
type Cache interface {
	Load(ctx context.Context, userID string, load store.Loader) ([]model.Goal, error)
	Refresh(ctx context.Context, userID string, load store.Loader) ([]model.Goal, error)
	Invalidate(ctx context.Context, userID string)
}

const upcomingLimit = 5

type Service struct {
	goals      GoalRepository
	tasks      TaskRepository
	milestones MilestoneRepository
	journal    JournalRepository
	cache      Cache
	logger     *zap.Logger
}

func NewService(
	goals GoalRepository,
	tasks TaskRepository,
	milestones MilestoneRepository,
	journal JournalRepository,
	cache Cache,
	logger *zap.Logger,
) *Service {
	return &Service{
		goals:      goals,
		tasks:      tasks,
		milestones: milestones,
		journal:    journal,
		cache:      cache,
		logger:     logger,
	}
}

// refresh replaces the cached slice after a successful write. A failed
// reload only drops the cached slice; the write already succeeded.
func (s *Service) refresh(ctx context.Context, userID string) {
	if _, err := s.cache.Refresh(ctx, userID, s.goals.ListByUser); err != nil {
		logger.WithTrace(ctx, s.logger).Warn("Failed to refresh goal cache",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		s.cache.Invalidate(ctx, userID)
	}
}

// List reads the user's goals from the database and refreshes the cache.
func (s *Service) List(ctx context.Context, userID string) ([]model.Goal, error) {
	goals, err := s.cache.Refresh(ctx, userID, s.goals.ListByUser)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	return goals, nil
}

func (s *Service) Get(ctx context.Context, userID string, id uuid.UUID) (*model.Goal, error) {
	g, err := s.goals.FindByID(ctx, userID, id)
	if err != nil {
		return nil, fmt.Errorf("get goal %s: %w", id, err)
	}
	return g, nil
}

func validateGoal(g *model.Goal) error {
	if strings.TrimSpace(g.Title) == "" {
		return fmt.Errorf("%w: title is required", model.ErrInvalidInput)
	}
	if !g.StartDate.IsZero() && !g.EndDate.IsZero() && g.EndDate.Before(g.StartDate) {
		return fmt.Errorf("%w: end date is before start date", model.ErrInvalidInput)
	}
	return nil
}

// Create stores a goal with its nested milestones and tasks. Ids are
// assigned here; progress is derived from the milestones supplied.
func (s *Service) Create(ctx context.Context, userID string, g model.Goal) (*model.Goal, error) {
	log := logger.WithTrace(ctx, s.logger)

	now := time.Now()
	g.ID = uuid.New()
	g.UserID = userID
	if g.StartDate.IsZero() {
		g.StartDate = now
	}
	if g.EndDate.IsZero() {
		g.EndDate = g.StartDate.AddDate(0, 0, 90)
	}
	if err := validateGoal(&g); err != nil {
		return nil, err
	}

	for i := range g.Milestones {
		m := &g.Milestones[i]
		m.ID = uuid.New()
		m.GoalID = g.ID
		if strings.TrimSpace(m.Title) == "" {
			return nil, fmt.Errorf("%w: milestone %d has no title", model.ErrInvalidInput, i+1)
		}
	}
	goalID := g.ID
	for i := range g.Tasks {
		t := &g.Tasks[i]
		t.ID = uuid.New()
		t.UserID = userID
		t.GoalID = &goalID
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("task %d: %w", i+1, err)
		}
	}
	g.Progress = progress.GoalProgress(g)

	if err := s.goals.Create(ctx, &g); err != nil {
		return nil, fmt.Errorf("create goal: %w", err)
	}
	log.Info("Goal created",
		zap.String("goal_id", g.ID.String()),
		zap.String("user_id", userID),
	)

	s.refresh(ctx, userID)
	return &g, nil
}

func (s *Service) Update(ctx context.Context, userID string, id uuid.UUID, patch model.GoalPatch) (*model.Goal, error) {
	g, err := s.goals.FindByID(ctx, userID, id)
	if err != nil {
		return nil, fmt.Errorf("update goal %s: %w", id, err)
	}
	patch.Apply(g)
	if err := validateGoal(g); err != nil {
		return nil, err
	}
	if err := s.goals.Update(ctx, g); err != nil {
		return nil, fmt.Errorf("update goal %s: %w", id, err)
	}
	s.refresh(ctx, userID)
	return g, nil
}

func (s *Service) Delete(ctx context.Context, userID string, id uuid.UUID) error {
	if err := s.goals.Delete(ctx, userID, id); err != nil {
		return fmt.Errorf("delete goal %s: %w", id, err)
	}
	s.refresh(ctx, userID)
	return nil
}
