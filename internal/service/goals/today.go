package goals

import (
	"context"
	"fmt"
	"time"

	"tandem/internal/progress"
)

// Today builds the dashboard for ref from the cached goal slice and the
// user's general tasks.
func (s *Service) Today(ctx context.Context, userID string, ref time.Time) (progress.Day, error) {
	goals, err := s.cache.Load(ctx, userID, s.goals.ListByUser)
	if err != nil {
		return progress.Day{}, fmt.Errorf("load goals: %w", err)
	}
	tasks, err := s.tasks.ListByUser(ctx, userID)
	if err != nil {
		return progress.Day{}, fmt.Errorf("load tasks: %w", err)
	}
	return progress.Overview(goals, progress.GeneralTasks(tasks), ref, upcomingLimit), nil
}
