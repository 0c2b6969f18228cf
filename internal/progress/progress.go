// Package progress derives goal progress and the daily task view from
// goal, task and milestone state. Everything here is a pure function of its
// inputs; persistence of the derived goal progress belongs to the goals service.
package progress

import (
	"tandem/internal/model"
)

// Percent returns round(100*part/total) with half-up rounding, and 0 when total is 0.
func Percent(part, total int) int {
	if total <= 0 || part <= 0 {
		return 0
	}
	// integer half-up: floor((200*part + total) / (2*total))
	return (200*part + total) / (2 * total)
}

// MilestoneProgress is the completion percentage of a milestone set.
func MilestoneProgress(milestones []model.Milestone) int {
	completed := 0
	for _, m := range milestones {
		if m.Completed {
			completed++
		}
	}
	return Percent(completed, len(milestones))
}

// GoalProgress recomputes a goal's progress from its milestones.
// Goals without milestones are at 0. Tasks never contribute.
func GoalProgress(g model.Goal) int {
	return MilestoneProgress(g.Milestones)
}
