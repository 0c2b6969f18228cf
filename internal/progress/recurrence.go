package progress

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"tandem/internal/model"
)

var ErrInvalidKind = fmt.Errorf("%w: invalid recurrence kind", model.ErrMalformedTask)

// SameDay compares calendar dates, each in its own location.
// Custom task dates are calendar dates, so converting them into the
// reference location would shift them across midnight.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// IsDue reports whether a task shows up on the reference day.
func IsDue(t model.Task, ref time.Time) bool {
	switch t.Kind {
	case model.TaskKindDaily:
		return true
	case model.TaskKindWeekly:
		return t.Weekday != nil && *t.Weekday == ref.Weekday()
	case model.TaskKindCustom:
		return t.Date != nil && SameDay(*t.Date, ref)
	default:
		return false
	}
}

// DueTasks keeps the tasks due on ref, in input order.
func DueTasks(tasks []model.Task, ref time.Time) []model.Task {
	due := make([]model.Task, 0, len(tasks))
	for _, t := range tasks {
		if IsDue(t, ref) {
			due = append(due, t)
		}
	}
	return due
}

// DailyCompletion is the completion percentage of the tasks due on ref.
// An empty due set yields 0.
func DailyCompletion(tasks []model.Task, ref time.Time) int {
	due, done := countDue(tasks, ref)
	return Percent(done, due)
}

func countDue(tasks []model.Task, ref time.Time) (due, done int) {
	for _, t := range tasks {
		if !IsDue(t, ref) {
			continue
		}
		due++
		if t.Completed {
			done++
		}
	}
	return due, done
}

// Buckets holds tasks split by recurrence kind.
type Buckets struct {
	Daily  []model.Task `json:"daily"`
	Weekly []model.Task `json:"weekly"`
	Custom []model.Task `json:"custom"`
}

func (b Buckets) Len() int {
	return len(b.Daily) + len(b.Weekly) + len(b.Custom)
}

// Partition splits tasks into daily, weekly and custom groups keeping
// relative order. A task with an unknown kind is an error, never dropped.
func Partition(tasks []model.Task) (Buckets, error) {
	b := Buckets{
		Daily:  []model.Task{},
		Weekly: []model.Task{},
		Custom: []model.Task{},
	}
	for _, t := range tasks {
		switch t.Kind {
		case model.TaskKindDaily:
			b.Daily = append(b.Daily, t)
		case model.TaskKindWeekly:
			b.Weekly = append(b.Weekly, t)
		case model.TaskKindCustom:
			b.Custom = append(b.Custom, t)
		default:
			return Buckets{}, fmt.Errorf("task %s kind %q: %w", t.ID, t.Kind, ErrInvalidKind)
		}
	}
	return b, nil
}

// ResolveOwnerGoal finds the goal a task belongs to. General tasks and
// tasks pointing at a goal not in the list resolve to none.
func ResolveOwnerGoal(t model.Task, goals []model.Goal) (*model.Goal, bool) {
	if t.GoalID == nil {
		return nil, false
	}
	for i := range goals {
		if goals[i].ID == *t.GoalID {
			return &goals[i], true
		}
	}
	return nil, false
}

// GeneralTasks keeps tasks not attached to any goal.
func GeneralTasks(tasks []model.Task) []model.Task {
	out := make([]model.Task, 0, len(tasks))
	for _, t := range tasks {
		if t.IsGeneral() {
			out = append(out, t)
		}
	}
	return out
}

// GoalTasks keeps tasks attached to the given goal.
func GoalTasks(tasks []model.Task, goalID uuid.UUID) []model.Task {
	out := make([]model.Task, 0, len(tasks))
	for _, t := range tasks {
		if t.GoalID != nil && *t.GoalID == goalID {
			out = append(out, t)
		}
	}
	return out
}
