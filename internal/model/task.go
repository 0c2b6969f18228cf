package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TaskKind is the recurrence kind of a task.
type TaskKind string

const (
	TaskKindDaily  TaskKind = "daily"
	TaskKindWeekly TaskKind = "weekly"
	TaskKindCustom TaskKind = "custom"
)

func (k TaskKind) IsValid() bool {
	switch k {
	case TaskKindDaily, TaskKindWeekly, TaskKindCustom:
		return true
	default:
		return false
	}
}

// ParseTaskKind normalizes user or database input into a TaskKind.
func ParseTaskKind(input string) (TaskKind, error) {
	k := TaskKind(strings.ToLower(strings.TrimSpace(input)))
	if !k.IsValid() {
		return "", fmt.Errorf("%w: unknown kind %q", ErrMalformedTask, input)
	}
	return k, nil
}

type Task struct {
	ID        uuid.UUID     `json:"id"`
	UserID    string        `json:"user_id"`
	GoalID    *uuid.UUID    `json:"goal_id,omitempty"` // nil = general task
	Title     string        `json:"title"`
	Completed bool          `json:"completed"`
	Kind      TaskKind      `json:"type"`
	Weekday   *time.Weekday `json:"weekday,omitempty"` // weekly only, 0=Sunday
	Date      *time.Time    `json:"date,omitempty"`    // custom only
	Tag       string        `json:"tag,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
}

// Validate enforces the kind-dependent shape: weekly carries a weekday,
// custom carries a date, daily carries neither.
func (t Task) Validate() error {
	if strings.TrimSpace(t.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrMalformedTask)
	}
	switch t.Kind {
	case TaskKindDaily:
		if t.Weekday != nil || t.Date != nil {
			return fmt.Errorf("%w: daily task must not carry a weekday or date", ErrMalformedTask)
		}
	case TaskKindWeekly:
		if t.Weekday == nil {
			return fmt.Errorf("%w: weekly task requires a weekday", ErrMalformedTask)
		}
		if *t.Weekday < time.Sunday || *t.Weekday > time.Saturday {
			return fmt.Errorf("%w: weekday %d out of range", ErrMalformedTask, *t.Weekday)
		}
		if t.Date != nil {
			return fmt.Errorf("%w: weekly task must not carry a date", ErrMalformedTask)
		}
	case TaskKindCustom:
		if t.Date == nil {
			return fmt.Errorf("%w: custom task requires a date", ErrMalformedTask)
		}
		if t.Weekday != nil {
			return fmt.Errorf("%w: custom task must not carry a weekday", ErrMalformedTask)
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrMalformedTask, t.Kind)
	}
	return nil
}

// IsGeneral reports whether the task is not attached to any goal.
func (t Task) IsGeneral() bool {
	return t.GoalID == nil
}

func (t *Task) Toggle() {
	t.Completed = !t.Completed
}

// NewDailyTask and NewWeeklyTask build the recurring tasks of a drafted goal.
func NewDailyTask(userID string, goalID *uuid.UUID, title string) Task {
	return Task{ID: uuid.New(), UserID: userID, GoalID: goalID, Title: title, Kind: TaskKindDaily}
}

func NewWeeklyTask(userID string, goalID *uuid.UUID, title string, weekday time.Weekday) Task {
	return Task{ID: uuid.New(), UserID: userID, GoalID: goalID, Title: title, Kind: TaskKindWeekly, Weekday: &weekday}
}
