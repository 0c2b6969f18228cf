package mq

import "time"

type GoalCreatedPayload struct {
	GoalID     string    `json:"goal_id"`
	UserID     string    `json:"user_id"`
	Title      string    `json:"title"`
	Milestones int       `json:"milestones"`
	Tasks      int       `json:"tasks"`
	CreatedAt  time.Time `json:"created_at"`
	TraceID    string    `json:"trace_id,omitempty"`
}

// GoalProgressChangedPayload is emitted after a milestone toggle or delete.
type GoalProgressChangedPayload struct {
	GoalID      string    `json:"goal_id"`
	UserID      string    `json:"user_id"`
	MilestoneID string    `json:"milestone_id"`
	Previous    int       `json:"previous"`
	Progress    int       `json:"progress"`
	ChangedAt   time.Time `json:"changed_at"`
	TraceID     string    `json:"trace_id,omitempty"`
}

// GoalChangedPayload covers every other mutation of a user's goal tree.
type GoalChangedPayload struct {
	GoalID    string    `json:"goal_id,omitempty"` // empty for general tasks/reflections
	UserID    string    `json:"user_id"`
	Action    string    `json:"action"`
	ChangedAt time.Time `json:"changed_at"`
	TraceID   string    `json:"trace_id,omitempty"`
}
