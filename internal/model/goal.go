package model

import (
	"time"

	"github.com/google/uuid"
)

// SmartGoal is the five-field SMART statement of a goal.
type SmartGoal struct {
	Specific   string `json:"specific"`
	Measurable string `json:"measurable"`
	Achievable string `json:"achievable"`
	Relevant   string `json:"relevant"`
	TimeBound  string `json:"time_bound"`
}

type Goal struct {
	ID          uuid.UUID    `json:"id"`
	UserID      string       `json:"user_id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Color       string       `json:"color"`
	Smart       SmartGoal    `json:"smart_goal"`
	StartDate   time.Time    `json:"start_date"`
	EndDate     time.Time    `json:"end_date"`
	Reasoning   string       `json:"reasoning"`
	Progress    int          `json:"progress"` // cached projection of milestone state
	Tasks       []Task       `json:"tasks"`
	Milestones  []Milestone  `json:"milestones"`
	Reflections []Reflection `json:"reflections"`
	Resources   []Resource   `json:"resources"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// GoalPatch carries the editable goal fields; nil means unchanged.
// Progress is not patchable; it is derived from milestones.
type GoalPatch struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Color       *string    `json:"color"`
	Smart       *SmartGoal `json:"smart_goal"`
	StartDate   *time.Time `json:"start_date"`
	EndDate     *time.Time `json:"end_date"`
	Reasoning   *string    `json:"reasoning"`
}

func (p GoalPatch) Apply(g *Goal) {
	if p.Title != nil {
		g.Title = *p.Title
	}
	if p.Description != nil {
		g.Description = *p.Description
	}
	if p.Color != nil {
		g.Color = *p.Color
	}
	if p.Smart != nil {
		g.Smart = *p.Smart
	}
	if p.StartDate != nil {
		g.StartDate = *p.StartDate
	}
	if p.EndDate != nil {
		g.EndDate = *p.EndDate
	}
	if p.Reasoning != nil {
		g.Reasoning = *p.Reasoning
	}
}

type Milestone struct {
	ID        uuid.UUID `json:"id"`
	GoalID    uuid.UUID `json:"goal_id"`
	Title     string    `json:"title"`
	Date      time.Time `json:"date"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"created_at"`
}

func (m *Milestone) Toggle() {
	m.Completed = !m.Completed
}

type Reflection struct {
	ID        uuid.UUID  `json:"id"`
	UserID    string     `json:"user_id"`
	GoalID    *uuid.UUID `json:"goal_id,omitempty"` // nil = general reflection
	Date      time.Time  `json:"date"`
	Content   string     `json:"content"`
	CreatedAt time.Time  `json:"created_at"`
}

type Resource struct {
	ID        uuid.UUID  `json:"id"`
	UserID    string     `json:"user_id"`
	GoalID    *uuid.UUID `json:"goal_id,omitempty"`
	Title     string     `json:"title"`
	URL       string     `json:"url"`
	CreatedAt time.Time  `json:"created_at"`
}
