package dialogue

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"tandem/internal/model"
)

// DefaultHorizon is used when the target date could not be understood or
// has already passed.
const DefaultHorizon = 90 * 24 * time.Hour

const defaultGoalColor = "#3b82f6"

type DraftMilestone struct {
	Title string    `json:"title"`
	Date  time.Time `json:"date"`
}

// Draft accumulates the user's answers across the dialogue.
type Draft struct {
	Goal       string           `json:"goal"`
	Why        string           `json:"why"`
	TargetText string           `json:"target_text"`
	TargetDate *time.Time       `json:"target_date,omitempty"`
	Milestones []DraftMilestone `json:"milestones"`
	Daily      []string         `json:"daily"`
	Weekly     []string         `json:"weekly"`
	Category   Category         `json:"category"`
}

func (d Draft) target(now time.Time) time.Time {
	if d.TargetDate != nil && !d.TargetDate.Before(startOfDay(now)) {
		return *d.TargetDate
	}
	return startOfDay(now.Add(DefaultHorizon))
}

// ToGoal materialises the draft. Weekly tasks land on now's weekday.
func (d Draft) ToGoal(userID string, now time.Time) model.Goal {
	goalID := uuid.New()
	end := d.target(now)

	g := model.Goal{
		ID:          goalID,
		UserID:      userID,
		Title:       strings.TrimSpace(d.Goal),
		Description: d.Why,
		Color:       defaultGoalColor,
		Reasoning:   d.Why,
		StartDate:   startOfDay(now),
		EndDate:     end,
		Smart: model.SmartGoal{
			Specific:   strings.TrimSpace(d.Goal),
			Measurable: fmt.Sprintf("%d milestones, %d daily and %d weekly tasks", len(d.Milestones), len(d.Daily), len(d.Weekly)),
			Achievable: "Broken down into manageable steps",
			Relevant:   d.Why,
			TimeBound:  end.Format(dateLayout),
		},
		Tasks:       make([]model.Task, 0, len(d.Daily)+len(d.Weekly)),
		Milestones:  make([]model.Milestone, 0, len(d.Milestones)),
		Reflections: []model.Reflection{},
		Resources:   []model.Resource{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	for _, m := range d.Milestones {
		g.Milestones = append(g.Milestones, model.Milestone{
			ID:        uuid.New(),
			GoalID:    goalID,
			Title:     m.Title,
			Date:      m.Date,
			CreatedAt: now,
		})
	}
	for _, title := range d.Daily {
		t := model.NewDailyTask(userID, &goalID, title)
		t.CreatedAt = now
		g.Tasks = append(g.Tasks, t)
	}
	for _, title := range d.Weekly {
		t := model.NewWeeklyTask(userID, &goalID, title, now.Weekday())
		t.CreatedAt = now
		g.Tasks = append(g.Tasks, t)
	}
	return g
}

// Summary renders the finished plan.
func (d Draft) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Perfect! Here's your complete SMART goal plan:\n\n")
	fmt.Fprintf(&b, "🎯 Goal: %s\n\n", d.Goal)
	fmt.Fprintf(&b, "💫 Why It Matters:\n%s\n\n", d.Why)
	target := d.TargetText
	if d.TargetDate != nil {
		target = d.TargetDate.Format(dateLayout)
	}
	fmt.Fprintf(&b, "📅 Target Date: %s\n\n", target)

	b.WriteString("🏆 Major Milestones:\n")
	for i, m := range d.Milestones {
		fmt.Fprintf(&b, "%d. %s (%s)\n", i+1, m.Title, m.Date.Format(dateLayout))
	}

	b.WriteString("\n📋 Action Plan:\nDaily Tasks:\n")
	b.WriteString(numbered(d.Daily))
	b.WriteString("\nWeekly Tasks:\n")
	b.WriteString(numbered(d.Weekly))

	b.WriteString("\nThis plan is:\n")
	b.WriteString("• Specific: Clear goal with defined milestones\n")
	b.WriteString("• Measurable: Through daily/weekly task completion\n")
	b.WriteString("• Achievable: Broken down into manageable steps\n")
	b.WriteString("• Relevant: Aligned with your personal motivation\n")
	b.WriteString("• Time-bound: With specific dates and deadlines\n")
	return b.String()
}

func numbered(items []string) string {
	var b strings.Builder
	for i, it := range items {
		fmt.Fprintf(&b, "%d. %s\n", i+1, it)
	}
	return b.String()
}

func bulleted(items []string) string {
	lines := make([]string, len(items))
	for i, it := range items {
		lines[i] = "• " + it
	}
	return strings.Join(lines, "\n")
}
