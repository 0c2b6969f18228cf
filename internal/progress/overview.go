package progress

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"tandem/internal/model"
)

type GoalDay struct {
	GoalID          uuid.UUID `json:"goal_id"`
	Title           string    `json:"title"`
	Color           string    `json:"color"`
	Progress        int       `json:"progress"`
	DailyCompletion int       `json:"daily_completion"`
	Due             int       `json:"due"`
	DueCompleted    int       `json:"due_completed"`
}

// Day is the dashboard view of a single calendar day.
type Day struct {
	Date               time.Time    `json:"date"`
	Overall            int          `json:"overall"`
	General            int          `json:"general"`
	Goals              []GoalDay    `json:"goals"`
	DueGeneral         []model.Task `json:"due_general"`
	DueGoal            []model.Task `json:"due_goal"`
	UpcomingMilestones []Upcoming   `json:"upcoming_milestones"`
}

// Overview builds the daily view across all goals plus the general task list.
// Each goal only counts its own tasks.
func Overview(goals []model.Goal, general []model.Task, ref time.Time, upcomingLimit int) Day {
	day := Day{
		Date:       ref,
		General:    DailyCompletion(general, ref),
		Goals:      make([]GoalDay, 0, len(goals)),
		DueGeneral: DueTasks(general, ref),
		DueGoal:    []model.Task{},
	}

	totalDue, totalDone := countDue(general, ref)
	for _, g := range goals {
		own := GoalTasks(g.Tasks, g.ID)
		due, done := countDue(own, ref)
		totalDue += due
		totalDone += done
		day.DueGoal = append(day.DueGoal, DueTasks(own, ref)...)
		day.Goals = append(day.Goals, GoalDay{
			GoalID:          g.ID,
			Title:           g.Title,
			Color:           g.Color,
			Progress:        GoalProgress(g),
			DailyCompletion: Percent(done, due),
			Due:             due,
			DueCompleted:    done,
		})
	}
	day.Overall = Percent(totalDone, totalDue)
	day.UpcomingMilestones = UpcomingMilestones(goals, ref, upcomingLimit)
	return day
}

type Upcoming struct {
	model.Milestone
	GoalTitle string `json:"goal_title"`
	GoalColor string `json:"goal_color"`
}

// UpcomingMilestones lists incomplete milestones dated on or after ref's day,
// soonest first. limit <= 0 means no limit.
func UpcomingMilestones(goals []model.Goal, ref time.Time, limit int) []Upcoming {
	y, m, d := ref.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, ref.Location())

	out := []Upcoming{}
	for _, g := range goals {
		for _, ms := range g.Milestones {
			if ms.Completed {
				continue
			}
			if ms.Date.Before(start) && !SameDay(ms.Date, ref) {
				continue
			}
			out = append(out, Upcoming{Milestone: ms, GoalTitle: g.Title, GoalColor: g.Color})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
