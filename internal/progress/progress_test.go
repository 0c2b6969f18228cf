package progress

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tandem/internal/model"
)

func milestones(states ...bool) []model.Milestone {
	out := make([]model.Milestone, 0, len(states))
	for _, done := range states {
		out = append(out, model.Milestone{ID: uuid.New(), Completed: done})
	}
	return out
}

func TestPercent(t *testing.T) {
	cases := []struct {
		part, total, want int
	}{
		{0, 0, 0},
		{0, 5, 0},
		{3, 4, 75},
		{1, 3, 33},
		{2, 3, 67},
		{1, 8, 13},
		{1, 2, 50},
		{5, 5, 100},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Percent(c.part, c.total), "%d/%d", c.part, c.total)
	}
}

func TestGoalProgress(t *testing.T) {
	t.Run("no milestones is zero", func(t *testing.T) {
		assert.Equal(t, 0, GoalProgress(model.Goal{}))
	})

	t.Run("two of four done is fifty", func(t *testing.T) {
		g := model.Goal{Milestones: milestones(true, true, false, false)}
		assert.Equal(t, 50, GoalProgress(g))
	})

	t.Run("one of three rounds down", func(t *testing.T) {
		g := model.Goal{Milestones: milestones(true, false, false)}
		assert.Equal(t, 33, GoalProgress(g))
	})

	t.Run("tasks do not count", func(t *testing.T) {
		g := model.Goal{
			Milestones: milestones(false, false),
			Tasks:      []model.Task{{Kind: model.TaskKindDaily, Completed: true}},
		}
		assert.Equal(t, 0, GoalProgress(g))
	})
}

func TestToggleRoundTripRestoresProgress(t *testing.T) {
	g := model.Goal{Milestones: milestones(true, false, false, true, false)}
	before := GoalProgress(g)

	g.Milestones[1].Toggle()
	assert.NotEqual(t, before, GoalProgress(g))

	g.Milestones[1].Toggle()
	assert.Equal(t, before, GoalProgress(g))
}

func TestDeletingOnlyIncompleteMilestone(t *testing.T) {
	ms := milestones(true, false)
	assert.Equal(t, 50, MilestoneProgress(ms))
	assert.Equal(t, 100, MilestoneProgress(ms[:1]))
}

func weekday(d time.Weekday) *time.Weekday { return &d }
func date(s string) *time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return &d
}

func TestDailyCompletionScenario(t *testing.T) {
	monday := time.Date(2024, 3, 18, 9, 30, 0, 0, time.UTC)
	tasks := []model.Task{
		{ID: uuid.New(), Kind: model.TaskKindDaily},
		{ID: uuid.New(), Kind: model.TaskKindWeekly, Weekday: weekday(time.Monday), Completed: true},
		{ID: uuid.New(), Kind: model.TaskKindCustom, Date: date("2024-03-20"), Completed: true},
	}

	due := DueTasks(tasks, monday)
	require.Len(t, due, 2)
	assert.Equal(t, tasks[0].ID, due[0].ID)
	assert.Equal(t, tasks[1].ID, due[1].ID)
	assert.Equal(t, 50, DailyCompletion(tasks, monday))
}

func TestDailyCompletionEmpty(t *testing.T) {
	assert.Equal(t, 0, DailyCompletion(nil, time.Now()))
	assert.Equal(t, 0, DailyCompletion([]model.Task{}, time.Now()))
}

func TestDailyCompletionIgnoresOffDayWeekly(t *testing.T) {
	tuesday := time.Date(2024, 3, 19, 0, 0, 0, 0, time.UTC)
	tasks := []model.Task{
		{Kind: model.TaskKindWeekly, Weekday: weekday(time.Monday), Completed: true},
		{Kind: model.TaskKindDaily},
	}
	assert.Equal(t, 0, DailyCompletion(tasks, tuesday))
}

func TestIsDueCustomIgnoresTimeOfDay(t *testing.T) {
	late := time.Date(2024, 3, 20, 23, 59, 0, 0, time.UTC)
	task := model.Task{Kind: model.TaskKindCustom, Date: date("2024-03-20")}
	assert.True(t, IsDue(task, late))
	assert.False(t, IsDue(task, late.Add(time.Minute)))
}

func TestIsDueUnknownKind(t *testing.T) {
	assert.False(t, IsDue(model.Task{Kind: "monthly"}, time.Now()))
}

func TestPartition(t *testing.T) {
	tasks := []model.Task{
		{ID: uuid.New(), Kind: model.TaskKindWeekly, Weekday: weekday(time.Friday)},
		{ID: uuid.New(), Kind: model.TaskKindDaily},
		{ID: uuid.New(), Kind: model.TaskKindCustom, Date: date("2024-01-01")},
		{ID: uuid.New(), Kind: model.TaskKindDaily},
	}

	b, err := Partition(tasks)
	require.NoError(t, err)
	assert.Equal(t, len(tasks), b.Len())
	require.Len(t, b.Daily, 2)
	assert.Equal(t, tasks[1].ID, b.Daily[0].ID)
	assert.Equal(t, tasks[3].ID, b.Daily[1].ID)
	require.Len(t, b.Weekly, 1)
	require.Len(t, b.Custom, 1)
}

func TestPartitionRejectsUnknownKind(t *testing.T) {
	_, err := Partition([]model.Task{{ID: uuid.New(), Kind: ""}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidKind))
	assert.True(t, errors.Is(err, model.ErrMalformedTask))
}

func TestResolveOwnerGoal(t *testing.T) {
	goals := []model.Goal{{ID: uuid.New(), Title: "a"}, {ID: uuid.New(), Title: "b"}}

	g, ok := ResolveOwnerGoal(model.Task{GoalID: &goals[1].ID}, goals)
	require.True(t, ok)
	assert.Equal(t, "b", g.Title)

	_, ok = ResolveOwnerGoal(model.Task{}, goals)
	assert.False(t, ok)

	missing := uuid.New()
	_, ok = ResolveOwnerGoal(model.Task{GoalID: &missing}, goals)
	assert.False(t, ok)
}

func TestOverview(t *testing.T) {
	monday := time.Date(2024, 3, 18, 12, 0, 0, 0, time.UTC)
	goalID := uuid.New()
	other := uuid.New()
	goal := model.Goal{
		ID:    goalID,
		Title: "Run a marathon",
		Tasks: []model.Task{
			{GoalID: &goalID, Kind: model.TaskKindDaily, Completed: true},
			{GoalID: &goalID, Kind: model.TaskKindDaily},
			{GoalID: &other, Kind: model.TaskKindDaily, Completed: true},
		},
		Milestones: []model.Milestone{
			{Title: "10K", Date: *date("2024-03-25"), Completed: false},
			{Title: "5K", Date: *date("2024-03-01"), Completed: true},
			{Title: "Half", Date: *date("2024-03-18")},
		},
	}
	general := []model.Task{{Kind: model.TaskKindDaily, Completed: true}}

	day := Overview([]model.Goal{goal}, general, monday, 5)
	assert.Equal(t, 100, day.General)
	require.Len(t, day.Goals, 1)
	assert.Equal(t, 50, day.Goals[0].DailyCompletion)
	assert.Equal(t, 33, day.Goals[0].Progress)
	assert.Equal(t, 67, day.Overall)
	assert.Len(t, day.DueGoal, 2)

	require.Len(t, day.UpcomingMilestones, 2)
	assert.Equal(t, "Half", day.UpcomingMilestones[0].Title)
	assert.Equal(t, "10K", day.UpcomingMilestones[1].Title)
	assert.Equal(t, "Run a marathon", day.UpcomingMilestones[0].GoalTitle)
}
