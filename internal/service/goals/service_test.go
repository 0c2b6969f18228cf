package goals

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tandem/internal/dialogue"
	"tandem/internal/model"
	"tandem/internal/repository"
	"tandem/internal/store"
)

const alice = "user_alice"

var monday = time.Date(2024, 3, 18, 9, 0, 0, 0, time.UTC)

func day(offset int) time.Time {
	return monday.AddDate(0, 0, offset)
}

func weekday(d time.Weekday) *time.Weekday { return &d }

func marathon() model.Goal {
	return model.Goal{
		Title:     "Run a marathon",
		StartDate: day(0),
		EndDate:   day(120),
		Milestones: []model.Milestone{
			{Title: "5k", Date: day(14), Completed: true},
			{Title: "10k", Date: day(30)},
			{Title: "Half", Date: day(60)},
			{Title: "Full", Date: day(120)},
		},
		Tasks: []model.Task{
			{Title: "Stretch", Kind: model.TaskKindDaily},
			{Title: "Long run", Kind: model.TaskKindWeekly, Weekday: weekday(time.Monday)},
			{Title: "Hill repeats", Kind: model.TaskKindWeekly, Weekday: weekday(time.Tuesday)},
		},
	}
}

func TestCreateAssignsIdsAndDerivesProgress(t *testing.T) {
	svc, db := newTestService()
	ctx := context.Background()

	g, err := svc.Create(ctx, alice, marathon())
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, g.ID)
	assert.Equal(t, alice, g.UserID)
	assert.Equal(t, 25, g.Progress)
	for _, m := range g.Milestones {
		assert.Equal(t, g.ID, m.GoalID)
	}
	for _, task := range g.Tasks {
		require.NotNil(t, task.GoalID)
		assert.Equal(t, g.ID, *task.GoalID)
		assert.Equal(t, alice, task.UserID)
	}
	assert.Len(t, db.tasks, 3)
}

func TestCreateRejectsMalformedTask(t *testing.T) {
	svc, db := newTestService()

	goal := marathon()
	goal.Tasks = append(goal.Tasks, model.Task{Title: "Race day", Kind: model.TaskKindCustom})

	_, err := svc.Create(context.Background(), alice, goal)
	assert.ErrorIs(t, err, model.ErrMalformedTask)
	assert.Empty(t, db.goals)
}

func TestCreateFromDialogueWithPastTarget(t *testing.T) {
	svc, db := newTestService()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	s := dialogue.NewSession()
	for _, in := range []string{"run a 10k", "stay healthy", "2024-01-01", "5k\n10k", "daily:\nstretch"} {
		_, err := s.Advance(in, now)
		require.NoError(t, err, in)
	}
	require.True(t, s.Done())

	g, err := svc.Create(context.Background(), alice, s.Draft.ToGoal(alice, now))
	require.NoError(t, err)
	assert.False(t, g.EndDate.Before(g.StartDate))
	assert.Len(t, db.goals, 1)
}

func TestCreateRequiresTitle(t *testing.T) {
	svc, _ := newTestService()
	_, err := svc.Create(context.Background(), alice, model.Goal{Title: "  "})
	assert.ErrorIs(t, err, model.ErrInvalidInput)
}

func TestMilestoneToggleRecomputesProgress(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	g, err := svc.Create(ctx, alice, marathon())
	require.NoError(t, err)

	res, err := svc.ToggleMilestone(ctx, alice, g.Milestones[1].ID)
	require.NoError(t, err)
	assert.True(t, res.Milestone.Completed)
	assert.Equal(t, 50, res.Progress)

	res, err = svc.ToggleMilestone(ctx, alice, g.Milestones[2].ID)
	require.NoError(t, err)
	assert.Equal(t, 75, res.Progress)

	stored, err := svc.Get(ctx, alice, g.ID)
	require.NoError(t, err)
	assert.Equal(t, 75, stored.Progress)

	// toggling back is reversible
	res, err = svc.ToggleMilestone(ctx, alice, g.Milestones[2].ID)
	require.NoError(t, err)
	assert.False(t, res.Milestone.Completed)
	assert.Equal(t, 50, res.Progress)
}

func TestDeleteMilestoneRecomputesProgress(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	g, err := svc.Create(ctx, alice, marathon())
	require.NoError(t, err)

	_, err = svc.DeleteMilestone(ctx, alice, g.Milestones[1].ID)
	require.NoError(t, err)
	_, err = svc.DeleteMilestone(ctx, alice, g.Milestones[2].ID)
	require.NoError(t, err)
	res, err := svc.DeleteMilestone(ctx, alice, g.Milestones[3].ID)
	require.NoError(t, err)
	assert.Equal(t, 100, res.Progress)

	res, err = svc.DeleteMilestone(ctx, alice, g.Milestones[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Progress)
}

func TestCreateMilestone(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	g, err := svc.Create(ctx, alice, marathon())
	require.NoError(t, err)

	res, err := svc.CreateMilestone(ctx, alice, g.ID, model.Milestone{Title: "Taper", Date: day(110)})
	require.NoError(t, err)
	assert.Equal(t, 20, res.Progress)

	_, err = svc.CreateMilestone(ctx, alice, g.ID, model.Milestone{Title: "", Date: day(1)})
	assert.ErrorIs(t, err, model.ErrInvalidInput)
}

func TestForeignIdsLookMissing(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	g, err := svc.Create(ctx, alice, marathon())
	require.NoError(t, err)

	_, err = svc.ToggleMilestone(ctx, "user_bob", g.Milestones[0].ID)
	assert.ErrorIs(t, err, model.ErrNotFound)
	_, err = svc.ToggleTask(ctx, "user_bob", g.Tasks[0].ID)
	assert.ErrorIs(t, err, model.ErrNotFound)
	_, err = svc.Get(ctx, "user_bob", g.ID)
	assert.ErrorIs(t, err, model.ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, "user_bob", g.ID), model.ErrNotFound)
	_, err = svc.CreateTask(ctx, "user_bob", model.Task{Title: "x", Kind: model.TaskKindDaily, GoalID: &g.ID})
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestTaskToggleLeavesProgressAlone(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	g, err := svc.Create(ctx, alice, marathon())
	require.NoError(t, err)

	task, err := svc.ToggleTask(ctx, alice, g.Tasks[0].ID)
	require.NoError(t, err)
	assert.True(t, task.Completed)

	stored, err := svc.Get(ctx, alice, g.ID)
	require.NoError(t, err)
	assert.Equal(t, 25, stored.Progress)
}

func TestToggleFlipsStoredState(t *testing.T) {
	svc, db := newTestService()
	ctx := context.Background()

	g, err := svc.Create(ctx, alice, marathon())
	require.NoError(t, err)

	// another request completed both before this toggle ran
	db.tasks[0].Completed = true
	db.milestones[1].Completed = true

	task, err := svc.ToggleTask(ctx, alice, g.Tasks[0].ID)
	require.NoError(t, err)
	assert.False(t, task.Completed)
	assert.False(t, db.tasks[0].Completed)

	res, err := svc.ToggleMilestone(ctx, alice, g.Milestones[1].ID)
	require.NoError(t, err)
	assert.False(t, res.Milestone.Completed)
	assert.Equal(t, 25, res.Progress)
}

type recordingMilestones struct {
	ops []repository.MilestoneOp
	got []model.Milestone
}

func (r *recordingMilestones) Apply(_ context.Context, _ string, op repository.MilestoneOp, m model.Milestone,
	recompute func([]model.Milestone) int) (repository.ProgressChange, error) {
	r.ops = append(r.ops, op)
	r.got = append(r.got, m)
	stored := model.Milestone{ID: m.ID, Completed: true}
	return repository.ProgressChange{Milestone: stored, Progress: recompute([]model.Milestone{stored})}, nil
}

func TestToggleMilestoneDelegatesFlip(t *testing.T) {
	db := &memDB{}
	rec := &recordingMilestones{}
	svc := NewService(fakeGoals{db}, fakeTasks{db}, rec, fakeJournal{db},
		store.NewGoalStore(nil, time.Hour, zap.NewNop()), zap.NewNop())

	id := uuid.New()
	res, err := svc.ToggleMilestone(context.Background(), alice, id)
	require.NoError(t, err)

	assert.Equal(t, []repository.MilestoneOp{repository.MilestoneToggle}, rec.ops)
	assert.Equal(t, model.Milestone{ID: id}, rec.got[0])
	assert.True(t, res.Milestone.Completed)
	assert.Equal(t, 100, res.Progress)
}

func TestTodayDailyCompletion(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	g, err := svc.Create(ctx, alice, marathon())
	require.NoError(t, err)

	general, err := svc.CreateTask(ctx, alice, model.Task{Title: "Journal", Kind: model.TaskKindDaily})
	require.NoError(t, err)
	_, err = svc.CreateTask(ctx, alice, model.Task{Title: "Dentist", Kind: model.TaskKindCustom, Date: &monday})
	require.NoError(t, err)
	tomorrow := day(1)
	_, err = svc.CreateTask(ctx, alice, model.Task{Title: "Taxes", Kind: model.TaskKindCustom, Date: &tomorrow})
	require.NoError(t, err)

	_, err = svc.ToggleTask(ctx, alice, general.ID)
	require.NoError(t, err)
	_, err = svc.ToggleTask(ctx, alice, g.Tasks[0].ID)
	require.NoError(t, err)
	// complete but not due on Monday, must not count
	_, err = svc.ToggleTask(ctx, alice, g.Tasks[2].ID)
	require.NoError(t, err)

	dash, err := svc.Today(ctx, alice, monday)
	require.NoError(t, err)

	assert.Equal(t, 50, dash.General)
	require.Len(t, dash.Goals, 1)
	assert.Equal(t, 50, dash.Goals[0].DailyCompletion)
	assert.Equal(t, 2, dash.Goals[0].Due)
	assert.Equal(t, 50, dash.Overall)
	assert.Len(t, dash.DueGeneral, 2)
	require.Len(t, dash.UpcomingMilestones, 3)
	assert.Equal(t, "10k", dash.UpcomingMilestones[0].Title)
}

func TestListTasksFilters(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	g, err := svc.Create(ctx, alice, marathon())
	require.NoError(t, err)
	_, err = svc.CreateTask(ctx, alice, model.Task{Title: "Journal", Kind: model.TaskKindDaily})
	require.NoError(t, err)

	all, err := svc.ListTasks(ctx, alice, TaskFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 4)

	general, err := svc.ListTasks(ctx, alice, TaskFilter{General: true})
	require.NoError(t, err)
	require.Len(t, general, 1)
	assert.Equal(t, "Journal", general[0].Title)

	weekly, err := svc.ListTasks(ctx, alice, TaskFilter{GoalID: &g.ID, Kind: model.TaskKindWeekly})
	require.NoError(t, err)
	assert.Len(t, weekly, 2)

	tuesday := day(1)
	due, err := svc.ListTasks(ctx, alice, TaskFilter{Date: &tuesday})
	require.NoError(t, err)
	titles := []string{}
	for _, task := range due {
		titles = append(titles, task.Title)
	}
	assert.Equal(t, []string{"Stretch", "Hill repeats", "Journal"}, titles)
}

func TestUpdateAppliesPatch(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	g, err := svc.Create(ctx, alice, marathon())
	require.NoError(t, err)

	title := "Run a sub-4 marathon"
	updated, err := svc.Update(ctx, alice, g.ID, model.GoalPatch{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, title, updated.Title)
	assert.Equal(t, 25, updated.Progress)

	blank := ""
	_, err = svc.Update(ctx, alice, g.ID, model.GoalPatch{Title: &blank})
	assert.ErrorIs(t, err, model.ErrInvalidInput)

	end := day(-1)
	_, err = svc.Update(ctx, alice, g.ID, model.GoalPatch{EndDate: &end})
	assert.ErrorIs(t, err, model.ErrInvalidInput)
}

func TestJournal(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	g, err := svc.Create(ctx, alice, marathon())
	require.NoError(t, err)

	rf, err := svc.AddReflection(ctx, alice, &g.ID, monday, "Legs felt heavy")
	require.NoError(t, err)
	_, err = svc.AddReflection(ctx, alice, nil, monday, "Good week overall")
	require.NoError(t, err)
	_, err = svc.AddReflection(ctx, alice, nil, monday, "   ")
	assert.ErrorIs(t, err, model.ErrInvalidInput)

	general, err := svc.ListGeneralReflections(ctx, alice)
	require.NoError(t, err)
	assert.Len(t, general, 1)

	_, err = svc.AddResource(ctx, alice, &g.ID, "Plan", "https://example.com/plan")
	require.NoError(t, err)
	_, err = svc.AddResource(ctx, alice, &g.ID, "Plan", "not a url")
	assert.ErrorIs(t, err, model.ErrInvalidInput)

	stored, err := svc.Get(ctx, alice, g.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Reflections, 1)
	assert.Len(t, stored.Resources, 1)

	require.NoError(t, svc.DeleteReflection(ctx, alice, rf.ID))
	assert.ErrorIs(t, svc.DeleteReflection(ctx, alice, rf.ID), model.ErrNotFound)
}
