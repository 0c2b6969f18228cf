package goals

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"tandem/internal/model"
	"tandem/internal/repository"
	"tandem/internal/store"
)

// memDB backs the fake repositories; slices keep insertion order.
type memDB struct {
	goals       []model.Goal
	tasks       []model.Task
	milestones  []model.Milestone
	reflections []model.Reflection
	resources   []model.Resource
}

func (db *memDB) goalIndex(userID string, id uuid.UUID) int {
	for i, g := range db.goals {
		if g.ID == id && g.UserID == userID {
			return i
		}
	}
	return -1
}

func (db *memDB) assemble(g model.Goal) model.Goal {
	g.Tasks = []model.Task{}
	g.Milestones = []model.Milestone{}
	g.Reflections = []model.Reflection{}
	g.Resources = []model.Resource{}
	for _, t := range db.tasks {
		if t.GoalID != nil && *t.GoalID == g.ID {
			g.Tasks = append(g.Tasks, t)
		}
	}
	for _, m := range db.milestones {
		if m.GoalID == g.ID {
			g.Milestones = append(g.Milestones, m)
		}
	}
	for _, rf := range db.reflections {
		if rf.GoalID != nil && *rf.GoalID == g.ID {
			g.Reflections = append(g.Reflections, rf)
		}
	}
	for _, rs := range db.resources {
		if rs.GoalID != nil && *rs.GoalID == g.ID {
			g.Resources = append(g.Resources, rs)
		}
	}
	return g
}

type fakeGoals struct{ db *memDB }

func (f fakeGoals) ListByUser(_ context.Context, userID string) ([]model.Goal, error) {
	out := []model.Goal{}
	for _, g := range f.db.goals {
		if g.UserID == userID {
			out = append(out, f.db.assemble(g))
		}
	}
	return out, nil
}

func (f fakeGoals) FindByID(_ context.Context, userID string, id uuid.UUID) (*model.Goal, error) {
	i := f.db.goalIndex(userID, id)
	if i < 0 {
		return nil, model.ErrNotFound
	}
	g := f.db.assemble(f.db.goals[i])
	return &g, nil
}

func (f fakeGoals) Create(_ context.Context, g *model.Goal) error {
	f.db.tasks = append(f.db.tasks, g.Tasks...)
	f.db.milestones = append(f.db.milestones, g.Milestones...)
	stored := *g
	stored.Tasks, stored.Milestones = nil, nil
	f.db.goals = append(f.db.goals, stored)
	return nil
}

func (f fakeGoals) Update(_ context.Context, g *model.Goal) error {
	i := f.db.goalIndex(g.UserID, g.ID)
	if i < 0 {
		return model.ErrNotFound
	}
	progress := f.db.goals[i].Progress
	f.db.goals[i] = *g
	f.db.goals[i].Progress = progress
	return nil
}

func (f fakeGoals) Delete(_ context.Context, userID string, id uuid.UUID) error {
	i := f.db.goalIndex(userID, id)
	if i < 0 {
		return model.ErrNotFound
	}
	f.db.goals = append(f.db.goals[:i], f.db.goals[i+1:]...)
	return nil
}

type fakeTasks struct{ db *memDB }

func (f fakeTasks) ListByUser(_ context.Context, userID string) ([]model.Task, error) {
	out := []model.Task{}
	for _, t := range f.db.tasks {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f fakeTasks) Insert(_ context.Context, t *model.Task) error {
	if t.GoalID != nil && f.db.goalIndex(t.UserID, *t.GoalID) < 0 {
		return model.ErrNotFound
	}
	f.db.tasks = append(f.db.tasks, *t)
	return nil
}

func (f fakeTasks) Toggle(_ context.Context, userID string, id uuid.UUID) (*model.Task, error) {
	for i := range f.db.tasks {
		if f.db.tasks[i].ID == id && f.db.tasks[i].UserID == userID {
			f.db.tasks[i].Toggle()
			t := f.db.tasks[i]
			return &t, nil
		}
	}
	return nil, model.ErrNotFound
}

func (f fakeTasks) Delete(_ context.Context, userID string, id uuid.UUID) error {
	for i, t := range f.db.tasks {
		if t.ID == id && t.UserID == userID {
			f.db.tasks = append(f.db.tasks[:i], f.db.tasks[i+1:]...)
			return nil
		}
	}
	return model.ErrNotFound
}

type fakeMilestones struct{ db *memDB }

func (f fakeMilestones) owner(userID string, id uuid.UUID) (int, int) {
	for i, m := range f.db.milestones {
		if m.ID == id {
			g := f.db.goalIndex(userID, m.GoalID)
			if g < 0 {
				return -1, -1
			}
			return i, g
		}
	}
	return -1, -1
}

func (f fakeMilestones) Apply(_ context.Context, userID string, op repository.MilestoneOp, m model.Milestone,
	recompute func([]model.Milestone) int) (repository.ProgressChange, error) {
	var gi int
	switch op {
	case repository.MilestoneInsert:
		gi = f.db.goalIndex(userID, m.GoalID)
		if gi < 0 {
			return repository.ProgressChange{}, model.ErrNotFound
		}
		f.db.milestones = append(f.db.milestones, m)
	case repository.MilestoneToggle, repository.MilestoneDelete:
		var mi int
		mi, gi = f.owner(userID, m.ID)
		if mi < 0 {
			return repository.ProgressChange{}, model.ErrNotFound
		}
		if op == repository.MilestoneToggle {
			f.db.milestones[mi].Toggle()
			m = f.db.milestones[mi]
		} else {
			m = f.db.milestones[mi]
			f.db.milestones = append(f.db.milestones[:mi], f.db.milestones[mi+1:]...)
		}
	}

	g := &f.db.goals[gi]
	var remaining []model.Milestone
	for _, ms := range f.db.milestones {
		if ms.GoalID == g.ID {
			remaining = append(remaining, ms)
		}
	}
	change := repository.ProgressChange{GoalID: g.ID, Milestone: m, Previous: g.Progress, Progress: recompute(remaining)}
	g.Progress = change.Progress
	return change, nil
}

type fakeJournal struct{ db *memDB }

func (f fakeJournal) ListGeneralReflections(_ context.Context, userID string) ([]model.Reflection, error) {
	out := []model.Reflection{}
	for _, rf := range f.db.reflections {
		if rf.UserID == userID && rf.GoalID == nil {
			out = append(out, rf)
		}
	}
	return out, nil
}

func (f fakeJournal) InsertReflection(_ context.Context, rf *model.Reflection) error {
	if rf.GoalID != nil && f.db.goalIndex(rf.UserID, *rf.GoalID) < 0 {
		return model.ErrNotFound
	}
	f.db.reflections = append(f.db.reflections, *rf)
	return nil
}

func (f fakeJournal) DeleteReflection(_ context.Context, userID string, id uuid.UUID) error {
	for i, rf := range f.db.reflections {
		if rf.ID == id && rf.UserID == userID {
			f.db.reflections = append(f.db.reflections[:i], f.db.reflections[i+1:]...)
			return nil
		}
	}
	return model.ErrNotFound
}

func (f fakeJournal) InsertResource(_ context.Context, rs *model.Resource) error {
	if rs.GoalID != nil && f.db.goalIndex(rs.UserID, *rs.GoalID) < 0 {
		return model.ErrNotFound
	}
	f.db.resources = append(f.db.resources, *rs)
	return nil
}

func (f fakeJournal) DeleteResource(_ context.Context, userID string, id uuid.UUID) error {
	for i, rs := range f.db.resources {
		if rs.ID == id && rs.UserID == userID {
			f.db.resources = append(f.db.resources[:i], f.db.resources[i+1:]...)
			return nil
		}
	}
	return model.ErrNotFound
}

func newTestService() (*Service, *memDB) {
	db := &memDB{}
	svc := NewService(
		fakeGoals{db},
		fakeTasks{db},
		fakeMilestones{db},
		fakeJournal{db},
		store.NewGoalStore(nil, time.Hour, zap.NewNop()),
		zap.NewNop(),
	)
	return svc, db
}
