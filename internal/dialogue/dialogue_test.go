package dialogue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tandem/internal/model"
)

func TestParseTaskInput(t *testing.T) {
	t.Run("markers and bullets", func(t *testing.T) {
		daily, weekly := ParseTaskInput("Daily:\n• Run 5k\n- Stretch\n\nWeekly:\n•Long run\n  Review mileage  ")
		assert.Equal(t, []string{"Run 5k", "Stretch"}, daily)
		assert.Equal(t, []string{"Long run", "Review mileage"}, weekly)
	})

	t.Run("defaults to daily", func(t *testing.T) {
		daily, weekly := ParseTaskInput("read\nwrite")
		assert.Equal(t, []string{"read", "write"}, daily)
		assert.Empty(t, weekly)
	})

	t.Run("marker is case insensitive and can switch back", func(t *testing.T) {
		daily, weekly := ParseTaskInput("WEEKLY:\nplan\nmy daily: tasks\nfloss")
		assert.Equal(t, []string{"floss"}, daily)
		assert.Equal(t, []string{"plan"}, weekly)
	})

	t.Run("only dot and dash are bullets", func(t *testing.T) {
		daily, _ := ParseTaskInput("* Run\n-Swim")
		assert.Equal(t, []string{"* Run", "Swim"}, daily)
	})

	t.Run("empty input", func(t *testing.T) {
		daily, weekly := ParseTaskInput("   \n\n")
		assert.Empty(t, daily)
		assert.Empty(t, weekly)
	})
}

func TestParseTargetDate(t *testing.T) {
	now := time.Date(2024, 1, 10, 15, 0, 0, 0, time.UTC)

	cases := []struct {
		in   string
		want string
	}{
		{"2024-06-01", "2024-06-01"},
		{"Jun 1 2024", "2024-06-01"},
		{"June 1, 2024", "2024-06-01"},
		{"in 10 days", "2024-01-20"},
		{"16 weeks", "2024-05-01"},
		{"6 months", "2024-07-10"},
		{"1 year", "2025-01-10"},
	}
	for _, c := range cases {
		got, ok := ParseTargetDate(c.in, now)
		require.True(t, ok, c.in)
		assert.Equal(t, c.want, got.Format(dateLayout), c.in)
	}

	_, ok := ParseTargetDate("someday", now)
	assert.False(t, ok)
}

func TestParseMilestoneInput(t *testing.T) {
	now := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	target := time.Date(2024, 1, 11, 0, 0, 0, 0, time.UTC)

	ms := ParseMilestoneInput("1. First 5k\n2. Ten k (2024-01-03)\n- Finish", now, target)
	require.Len(t, ms, 3)
	assert.Equal(t, "First 5k", ms[0].Title)
	assert.Equal(t, "2024-01-04", ms[0].Date.Format(dateLayout))
	assert.Equal(t, "Ten k", ms[1].Title)
	assert.Equal(t, "2024-01-03", ms[1].Date.Format(dateLayout))
	assert.Equal(t, "Finish", ms[2].Title)
	assert.Equal(t, "2024-01-11", ms[2].Date.Format(dateLayout))
}

func TestSpreadDatePastTarget(t *testing.T) {
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	past := now.AddDate(0, -1, 0)
	assert.Equal(t, now, SpreadDate(now, past, 0, 3))
}

func TestClassify(t *testing.T) {
	cases := map[string]Category{
		"Run a marathon":          CategoryRunning,
		"Finish my first 10K":     CategoryRunning,
		"Learn Spanish":           CategoryLanguage,
		"Read 12 books this year": CategoryReading,
		"Play the guitar":         CategoryMusic,
		"Quit smoking":            CategoryQuitSmoking,
		"Save for a house":        CategorySavings,
		"Lose weight":             CategoryFitness,
		"Be more patient":         CategoryGeneral,
		"Learn to sing":           CategoryMusic,
		"Thread the needle":       CategoryGeneral,
	}
	for title, want := range cases {
		assert.Equal(t, want, Classify(title), title)
	}
}

func TestPlaybookForFallsBack(t *testing.T) {
	assert.Equal(t, playbooks[CategoryGeneral], PlaybookFor(Category("unknown")))
	assert.NotEmpty(t, PlaybookFor(CategoryRunning).Milestones)
}

func TestSessionFullConversation(t *testing.T) {
	now := time.Date(2024, 3, 18, 10, 0, 0, 0, time.UTC) // Monday
	s := NewSession()
	assert.Contains(t, s.Greeting(), "What's one goal")

	reply, err := s.Advance("run a marathon", now)
	require.NoError(t, err)
	assert.Contains(t, reply, `"Run a marathon" is a fantastic goal!`)
	assert.Equal(t, StepMotivation, s.Step)
	assert.Equal(t, CategoryRunning, s.Draft.Category)

	reply, err = s.Advance("I want to prove I can", now)
	require.NoError(t, err)
	assert.Contains(t, reply, "16-20 weeks")

	reply, err = s.Advance("2024-09-15", now)
	require.NoError(t, err)
	assert.Contains(t, reply, "Run Half Marathon (Month 4)")
	require.NotNil(t, s.Draft.TargetDate)

	reply, err = s.Advance("5K\nHalf (2024-06-01)\nFull", now)
	require.NoError(t, err)
	assert.Contains(t, reply, "Complete scheduled training run")
	require.Len(t, s.Draft.Milestones, 3)

	reply, err = s.Advance("daily:\n• Train\nweekly:\n• Long run", now)
	require.NoError(t, err)
	assert.Contains(t, reply, "🎯 Goal: Run a marathon")
	assert.Contains(t, reply, "📅 Target Date: 2024-09-15")
	assert.True(t, s.Done())

	_, err = s.Advance("more", now)
	assert.ErrorIs(t, err, ErrSessionDone)

	g := s.Draft.ToGoal("user_1", now)
	assert.Equal(t, "Run a marathon", g.Title)
	assert.Equal(t, "2024-09-15", g.EndDate.Format(dateLayout))
	require.Len(t, g.Milestones, 3)
	for _, m := range g.Milestones {
		assert.Equal(t, g.ID, m.GoalID)
	}
	require.Len(t, g.Tasks, 2)
	assert.Equal(t, model.TaskKindDaily, g.Tasks[0].Kind)
	assert.Equal(t, model.TaskKindWeekly, g.Tasks[1].Kind)
	require.NotNil(t, g.Tasks[1].Weekday)
	assert.Equal(t, time.Monday, *g.Tasks[1].Weekday)
	for _, task := range g.Tasks {
		require.NoError(t, task.Validate())
		assert.Equal(t, g.ID, *task.GoalID)
	}
	assert.Equal(t, 0, g.Progress)
}

func TestSessionEmptyInputDoesNotAdvance(t *testing.T) {
	s := NewSession()
	_, err := s.Advance("   ", time.Now())
	assert.ErrorIs(t, err, ErrEmptyInput)
	assert.Equal(t, StepGoal, s.Step)
	assert.Empty(t, s.Draft.Goal)
}

func TestUnparseableTargetFallsBack(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s := &Session{Step: StepTarget, Draft: Draft{Goal: "Be calmer", Category: CategoryGeneral}}

	_, err := s.Advance("whenever", now)
	require.NoError(t, err)
	assert.Nil(t, s.Draft.TargetDate)
	assert.Equal(t, "whenever", s.Draft.TargetText)

	g := s.Draft.ToGoal("u", now)
	assert.Equal(t, "2024-03-31", g.EndDate.Format(dateLayout))
}

func TestPastTargetFallsBack(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s := &Session{Step: StepTarget, Draft: Draft{Goal: "Run a 10k", Category: CategoryFitness}}

	_, err := s.Advance("2024-01-01", now)
	require.NoError(t, err)
	assert.Nil(t, s.Draft.TargetDate)
	assert.Equal(t, "2024-01-01", s.Draft.TargetText)

	_, err = s.Advance("5k\n10k", now)
	require.NoError(t, err)
	for _, m := range s.Draft.Milestones {
		assert.False(t, m.Date.Before(startOfDay(now)), m.Title)
	}

	g := s.Draft.ToGoal("u", now)
	assert.Equal(t, "2025-08-30", g.EndDate.Format(dateLayout))
	assert.False(t, g.EndDate.Before(g.StartDate))
}

func TestToGoalIgnoresStalePastTarget(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	past := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	g := Draft{Goal: "Read more", TargetDate: &past}.ToGoal("u", now)
	assert.Equal(t, "2025-08-30", g.EndDate.Format(dateLayout))
}
