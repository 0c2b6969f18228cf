// Package dialogue is the scripted five-step goal-creation conversation.
package dialogue

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

type Step int

const (
	StepGoal Step = iota + 1
	StepMotivation
	StepTarget
	StepMilestones
	StepTasks
	StepDone
)

var (
	ErrEmptyInput  = errors.New("empty input")
	ErrSessionDone = errors.New("dialogue already finished")
)

// Apology replaces any reply that could not be produced.
const Apology = "I apologize, but I'm having trouble processing that. Could you try rephrasing it?"

const greeting = `Hi there! 👋

I'm here to help you create a meaningful and achievable goal. Let's make it specific, measurable, and break it down into actionable steps.

What's one goal you'd like to work towards?`

// Session is the serialisable state of one conversation.
type Session struct {
	Step  Step  `json:"step"`
	Draft Draft `json:"draft"`
}

func NewSession() *Session {
	return &Session{Step: StepGoal}
}

func (s *Session) Greeting() string { return greeting }

func (s *Session) Done() bool { return s.Step >= StepDone }

type replyFunc func(d *Draft, input string, now time.Time) (string, error)

// replies holds one generator per step. Each records the step's answer in
// the draft and returns the prompt for the next step.
var replies = map[Step]replyFunc{
	StepGoal:       replyGoal,
	StepMotivation: replyMotivation,
	StepTarget:     replyTarget,
	StepMilestones: replyMilestones,
	StepTasks:      replyTasks,
}

// Advance feeds one user message into the conversation. On error the
// session is left untouched.
func (s *Session) Advance(input string, now time.Time) (string, error) {
	if s.Done() {
		return "", ErrSessionDone
	}
	input = strings.TrimSpace(input)
	if input == "" {
		return "", ErrEmptyInput
	}
	gen, ok := replies[s.Step]
	if !ok {
		return "", fmt.Errorf("no reply for step %d", s.Step)
	}

	draft := s.Draft.clone()
	reply, err := gen(&draft, input, now)
	if err != nil {
		return "", fmt.Errorf("step %d: %w", s.Step, err)
	}
	s.Draft = draft
	s.Step++
	return reply, nil
}

func (d Draft) clone() Draft {
	c := d
	c.Milestones = append([]DraftMilestone(nil), d.Milestones...)
	c.Daily = append([]string(nil), d.Daily...)
	c.Weekly = append([]string(nil), d.Weekly...)
	return c
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

func replyGoal(d *Draft, input string, _ time.Time) (string, error) {
	d.Goal = capitalize(input)
	d.Category = Classify(d.Goal)
	return fmt.Sprintf(`"%s" is a fantastic goal! 🌟

Understanding your motivation is crucial for staying committed. Tell me:

• Why is this goal important to you personally?
• What inspired you to choose it?
• How will achieving it impact your life?`, d.Goal), nil
}

func replyMotivation(d *Draft, input string, _ time.Time) (string, error) {
	d.Why = input
	pb := PlaybookFor(d.Category)
	return fmt.Sprintf(`Your motivation is inspiring! Now let's set a target date for %s.

Consider:
%s

When would you like to achieve this goal? Pick a specific date that feels both ambitious and realistic.`, d.Goal, bulleted(pb.Timeframe)), nil
}

func replyTarget(d *Draft, input string, now time.Time) (string, error) {
	d.TargetText = input
	d.TargetDate = nil
	// a date already behind us is treated like one we could not read
	if t, ok := ParseTargetDate(input, now); ok && !t.Before(startOfDay(now)) {
		d.TargetDate = &t
	}
	pb := PlaybookFor(d.Category)
	return fmt.Sprintf(`Great! Let's break down your journey into major milestones. These will be your key checkpoints along the way.

Here's a suggested progression:
%s

Would these milestones work for you? Feel free to modify them or suggest your own, one per line. Add a date in parentheses (YYYY-MM-DD) to pin one.`, numbered(pb.Milestones)), nil
}

func replyMilestones(d *Draft, input string, now time.Time) (string, error) {
	d.Milestones = ParseMilestoneInput(input, now, d.target(now))
	pb := PlaybookFor(d.Category)
	return fmt.Sprintf(`Now for the most important part - let's create your action plan!

What specific tasks would you need to do:

Daily (e.g., practice for 30 minutes):
%s

Weekly (e.g., review progress, longer sessions):
%s

List the tasks you'll commit to, separating daily and weekly tasks.`, bulleted(pb.Daily), bulleted(pb.Weekly)), nil
}

func replyTasks(d *Draft, input string, _ time.Time) (string, error) {
	d.Daily, d.Weekly = ParseTaskInput(input)
	return d.Summary(), nil
}
