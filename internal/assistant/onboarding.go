package assistant

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"tandem/internal/dialogue"
	"tandem/internal/model"
	"tandem/pkg/logger"
)

var ErrDialogueNotDone = errors.New("onboarding dialogue is not finished")

// Reply is one assistant turn of the onboarding dialogue.
type Reply struct {
	Message string          `json:"message"`
	Step    dialogue.Step   `json:"step"`
	Done    bool            `json:"done"`
	Draft   *dialogue.Draft `json:"draft,omitempty"`
}

// Onboarding runs the scripted dialogue against server-side sessions.
type Onboarding struct {
	sessions *SessionStore
	now      func() time.Time
	logger   *zap.Logger
}

func NewOnboarding(sessions *SessionStore, logger *zap.Logger) *Onboarding {
	return &Onboarding{sessions: sessions, now: time.Now, logger: logger}
}

func reply(s *dialogue.Session, msg string) Reply {
	r := Reply{Message: msg, Step: s.Step, Done: s.Done()}
	if r.Done {
		d := s.Draft
		r.Draft = &d
	}
	return r
}

// Send advances the user's session with input. A message the dialogue
// cannot handle yields the apology and leaves the step unchanged.
func (o *Onboarding) Send(ctx context.Context, userID, input string) Reply {
	log := logger.WithTrace(ctx, o.logger)

	session, existed := o.sessions.Load(ctx, userID)
	if !existed {
		log.Debug("Starting onboarding session", zap.String("user_id", userID))
	}

	msg, err := session.Advance(input, o.now())
	if err != nil {
		log.Info("Onboarding step not advanced",
			zap.String("user_id", userID),
			zap.Int("step", int(session.Step)),
			zap.Error(err),
		)
		return reply(session, dialogue.Apology)
	}

	o.sessions.Save(ctx, userID, session)
	return reply(session, msg)
}

// Current returns the greeting for a new session or the state of an
// ongoing one.
func (o *Onboarding) Current(ctx context.Context, userID string) Reply {
	session, existed := o.sessions.Load(ctx, userID)
	if !existed {
		o.sessions.Save(ctx, userID, session)
	}
	return reply(session, session.Greeting())
}

// Complete materialises the finished draft as a goal and ends the session.
// The caller persists the goal.
func (o *Onboarding) Complete(ctx context.Context, userID string) (model.Goal, error) {
	session, _ := o.sessions.Load(ctx, userID)
	if !session.Done() {
		return model.Goal{}, ErrDialogueNotDone
	}
	return session.Draft.ToGoal(userID, o.now()), nil
}

func (o *Onboarding) Reset(ctx context.Context, userID string) {
	o.sessions.Delete(ctx, userID)
}
