package assistant

import (
	"context"
	"strings"
	"time"

	"tandem/internal/dialogue"
)

// ScriptedResponder answers with the scripted goal-creation dialogue. The
// session is rebuilt from the whole history on every call, so it keeps no
// state. Blank user turns are skipped.
type ScriptedResponder struct {
	now func() time.Time
}

func NewScriptedResponder() *ScriptedResponder {
	return &ScriptedResponder{now: time.Now}
}

func (r *ScriptedResponder) Respond(_ context.Context, history []Message, _ string) (Message, error) {
	session := dialogue.NewSession()
	reply := session.Greeting()
	now := r.now()

	for _, m := range history {
		if m.Role != RoleUser || strings.TrimSpace(m.Content) == "" {
			continue
		}
		if session.Done() {
			break
		}
		out, err := session.Advance(m.Content, now)
		if err != nil {
			return Message{}, err
		}
		reply = out
	}
	return Message{Role: RoleAssistant, Content: reply}, nil
}
