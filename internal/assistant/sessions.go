package assistant

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"tandem/internal/dialogue"
	"tandem/internal/store"
)

const sessionTTL = 24 * time.Hour

// SessionStore keeps onboarding sessions server-side, keyed by user.
type SessionStore struct {
	cache *store.JSONCache
}

func NewSessionStore(rdb *redis.Client, logger *zap.Logger) *SessionStore {
	return &SessionStore{cache: store.NewJSONCache("dialogue", rdb, sessionTTL, logger)}
}

func sessionKey(userID string) string {
	return "dialogue:" + userID
}

// Load returns the stored session, or a fresh one and false.
func (s *SessionStore) Load(ctx context.Context, userID string) (*dialogue.Session, bool) {
	var session dialogue.Session
	if !s.cache.Get(ctx, sessionKey(userID), &session) || session.Step < dialogue.StepGoal {
		return dialogue.NewSession(), false
	}
	return &session, true
}

func (s *SessionStore) Save(ctx context.Context, userID string, session *dialogue.Session) {
	s.cache.Set(ctx, sessionKey(userID), session)
}

func (s *SessionStore) Delete(ctx context.Context, userID string) {
	s.cache.Delete(ctx, sessionKey(userID))
}
