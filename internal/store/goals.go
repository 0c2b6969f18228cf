package store

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"tandem/internal/model"
)

// Loader fetches a user's full goal tree from the database.
type Loader func(ctx context.Context, userID string) ([]model.Goal, error)

// GoalStore is the per-user goal slice shared by API replicas.
type GoalStore struct {
	cache *JSONCache
}

func NewGoalStore(rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *GoalStore {
	return &GoalStore{cache: NewJSONCache("goals", rdb, ttl, logger)}
}

func goalsKey(userID string) string {
	return "goals:" + userID
}

// Refresh reloads the slice for userID. The cached slice is replaced only
// when the loader succeeds.
func (s *GoalStore) Refresh(ctx context.Context, userID string, load Loader) ([]model.Goal, error) {
	goals, err := load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if goals == nil {
		goals = []model.Goal{}
	}
	s.cache.Set(ctx, goalsKey(userID), goals)
	return goals, nil
}

// Snapshot returns a copy of the cached slice, or false when nothing is cached.
func (s *GoalStore) Snapshot(ctx context.Context, userID string) ([]model.Goal, bool) {
	var goals []model.Goal
	if !s.cache.Get(ctx, goalsKey(userID), &goals) {
		return nil, false
	}
	return goals, true
}

// Load serves the cached slice or falls through to Refresh.
func (s *GoalStore) Load(ctx context.Context, userID string, load Loader) ([]model.Goal, error) {
	if goals, ok := s.Snapshot(ctx, userID); ok {
		return goals, nil
	}
	return s.Refresh(ctx, userID, load)
}

func (s *GoalStore) Invalidate(ctx context.Context, userID string) {
	s.cache.Delete(ctx, goalsKey(userID))
}
