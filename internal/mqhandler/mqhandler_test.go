package mqhandler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tandem/internal/model"
	"tandem/internal/store"
)

type parked struct {
	key   string
	body  string
	cause string
}

type fakeDLQ struct {
	out  []parked
	fail bool
}

func (d *fakeDLQ) PublishToDLQ(_ context.Context, key string, payload []byte, cause string) error {
	if d.fail {
		return errors.New("broker down")
	}
	d.out = append(d.out, parked{key: key, body: string(payload), cause: cause})
	return nil
}

func TestGuardAcksSuccess(t *testing.T) {
	dlq := &fakeDLQ{}
	g := NewGuard("test", "goal.changed", nil, dlq, zap.NewNop())
	h := g.Wrap(func(context.Context, json.RawMessage) error { return nil })

	assert.NoError(t, h(context.Background(), json.RawMessage(`{}`)))
	assert.Empty(t, dlq.out)
}

func TestGuardRequeuesRetryable(t *testing.T) {
	dlq := &fakeDLQ{}
	g := NewGuard("test", "goal.changed", nil, dlq, zap.NewNop())
	connErr := &pgconn.PgError{Code: "08006"}
	h := g.Wrap(func(context.Context, json.RawMessage) error { return connErr })

	// without Redis every attempt counts as the first, so it keeps requeueing
	assert.ErrorIs(t, h(context.Background(), json.RawMessage(`{"user_id":"u1"}`)), connErr)
	assert.Empty(t, dlq.out)
}

func TestGuardDeadLettersPermanent(t *testing.T) {
	dlq := &fakeDLQ{}
	g := NewGuard("test", "goal.changed", nil, dlq, zap.NewNop())
	h := g.Wrap(func(_ context.Context, raw json.RawMessage) error {
		var v map[string]any
		return json.Unmarshal(raw, &v)
	})

	assert.NoError(t, h(context.Background(), json.RawMessage(`{not json`)))
	require.Len(t, dlq.out, 1)
	assert.Equal(t, "goal.changed", dlq.out[0].key)
	assert.Equal(t, `{not json`, dlq.out[0].body)
	assert.Contains(t, dlq.out[0].cause, "json_decode_error")
}

func TestGuardRequeuesWhenDLQFails(t *testing.T) {
	dlq := &fakeDLQ{fail: true}
	g := NewGuard("test", "goal.changed", nil, dlq, zap.NewNop())
	h := g.Wrap(func(context.Context, json.RawMessage) error { return errors.New("bad state") })

	assert.Error(t, h(context.Background(), json.RawMessage(`{}`)))
}

func TestBodyKeyStable(t *testing.T) {
	assert.Equal(t, bodyKey(json.RawMessage(`{"a":1}`)), bodyKey(json.RawMessage(`{"a":1}`)))
	assert.NotEqual(t, bodyKey(json.RawMessage(`{"a":1}`)), bodyKey(json.RawMessage(`{"a":2}`)))
}

func TestGoalEventsHandler(t *testing.T) {
	cache := store.NewGoalStore(nil, time.Minute, zap.NewNop())
	calls := 0
	var failWith error
	load := func(_ context.Context, userID string) ([]model.Goal, error) {
		calls++
		if failWith != nil {
			return nil, failWith
		}
		return []model.Goal{{Title: "Run", UserID: userID}}, nil
	}
	h := NewGoalEventsHandler(cache, load, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, h.Handle(ctx, json.RawMessage(`{"goal_id":"g1","user_id":"u1","progress":50}`)))
	assert.Equal(t, 1, calls)
	got, ok := cache.Snapshot(ctx, "u1")
	require.True(t, ok)
	assert.Equal(t, "Run", got[0].Title)

	failWith = fmt.Errorf("list goals: %w", &pgconn.PgError{Code: "08006"})
	assert.Error(t, h.Handle(ctx, json.RawMessage(`{"user_id":"u1"}`)))
	_, ok = cache.Snapshot(ctx, "u1")
	assert.False(t, ok)

	assert.Error(t, h.Handle(ctx, json.RawMessage(`{"goal_id":"g1"}`)))
	assert.Error(t, h.Handle(ctx, json.RawMessage(`[]`)))
}

type fakeFeeds struct {
	dropped []int64
}

func (f *fakeFeeds) InvalidateFeed(_ context.Context, id int64) {
	f.dropped = append(f.dropped, id)
}

type fakeAuthors map[string][]int64

func (f fakeAuthors) CommunitiesByAuthor(_ context.Context, userID string) ([]int64, error) {
	return f[userID], nil
}

func TestFeedHandler(t *testing.T) {
	feeds := &fakeFeeds{}
	h := NewFeedHandler(feeds, fakeAuthors{"u1": {1, 3}}, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, h.HandlePostChanged(ctx, json.RawMessage(`{"community_id":2,"post_id":9,"action":"post_liked"}`)))
	assert.Equal(t, []int64{2}, feeds.dropped)
	assert.Error(t, h.HandlePostChanged(ctx, json.RawMessage(`{"post_id":9}`)))

	require.NoError(t, h.HandleProfileChanged(ctx, json.RawMessage(`{"user_id":"u1","full_name":"Ada"}`)))
	assert.Equal(t, []int64{2, 1, 3}, feeds.dropped)

	require.NoError(t, h.HandleProfileChanged(ctx, json.RawMessage(`{"user_id":"nobody"}`)))
	assert.Len(t, feeds.dropped, 3)
}
