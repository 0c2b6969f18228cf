package community

import (
	"context"
	"encoding/json"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	mqcontracts "tandem/contracts/mq"
	"tandem/internal/model"
	"tandem/internal/store"
	"tandem/pkg/rbac"
)

type fakeCommunities struct {
	items   map[int64]*model.Community
	members map[int64]map[string]bool
}

func newFakeCommunities() *fakeCommunities {
	return &fakeCommunities{
		items: map[int64]*model.Community{
			1: {ID: 1, Name: "Runners", MemberCount: 3},
			2: {ID: 2, Name: "Readers", MemberCount: 7},
		},
		members: map[int64]map[string]bool{1: {}, 2: {}},
	}
}

func (f *fakeCommunities) List(context.Context) ([]model.Community, error) {
	out := []model.Community{}
	for _, c := range f.items {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MemberCount > out[j].MemberCount })
	return out, nil
}

func (f *fakeCommunities) FindByID(_ context.Context, id int64) (*model.Community, error) {
	c, ok := f.items[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeCommunities) Create(_ context.Context, c *model.Community) error {
	c.ID = int64(len(f.items) + 1)
	f.items[c.ID] = c
	f.members[c.ID] = map[string]bool{}
	return nil
}

func (f *fakeCommunities) IsMember(_ context.Context, id int64, userID string) (bool, error) {
	return f.members[id][userID], nil
}

func (f *fakeCommunities) Join(_ context.Context, id int64, userID string) error {
	c, ok := f.items[id]
	if !ok {
		return model.ErrNotFound
	}
	if !f.members[id][userID] {
		f.members[id][userID] = true
		c.MemberCount++
	}
	return nil
}

func (f *fakeCommunities) Leave(_ context.Context, id int64, userID string) error {
	c, ok := f.items[id]
	if !ok {
		return model.ErrNotFound
	}
	if f.members[id][userID] {
		delete(f.members[id], userID)
		c.MemberCount--
	}
	return nil
}

type fakePosts struct {
	posts    []*model.Post
	likes    map[int64]map[string]bool
	comments []model.Comment
	listed   int
}

func (f *fakePosts) ListByCommunity(_ context.Context, communityID int64, limit int) ([]model.Post, error) {
	f.listed++
	out := []model.Post{}
	for i := len(f.posts) - 1; i >= 0 && len(out) < limit; i-- {
		if f.posts[i].CommunityID == communityID {
			out = append(out, *f.posts[i])
		}
	}
	return out, nil
}

func (f *fakePosts) LikedPostIDs(_ context.Context, userID string, ids []int64) (map[int64]bool, error) {
	out := map[int64]bool{}
	for _, id := range ids {
		if f.likes[id][userID] {
			out[id] = true
		}
	}
	return out, nil
}

func (f *fakePosts) FindByID(_ context.Context, id int64) (*model.Post, error) {
	for _, p := range f.posts {
		if p.ID == id {
			cp := *p
			return &cp, nil
		}
	}
	return nil, model.ErrNotFound
}

func (f *fakePosts) Insert(_ context.Context, p *model.Post) error {
	p.ID = int64(len(f.posts) + 1)
	p.CreatedAt = time.Now()
	cp := *p
	f.posts = append(f.posts, &cp)
	return nil
}

func (f *fakePosts) Delete(_ context.Context, p *model.Post) error {
	for i, existing := range f.posts {
		if existing.ID == p.ID {
			f.posts = append(f.posts[:i], f.posts[i+1:]...)
			return nil
		}
	}
	return model.ErrNotFound
}

func (f *fakePosts) stored(id int64) *model.Post {
	for _, p := range f.posts {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (f *fakePosts) Like(_ context.Context, p *model.Post, userID string) error {
	if f.likes[p.ID] == nil {
		f.likes[p.ID] = map[string]bool{}
	}
	if !f.likes[p.ID][userID] {
		f.likes[p.ID][userID] = true
		f.stored(p.ID).LikeCount++
	}
	p.LikeCount = f.stored(p.ID).LikeCount
	return nil
}

func (f *fakePosts) Unlike(_ context.Context, p *model.Post, userID string) error {
	if f.likes[p.ID][userID] {
		delete(f.likes[p.ID], userID)
		f.stored(p.ID).LikeCount--
	}
	p.LikeCount = f.stored(p.ID).LikeCount
	return nil
}

func (f *fakePosts) ListComments(_ context.Context, postID int64) ([]model.Comment, error) {
	out := []model.Comment{}
	for _, c := range f.comments {
		if c.PostID == postID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakePosts) InsertComment(_ context.Context, p *model.Post, c *model.Comment) error {
	c.ID = int64(len(f.comments) + 1)
	f.comments = append(f.comments, *c)
	f.stored(p.ID).CommentCount++
	p.CommentCount = f.stored(p.ID).CommentCount
	return nil
}

func newTestService() (*Service, *fakeCommunities, *fakePosts) {
	communities := newFakeCommunities()
	posts := &fakePosts{likes: map[int64]map[string]bool{}}
	feeds := store.NewJSONCache("feed", nil, time.Minute, zap.NewNop())
	return NewService(communities, posts, feeds, zap.NewNop()), communities, posts
}

func TestListCommunitiesByMemberCount(t *testing.T) {
	svc, _, _ := newTestService()
	out, err := svc.ListCommunities(context.Background())
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "Readers", out[0].Name)
}

func TestJoinIsIdempotent(t *testing.T) {
	svc, communities, _ := newTestService()
	ctx := context.Background()

	require.NoError(t, svc.Join(ctx, "alice", 1))
	require.NoError(t, svc.Join(ctx, "alice", 1))
	assert.Equal(t, 4, communities.items[1].MemberCount)

	require.NoError(t, svc.Leave(ctx, "alice", 1))
	assert.Equal(t, 3, communities.items[1].MemberCount)

	assert.ErrorIs(t, svc.Join(ctx, "alice", 99), model.ErrNotFound)
}

func TestCreatePostRequiresMembership(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	_, err := svc.CreatePost(ctx, "alice", 1, "first run done!", "")
	assert.ErrorIs(t, err, model.ErrNotMember)

	require.NoError(t, svc.Join(ctx, "alice", 1))
	_, err = svc.CreatePost(ctx, "alice", 1, "   ", "")
	assert.ErrorIs(t, err, model.ErrInvalidInput)

	p, err := svc.CreatePost(ctx, "alice", 1, "first run done!", "")
	require.NoError(t, err)
	assert.NotZero(t, p.ID)
}

func TestFeedIsCachedAndInvalidatedOnWrite(t *testing.T) {
	svc, _, posts := newTestService()
	ctx := context.Background()
	require.NoError(t, svc.Join(ctx, "alice", 1))

	_, err := svc.CreatePost(ctx, "alice", 1, "one", "")
	require.NoError(t, err)

	feed, err := svc.ListPosts(ctx, 1, "bob")
	require.NoError(t, err)
	require.Len(t, feed, 1)
	_, err = svc.ListPosts(ctx, 1, "bob")
	require.NoError(t, err)
	assert.Equal(t, 1, posts.listed)

	_, err = svc.CreatePost(ctx, "alice", 1, "two", "")
	require.NoError(t, err)
	feed, err = svc.ListPosts(ctx, 1, "bob")
	require.NoError(t, err)
	assert.Equal(t, 2, posts.listed)
	require.Len(t, feed, 2)
	assert.Equal(t, "two", feed[0].Content)
}

func TestLikedByMeIsPerViewer(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	require.NoError(t, svc.Join(ctx, "alice", 1))
	p, err := svc.CreatePost(ctx, "alice", 1, "hello", "")
	require.NoError(t, err)

	liked, err := svc.LikePost(ctx, "bob", p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, liked.LikeCount)
	liked, err = svc.LikePost(ctx, "bob", p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, liked.LikeCount)

	bobView, err := svc.ListPosts(ctx, 1, "bob")
	require.NoError(t, err)
	assert.True(t, bobView[0].LikedByMe)

	aliceView, err := svc.ListPosts(ctx, 1, "alice")
	require.NoError(t, err)
	assert.False(t, aliceView[0].LikedByMe)
	assert.Equal(t, 1, aliceView[0].LikeCount)

	unliked, err := svc.UnlikePost(ctx, "bob", p.ID)
	require.NoError(t, err)
	assert.Zero(t, unliked.LikeCount)
}

func TestDeletePostAuthorOrModerator(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	require.NoError(t, svc.Join(ctx, "alice", 1))

	p1, err := svc.CreatePost(ctx, "alice", 1, "one", "")
	require.NoError(t, err)
	p2, err := svc.CreatePost(ctx, "alice", 1, "two", "")
	require.NoError(t, err)

	assert.ErrorIs(t, svc.DeletePost(ctx, "bob", rbac.RoleUser, p1.ID), model.ErrNotAuthor)
	assert.NoError(t, svc.DeletePost(ctx, "alice", rbac.RoleUser, p1.ID))
	assert.NoError(t, svc.DeletePost(ctx, "mod", rbac.RoleAdmin, p2.ID))
	assert.ErrorIs(t, svc.DeletePost(ctx, "alice", rbac.RoleUser, p2.ID), model.ErrNotFound)
}

func TestComments(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	require.NoError(t, svc.Join(ctx, "alice", 1))
	p, err := svc.CreatePost(ctx, "alice", 1, "hello", "")
	require.NoError(t, err)

	_, err = svc.AddComment(ctx, "bob", p.ID, "nice!")
	require.NoError(t, err)
	_, err = svc.AddComment(ctx, "bob", 42, "nice!")
	assert.ErrorIs(t, err, model.ErrNotFound)

	comments, err := svc.ListComments(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, comments, 1)

	feed, err := svc.ListPosts(ctx, 1, "bob")
	require.NoError(t, err)
	assert.Equal(t, 1, feed[0].CommentCount)
}

func TestHubFanOut(t *testing.T) {
	hub := NewHub(zap.NewNop())

	a, cancelA := hub.Subscribe(1)
	b, cancelB := hub.Subscribe(1)
	other, cancelOther := hub.Subscribe(2)
	defer cancelB()
	defer cancelOther()

	raw, err := json.Marshal(mqcontracts.PostChangedPayload{CommunityID: 1, PostID: 5, Action: mqcontracts.PostLiked})
	require.NoError(t, err)
	require.NoError(t, hub.HandlePostChanged(context.Background(), raw))

	assert.Equal(t, Notice{CommunityID: 1, PostID: 5, Action: "liked"}, <-a)
	assert.Equal(t, Notice{CommunityID: 1, PostID: 5, Action: "liked"}, <-b)
	assert.Len(t, other, 0)

	cancelA()
	cancelA()
	_, open := <-a
	assert.False(t, open)
	assert.Equal(t, 1, hub.Subscribers(1))
}

func TestHubPublishDoesNotBlock(t *testing.T) {
	hub := NewHub(zap.NewNop())
	_, cancel := hub.Subscribe(1)
	defer cancel()

	for i := 0; i < subscriberBuffer+5; i++ {
		hub.Publish(Notice{CommunityID: 1})
	}
	assert.Equal(t, 0, hub.Publish(Notice{CommunityID: 1}))
}
