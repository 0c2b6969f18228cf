// Package community serves communities, their feeds and the live refresh
// notices streamed to connected clients.
package community

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"tandem/internal/model"
	"tandem/pkg/logger"
	"tandem/pkg/rbac"
)

const (
	feedLimit        = 50
	maxContentLength = 2000
)

type CommunityRepository interface {
	List(ctx context.Context) ([]model.Community, error)
	FindByID(ctx context.Context, id int64) (*model.Community, error)
	Create(ctx context.Context, c *model.Community) error
	IsMember(ctx context.Context, communityID int64, userID string) (bool, error)
	Join(ctx context.Context, communityID int64, userID string) error
	Leave(ctx context.Context, communityID int64, userID string) error
}

type PostRepository interface {
	ListByCommunity(ctx context.Context, communityID int64, limit int) ([]model.Post, error)
	LikedPostIDs(ctx context.Context, userID string, postIDs []int64) (map[int64]bool, error)
	FindByID(ctx context.Context, id int64) (*model.Post, error)
	Insert(ctx context.Context, p *model.Post) error
	Delete(ctx context.Context, p *model.Post) error
	Like(ctx context.Context, p *model.Post, userID string) error
	Unlike(ctx context.Context, p *model.Post, userID string) error
	ListComments(ctx context.Context, postID int64) ([]model.Comment, error)
	InsertComment(ctx context.Context, p *model.Post, c *model.Comment) error
}

// FeedCache holds the viewer-independent part of a community feed.
type FeedCache interface {
	Get(ctx context.Context, key string, out any) bool
	Set(ctx context.Context, key string, value any)
	Delete(ctx context.Context, key string)
}

func FeedKey(communityID int64) string {
	return fmt.Sprintf("feed:%d", communityID)
}

type Service struct {
	communities CommunityRepository
	posts       PostRepository
	feeds       FeedCache
	logger      *zap.Logger
}

func NewService(communities CommunityRepository, posts PostRepository, feeds FeedCache, logger *zap.Logger) *Service {
	return &Service{
		communities: communities,
		posts:       posts,
		feeds:       feeds,
		logger:      logger,
	}
}

func (s *Service) ListCommunities(ctx context.Context) ([]model.Community, error) {
	out, err := s.communities.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list communities: %w", err)
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*model.Community, error) {
	c, err := s.communities.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get community %d: %w", id, err)
	}
	return c, nil
}

func (s *Service) Create(ctx context.Context, name, description, color string) (*model.Community, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", model.ErrInvalidInput)
	}
	c := &model.Community{Name: name, Description: strings.TrimSpace(description), Color: color}
	if err := s.communities.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("create community: %w", err)
	}
	return c, nil
}

func (s *Service) Join(ctx context.Context, userID string, communityID int64) error {
	if err := s.communities.Join(ctx, communityID, userID); err != nil {
		return fmt.Errorf("join community %d: %w", communityID, err)
	}
	return nil
}

func (s *Service) Leave(ctx context.Context, userID string, communityID int64) error {
	if err := s.communities.Leave(ctx, communityID, userID); err != nil {
		return fmt.Errorf("leave community %d: %w", communityID, err)
	}
	return nil
}

// ListPosts returns the feed newest first, with LikedByMe set for viewerID.
func (s *Service) ListPosts(ctx context.Context, communityID int64, viewerID string) ([]model.Post, error) {
	if _, err := s.communities.FindByID(ctx, communityID); err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}

	var feed []model.Post
	if !s.feeds.Get(ctx, FeedKey(communityID), &feed) {
		var err error
		feed, err = s.posts.ListByCommunity(ctx, communityID, feedLimit)
		if err != nil {
			return nil, fmt.Errorf("list posts: %w", err)
		}
		s.feeds.Set(ctx, FeedKey(communityID), feed)
	}

	ids := make([]int64, len(feed))
	for i, p := range feed {
		ids[i] = p.ID
	}
	liked, err := s.posts.LikedPostIDs(ctx, viewerID, ids)
	if err != nil {
		return nil, fmt.Errorf("list likes: %w", err)
	}

	out := make([]model.Post, len(feed))
	for i, p := range feed {
		p.LikedByMe = liked[p.ID]
		out[i] = p
	}
	return out, nil
}

func validateContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", fmt.Errorf("%w: content is required", model.ErrInvalidInput)
	}
	if utf8.RuneCountInString(content) > maxContentLength {
		return "", fmt.Errorf("%w: content exceeds %d characters", model.ErrInvalidInput, maxContentLength)
	}
	return content, nil
}

// CreatePost is limited to members of the community.
func (s *Service) CreatePost(ctx context.Context, userID string, communityID int64, content, imageURL string) (*model.Post, error) {
	content, err := validateContent(content)
	if err != nil {
		return nil, err
	}
	if _, err := s.communities.FindByID(ctx, communityID); err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}
	member, err := s.communities.IsMember(ctx, communityID, userID)
	if err != nil {
		return nil, fmt.Errorf("check membership: %w", err)
	}
	if !member {
		return nil, model.ErrNotMember
	}

	p := &model.Post{CommunityID: communityID, UserID: userID, Content: content, ImageURL: strings.TrimSpace(imageURL)}
	if err := s.posts.Insert(ctx, p); err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}
	s.InvalidateFeed(ctx, communityID)

	logger.WithTrace(ctx, s.logger).Info("Post created",
		zap.Int64("post_id", p.ID),
		zap.Int64("community_id", communityID),
	)
	return p, nil
}

// DeletePost is limited to the author, or a role holding post:delete_any.
func (s *Service) DeletePost(ctx context.Context, userID, role string, postID int64) error {
	p, err := s.posts.FindByID(ctx, postID)
	if err != nil {
		return fmt.Errorf("delete post %d: %w", postID, err)
	}
	if p.UserID != userID && !rbac.HasPermission(role, rbac.PermissionPostDeleteAny) {
		return model.ErrNotAuthor
	}
	if err := s.posts.Delete(ctx, p); err != nil {
		return fmt.Errorf("delete post %d: %w", postID, err)
	}
	s.InvalidateFeed(ctx, p.CommunityID)
	return nil
}

func (s *Service) LikePost(ctx context.Context, userID string, postID int64) (*model.Post, error) {
	return s.changeLike(ctx, userID, postID, true)
}

func (s *Service) UnlikePost(ctx context.Context, userID string, postID int64) (*model.Post, error) {
	return s.changeLike(ctx, userID, postID, false)
}

func (s *Service) changeLike(ctx context.Context, userID string, postID int64, like bool) (*model.Post, error) {
	p, err := s.posts.FindByID(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("like post %d: %w", postID, err)
	}
	if like {
		err = s.posts.Like(ctx, p, userID)
	} else {
		err = s.posts.Unlike(ctx, p, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("like post %d: %w", postID, err)
	}
	p.LikedByMe = like
	s.InvalidateFeed(ctx, p.CommunityID)
	return p, nil
}

func (s *Service) ListComments(ctx context.Context, postID int64) ([]model.Comment, error) {
	if _, err := s.posts.FindByID(ctx, postID); err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	out, err := s.posts.ListComments(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	return out, nil
}

func (s *Service) AddComment(ctx context.Context, userID string, postID int64, content string) (*model.Comment, error) {
	content, err := validateContent(content)
	if err != nil {
		return nil, err
	}
	p, err := s.posts.FindByID(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("add comment: %w", err)
	}
	c := &model.Comment{PostID: postID, UserID: userID, Content: content}
	if err := s.posts.InsertComment(ctx, p, c); err != nil {
		return nil, fmt.Errorf("add comment: %w", err)
	}
	s.InvalidateFeed(ctx, p.CommunityID)
	return c, nil
}

// InvalidateFeed drops the cached feed; the next read rebuilds it.
func (s *Service) InvalidateFeed(ctx context.Context, communityID int64) {
	s.feeds.Delete(ctx, FeedKey(communityID))
}
