package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"tandem/internal/model"
	"tandem/internal/service/community"
)

type CommunityService interface {
	ListCommunities(ctx context.Context) ([]model.Community, error)
	Get(ctx context.Context, id int64) (*model.Community, error)
	Create(ctx context.Context, name, description, color string) (*model.Community, error)
	Join(ctx context.Context, userID string, communityID int64) error
	Leave(ctx context.Context, userID string, communityID int64) error
	ListPosts(ctx context.Context, communityID int64, viewerID string) ([]model.Post, error)
	CreatePost(ctx context.Context, userID string, communityID int64, content, imageURL string) (*model.Post, error)
	DeletePost(ctx context.Context, userID, role string, postID int64) error
	LikePost(ctx context.Context, userID string, postID int64) (*model.Post, error)
	UnlikePost(ctx context.Context, userID string, postID int64) (*model.Post, error)
	ListComments(ctx context.Context, postID int64) ([]model.Comment, error)
	AddComment(ctx context.Context, userID string, postID int64, content string) (*model.Comment, error)
}

// Notifier hands out per-community change streams; see community.Hub.
type Notifier interface {
	Subscribe(communityID int64) (<-chan community.Notice, func())
}

const sseHeartbeat = 30 * time.Second

type CommunityHandler struct {
	service   CommunityService
	notifier  Notifier
	heartbeat time.Duration
}

func NewCommunityHandler(service CommunityService, notifier Notifier) *CommunityHandler {
	return &CommunityHandler{service: service, notifier: notifier, heartbeat: sseHeartbeat}
}

func (h *CommunityHandler) ListCommunities(c *gin.Context) {
	list, err := h.service.ListCommunities(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	if list == nil {
		list = []model.Community{}
	}
	c.JSON(http.StatusOK, gin.H{"communities": list})
}

func (h *CommunityHandler) GetCommunity(c *gin.Context) {
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}
	cm, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, cm)
}

type createCommunityRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Color       string `json:"color"`
}

func (h *CommunityHandler) CreateCommunity(c *gin.Context) {
	var req createCommunityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	cm, err := h.service.Create(c.Request.Context(), req.Name, req.Description, req.Color)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, cm)
}

func (h *CommunityHandler) Join(c *gin.Context) {
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}
	if err := h.service.Join(c.Request.Context(), currentUser(c), id); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *CommunityHandler) Leave(c *gin.Context) {
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}
	if err := h.service.Leave(c.Request.Context(), currentUser(c), id); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *CommunityHandler) ListPosts(c *gin.Context) {
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}
	posts, err := h.service.ListPosts(c.Request.Context(), id, currentUser(c))
	if err != nil {
		abortWithError(c, err)
		return
	}
	if posts == nil {
		posts = []model.Post{}
	}
	c.JSON(http.StatusOK, gin.H{"posts": posts})
}

type createPostRequest struct {
	Content  string `json:"content"`
	ImageURL string `json:"image_url"`
}

func (h *CommunityHandler) CreatePost(c *gin.Context) {
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}
	var req createPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	p, err := h.service.CreatePost(c.Request.Context(), currentUser(c), id, req.Content, req.ImageURL)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (h *CommunityHandler) DeletePost(c *gin.Context) {
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}
	if err := h.service.DeletePost(c.Request.Context(), currentUser(c), currentRole(c), id); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *CommunityHandler) LikePost(c *gin.Context) {
	h.changeLike(c, h.service.LikePost)
}

func (h *CommunityHandler) UnlikePost(c *gin.Context) {
	h.changeLike(c, h.service.UnlikePost)
}

func (h *CommunityHandler) changeLike(c *gin.Context, fn func(context.Context, string, int64) (*model.Post, error)) {
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}
	p, err := fn(c.Request.Context(), currentUser(c), id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *CommunityHandler) ListComments(c *gin.Context) {
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}
	list, err := h.service.ListComments(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	if list == nil {
		list = []model.Comment{}
	}
	c.JSON(http.StatusOK, gin.H{"comments": list})
}

type commentRequest struct {
	Content string `json:"content"`
}

func (h *CommunityHandler) AddComment(c *gin.Context) {
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}
	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	cm, err := h.service.AddComment(c.Request.Context(), currentUser(c), id, req.Content)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, cm)
}

// Events streams "refresh" notices for one community over SSE until the
// client goes away. Clients re-fetch the feed on each notice.
func (h *CommunityHandler) Events(c *gin.Context) {
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}
	if _, err := h.service.Get(c.Request.Context(), id); err != nil {
		abortWithError(c, err)
		return
	}

	notices, cancel := h.notifier.Subscribe(id)
	defer cancel()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.SSEvent("ready", gin.H{"community_id": id})
	c.Writer.Flush()

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	done := c.Request.Context().Done()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-done:
			return false
		case n, ok := <-notices:
			if !ok {
				return false
			}
			c.SSEvent("refresh", n)
			return true
		case <-heartbeat.C:
			_, err := fmt.Fprint(w, ": heartbeat\n\n")
			return err == nil
		}
	})
}
