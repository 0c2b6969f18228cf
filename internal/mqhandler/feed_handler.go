package mqhandler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	mqcontracts "tandem/contracts/mq"
	"tandem/pkg/util"
)

type FeedInvalidator interface {
	InvalidateFeed(ctx context.Context, communityID int64)
}

type AuthorIndex interface {
	CommunitiesByAuthor(ctx context.Context, userID string) ([]int64, error)
}

// FeedHandler drops cached community feeds when posts or their authors'
// profiles change.
type FeedHandler struct {
	feeds   FeedInvalidator
	authors AuthorIndex
	logger  *zap.Logger
}

func NewFeedHandler(feeds FeedInvalidator, authors AuthorIndex, logger *zap.Logger) *FeedHandler {
	return &FeedHandler{feeds: feeds, authors: authors, logger: logger}
}

func (h *FeedHandler) HandlePostChanged(ctx context.Context, raw json.RawMessage) error {
	var p mqcontracts.PostChangedPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return fmt.Errorf("decode post event: %w", err)
	}
	if p.CommunityID == 0 {
		return &util.Permanent{Err: errors.New("post event without community_id")}
	}
	h.feeds.InvalidateFeed(ctx, p.CommunityID)
	h.logger.Debug("Feed invalidated",
		zap.Int64("community_id", p.CommunityID),
		zap.Int64("post_id", p.PostID),
		zap.String("action", p.Action),
	)
	return nil
}

// HandleProfileChanged serves profile.upserted and profile.deleted: feeds
// embed author names and avatars.
func (h *FeedHandler) HandleProfileChanged(ctx context.Context, raw json.RawMessage) error {
	var p struct {
		UserID string `json:"user_id"`
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return fmt.Errorf("decode profile event: %w", err)
	}
	if p.UserID == "" {
		return &util.Permanent{Err: errors.New("profile event without user_id")}
	}

	ids, err := h.authors.CommunitiesByAuthor(ctx, p.UserID)
	if err != nil {
		return fmt.Errorf("communities of %s: %w", p.UserID, err)
	}
	for _, id := range ids {
		h.feeds.InvalidateFeed(ctx, id)
	}
	h.logger.Info("Author feeds invalidated",
		zap.String("user_id", p.UserID),
		zap.Int("communities", len(ids)),
	)
	return nil
}
