package mq

import "time"

// Actions carried by PostChangedPayload.
const (
	PostCreated   = "created"
	PostDeleted   = "deleted"
	PostLiked     = "liked"
	PostUnliked   = "unliked"
	PostCommented = "commented"
)

type PostChangedPayload struct {
	CommunityID int64     `json:"community_id"`
	PostID      int64     `json:"post_id"`
	UserID      string    `json:"user_id"`
	Action      string    `json:"action"`
	ChangedAt   time.Time `json:"changed_at"`
	TraceID     string    `json:"trace_id,omitempty"`
}
