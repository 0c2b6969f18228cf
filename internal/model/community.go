package model

import "time"

type Community struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Color       string `json:"color"`
	MemberCount int    `json:"member_count"`
	PostCount   int    `json:"post_count"`
}

type Author struct {
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
}

type Post struct {
	ID           int64     `json:"id"`
	CommunityID  int64     `json:"community_id"`
	UserID       string    `json:"user_id"`
	Author       Author    `json:"author"`
	Content      string    `json:"content"`
	ImageURL     string    `json:"image_url,omitempty"`
	LikeCount    int       `json:"likes"`
	CommentCount int       `json:"comments"`
	LikedByMe    bool      `json:"liked_by_me"` // computed per viewer, never stored
	CreatedAt    time.Time `json:"created_at"`
}

type Comment struct {
	ID         int64     `json:"id"`
	PostID     int64     `json:"post_id"`
	UserID     string    `json:"user_id"`
	AuthorName string    `json:"author_name"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
}

type Like struct {
	PostID    int64     `json:"post_id"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Profile mirrors the identity provider's view of a user.
type Profile struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	AvatarURL string    `json:"avatar_url"`
	UpdatedAt time.Time `json:"updated_at"`
}
