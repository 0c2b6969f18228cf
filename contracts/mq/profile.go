package mq

import "time"

type ProfileUpsertedPayload struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	AvatarURL string    `json:"avatar_url"`
	UpdatedAt time.Time `json:"updated_at"`
	TraceID   string    `json:"trace_id,omitempty"`
}

type ProfileDeletedPayload struct {
	UserID    string    `json:"user_id"`
	DeletedAt time.Time `json:"deleted_at"`
	TraceID   string    `json:"trace_id,omitempty"`
}
