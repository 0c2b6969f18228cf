package model

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrMalformedTask = errors.New("malformed task")
	ErrInvalidInput  = errors.New("invalid input")
	ErrNotMember     = errors.New("not a community member")
	ErrNotAuthor     = errors.New("not the author")
)
