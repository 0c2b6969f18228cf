package goals

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"tandem/internal/model"
)

func (s *Service) ListGeneralReflections(ctx context.Context, userID string) ([]model.Reflection, error) {
	out, err := s.journal.ListGeneralReflections(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list reflections: %w", err)
	}
	return out, nil
}

// AddReflection stores a reflection; goalID nil makes it a general one.
func (s *Service) AddReflection(ctx context.Context, userID string, goalID *uuid.UUID, date time.Time, content string) (*model.Reflection, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("%w: content is required", model.ErrInvalidInput)
	}
	if date.IsZero() {
		date = time.Now()
	}
	rf := &model.Reflection{ID: uuid.New(), UserID: userID, GoalID: goalID, Date: date, Content: content}
	if err := s.journal.InsertReflection(ctx, rf); err != nil {
		return nil, fmt.Errorf("add reflection: %w", err)
	}
	s.refresh(ctx, userID)
	return rf, nil
}

func (s *Service) DeleteReflection(ctx context.Context, userID string, id uuid.UUID) error {
	if err := s.journal.DeleteReflection(ctx, userID, id); err != nil {
		return fmt.Errorf("delete reflection %s: %w", id, err)
	}
	s.refresh(ctx, userID)
	return nil
}

func (s *Service) AddResource(ctx context.Context, userID string, goalID *uuid.UUID, title, link string) (*model.Resource, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", model.ErrInvalidInput)
	}
	u, err := url.Parse(strings.TrimSpace(link))
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("%w: url must be an absolute http(s) link", model.ErrInvalidInput)
	}
	rs := &model.Resource{ID: uuid.New(), UserID: userID, GoalID: goalID, Title: title, URL: u.String()}
	if err := s.journal.InsertResource(ctx, rs); err != nil {
		return nil, fmt.Errorf("add resource: %w", err)
	}
	s.refresh(ctx, userID)
	return rs, nil
}

func (s *Service) DeleteResource(ctx context.Context, userID string, id uuid.UUID) error {
	if err := s.journal.DeleteResource(ctx, userID, id); err != nil {
		return fmt.Errorf("delete resource %s: %w", id, err)
	}
	s.refresh(ctx, userID)
	return nil
}
