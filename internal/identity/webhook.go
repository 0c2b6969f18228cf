package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"tandem/internal/model"
)

const (
	EventUserCreated = "user.created"
	EventUserUpdated = "user.updated"
	EventUserDeleted = "user.deleted"

	dedupHandler = "identity_webhook"
)

// Event is a user lifecycle delivery from the identity provider.
type Event struct {
	Type string    `json:"type"`
	Data EventUser `json:"data"`
}

type EmailAddress struct {
	EmailAddress string `json:"email_address"`
}

type EventUser struct {
	ID             string         `json:"id"`
	EmailAddresses []EmailAddress `json:"email_addresses"`
	FirstName      string         `json:"first_name"`
	LastName       string         `json:"last_name"`
	ImageURL       string         `json:"image_url"`
}

// Profile maps the provider's user onto a profile row.
func (u EventUser) Profile(now time.Time) model.Profile {
	p := model.Profile{
		ID:        u.ID,
		FullName:  strings.TrimSpace(u.FirstName + " " + u.LastName),
		AvatarURL: u.ImageURL,
		UpdatedAt: now,
	}
	if len(u.EmailAddresses) > 0 {
		p.Email = u.EmailAddresses[0].EmailAddress
	}
	return p
}

type ProfileStore interface {
	FindByID(ctx context.Context, id string) (*model.Profile, error)
	Upsert(ctx context.Context, p *model.Profile) error
	Delete(ctx context.Context, id string) error
}

// Deduper suppresses repeated deliveries; see util.Deduper.
type Deduper interface {
	AcquireOnce(ctx context.Context, handler, id string) bool
	Release(ctx context.Context, handler, id string)
}

type Service struct {
	profiles ProfileStore
	deduper  Deduper
	now      func() time.Time
	logger   *zap.Logger
}

func NewService(profiles ProfileStore, deduper Deduper, logger *zap.Logger) *Service {
	return &Service{profiles: profiles, deduper: deduper, now: time.Now, logger: logger}
}

// CurrentUser returns the caller's profile, or nil when the webhook has
// not delivered it yet.
func (s *Service) CurrentUser(ctx context.Context, userID string) (*model.Profile, error) {
	p, err := s.profiles.FindByID(ctx, userID)
	if errors.Is(err, model.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	return p, nil
}

// HandleEvent applies one delivery. deliveryID, when set, is used to drop
// redeliveries. Unknown event types are acknowledged and ignored.
func (s *Service) HandleEvent(ctx context.Context, deliveryID string, evt Event) error {
	if evt.Data.ID == "" {
		return fmt.Errorf("%w: event without user id", model.ErrInvalidInput)
	}
	switch evt.Type {
	case EventUserCreated, EventUserUpdated, EventUserDeleted:
	default:
		s.logger.Info("Ignoring identity event", zap.String("type", evt.Type))
		return nil
	}

	if deliveryID != "" && s.deduper != nil && !s.deduper.AcquireOnce(ctx, dedupHandler, deliveryID) {
		return nil
	}

	var err error
	if evt.Type == EventUserDeleted {
		err = s.profiles.Delete(ctx, evt.Data.ID)
	} else {
		p := evt.Data.Profile(s.now().UTC())
		err = s.profiles.Upsert(ctx, &p)
	}
	if err != nil {
		if deliveryID != "" && s.deduper != nil {
			s.deduper.Release(ctx, dedupHandler, deliveryID)
		}
		s.logger.Error("Failed to apply identity event",
			zap.String("type", evt.Type),
			zap.String("user_id", evt.Data.ID),
			zap.Error(err),
		)
		return err
	}

	s.logger.Info("Identity event applied",
		zap.String("type", evt.Type),
		zap.String("user_id", evt.Data.ID),
	)
	return nil
}
