package outbox

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// ReplayStore is the part of Repository replay needs.
type ReplayStore interface {
	GetEventByID(ctx context.Context, eventID int64) (*Event, error)
	GetFailedEvents(ctx context.Context, limit int) ([]*Event, error)
	ResetEvent(ctx context.Context, eventID int64) error
}

// ReplayService re-queues parked events; the dispatcher then publishes
// them on its next tick.
type ReplayService struct {
	repo   ReplayStore
	logger *zap.Logger
}

func NewReplayService(repo ReplayStore, logger *zap.Logger) *ReplayService {
	return &ReplayService{repo: repo, logger: logger}
}

func (s *ReplayService) ReplayEvent(ctx context.Context, eventID int64) (*Event, error) {
	event, err := s.repo.GetEventByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.ResetEvent(ctx, eventID); err != nil {
		return nil, fmt.Errorf("replay event %d: %w", eventID, err)
	}
	s.logger.Info("Outbox event re-queued",
		zap.Int64("event_id", eventID),
		zap.String("routing_key", event.RoutingKey),
		zap.String("previous_status", event.Status),
	)
	replayed := *event
	replayed.Status = StatusPending
	replayed.RetryCount = 0
	replayed.NextRetryAt = nil
	return &replayed, nil
}

// ReplayFailedEvents re-queues up to limit failed events and reports how
// many were reset.
func (s *ReplayService) ReplayFailedEvents(ctx context.Context, limit int) (int, error) {
	events, err := s.repo.GetFailedEvents(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("failed to get failed events: %w", err)
	}

	count := 0
	for _, event := range events {
		if err := s.repo.ResetEvent(ctx, event.ID); err != nil {
			s.logger.Warn("Failed to re-queue event", zap.Int64("event_id", event.ID), zap.Error(err))
			continue
		}
		count++
	}
	s.logger.Info("Failed outbox events re-queued", zap.Int("count", count), zap.Int("candidates", len(events)))
	return count, nil
}
