package booking

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-yard/internal/events"
)

// ErrInvalidTransition indicates a disallowed status move.
var ErrInvalidTransition = errors.New("booking: invalid status transition")

// Service applies booking lifecycle rules and publishes status events.
type Service struct {
	Store Store
	Bus   *events.Bus
	Log   zerolog.Logger
}

// Transition moves the booking to the requested status, enforcing the
// lifecycle: pending may confirm or cancel, confirmed may complete or
// cancel, terminal states never move.
func (s *Service) Transition(ctx context.Context, id uuid.UUID, to Status) (*Booking, error) {
	b, err := s.Store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanTransition(b.Status, to) {
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, b.Status, to)
	}
	if err := s.Store.UpdateStatus(ctx, id, b.Status, to); err != nil {
		return nil, err
	}
	b.Status = to

	switch to {
	case StatusConfirmed:
		s.emit(ctx, events.TopicBookingConfirmed, b)
	case StatusCancelled:
		s.emit(ctx, events.TopicBookingCancelled, b)
	}
	return b, nil
}

func (s *Service) emit(ctx context.Context, topic string, b *Booking) {
	if s.Bus == nil {
		return
	}
	payload := map[string]any{
		"booking_id": b.ID,
		"client_id":  b.ClientID,
		"reference":  b.Reference,
		"status":     b.Status,
	}
	if _, err := s.Bus.Emit(ctx, topic, b.ID, payload); err != nil {
		s.Log.Error().Err(err).
			Str("topic", topic).
			Str("booking_id", b.ID.String()).
			Msg("emit booking event")
	}
}
