package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-yard/internal/common"
	"github.com/noah-isme/backend-yard/internal/events"
	"github.com/noah-isme/backend-yard/internal/lock"
	"github.com/noah-isme/backend-yard/internal/obs"
)

const gateLockTTL = 5 * time.Second

var (
	// ErrNotInYard indicates a gate-out for a container without an open movement.
	ErrNotInYard = errors.New("inventory: container is not in yard")
	// ErrExitBeforeEntry indicates a gate-out date earlier than the entry date.
	ErrExitBeforeEntry = errors.New("inventory: exit date precedes entry date")
)

// GateInInput is the validated payload for registering a container entry.
type GateInInput struct {
	ContainerID string
	ClientID    uuid.UUID
	SizeClass   string
	BookingID   *uuid.UUID
	DateIn      time.Time
}

// Service coordinates gate operations: per-container locking, persistence,
// and domain event emission.
type Service struct {
	Store  Store
	Locker lock.Locker
	Bus    *events.Bus
	Log    zerolog.Logger
}

// GateIn records a container entering the yard. Concurrent entries for the
// same container are serialized on a redis lock; a second open movement is
// rejected both here and by the partial unique index on movements.
func (s *Service) GateIn(ctx context.Context, in GateInInput) (*Movement, error) {
	containerID := strings.ToUpper(strings.TrimSpace(in.ContainerID))
	if containerID == "" {
		return nil, errors.New("inventory: container id is required")
	}

	m := &Movement{
		ContainerID: containerID,
		ClientID:    in.ClientID,
		SizeClass:   in.SizeClass,
		BookingID:   in.BookingID,
		DateIn:      common.Day(in.DateIn),
	}

	err := s.Locker.WithLock(ctx, "gate:"+containerID, gateLockTTL, func(ctx context.Context) error {
		open, err := s.Store.FindOpenByContainer(ctx, containerID)
		if err != nil {
			return err
		}
		if open != nil {
			return ErrAlreadyInYard
		}
		return s.Store.Insert(ctx, m)
	})
	if err != nil {
		s.countGateOp("in", err)
		return nil, err
	}
	s.countGateOp("in", nil)
	s.emit(ctx, events.TopicGateIn, m)
	return m, nil
}

// GateOut closes the open movement for the container. The exit date may not
// precede the entry date; same-day turnaround is allowed.
func (s *Service) GateOut(ctx context.Context, containerID string, dateOut time.Time) (*Movement, error) {
	containerID = strings.ToUpper(strings.TrimSpace(containerID))
	if containerID == "" {
		return nil, errors.New("inventory: container id is required")
	}
	day := common.Day(dateOut)

	var closed *Movement
	err := s.Locker.WithLock(ctx, "gate:"+containerID, gateLockTTL, func(ctx context.Context) error {
		open, err := s.Store.FindOpenByContainer(ctx, containerID)
		if err != nil {
			return err
		}
		if open == nil {
			return ErrNotInYard
		}
		if day.Before(common.Day(open.DateIn)) {
			return ErrExitBeforeEntry
		}
		if err := s.Store.SetDateOut(ctx, open.ID, day); err != nil {
			return err
		}
		open.DateOut = &day
		closed = open
		return nil
	})
	if err != nil {
		s.countGateOp("out", err)
		return nil, err
	}
	s.countGateOp("out", nil)
	s.emit(ctx, events.TopicGateOut, closed)
	return closed, nil
}

func (s *Service) countGateOp(direction string, err error) {
	if obs.GateOpsTotal == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	obs.GateOpsTotal.WithLabelValues(direction, result).Inc()
}

// emit publishes a gate event; failure to publish never fails the gate
// operation itself, it is logged and the movement row stands.
func (s *Service) emit(ctx context.Context, topic string, m *Movement) {
	if s.Bus == nil {
		return
	}
	payload := map[string]any{
		"movement_id":  m.ID,
		"container_id": m.ContainerID,
		"client_id":    m.ClientID,
		"size_class":   m.SizeClass,
		"date_in":      m.DateIn.Format(common.DateLayout),
	}
	if m.DateOut != nil {
		payload["date_out"] = m.DateOut.Format(common.DateLayout)
	}
	if _, err := s.Bus.Emit(ctx, topic, m.ID, payload); err != nil {
		s.Log.Error().Err(err).
			Str("topic", topic).
			Str("container_id", m.ContainerID).
			Msg(fmt.Sprintf("emit %s event", topic))
	}
}
