package booking

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-yard/internal/events"
)

type memStore struct {
	rows map[uuid.UUID]*Booking
}

func newMemStore() *memStore {
	return &memStore{rows: map[uuid.UUID]*Booking{}}
}

func (s *memStore) Create(_ context.Context, b *Booking) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	b.Status = StatusPending
	clone := *b
	s.rows[b.ID] = &clone
	return nil
}

func (s *memStore) GetByID(_ context.Context, id uuid.UUID) (*Booking, error) {
	row, ok := s.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *row
	return &clone, nil
}

func (s *memStore) List(_ context.Context, _ *uuid.UUID, _ *Status, _, _ int) ([]Booking, error) {
	var out []Booking
	for _, row := range s.rows {
		out = append(out, *row)
	}
	return out, nil
}

func (s *memStore) UpdateStatus(_ context.Context, id uuid.UUID, from, to Status) error {
	row, ok := s.rows[id]
	if !ok || row.Status != from {
		return ErrNotFound
	}
	row.Status = to
	return nil
}

type memEventStore struct {
	events []events.Event
}

func (s *memEventStore) InsertDomainEvent(_ context.Context, topic string, aggregateID uuid.UUID, payload []byte) (events.Event, error) {
	ev := events.Event{ID: uuid.New(), Topic: topic, AggregateID: aggregateID, Payload: payload, OccurredAt: time.Now()}
	s.events = append(s.events, ev)
	return ev, nil
}

func newTestService() (*Service, *memStore, *memEventStore) {
	store := newMemStore()
	eventStore := &memEventStore{}
	svc := &Service{Store: store, Bus: &events.Bus{Store: eventStore}, Log: zerolog.Nop()}
	return svc, store, eventStore
}

func seedBooking(t *testing.T, store *memStore, status Status) *Booking {
	t.Helper()
	b := &Booking{ClientID: uuid.New(), Reference: "BK-1001", SizeClass: "40HC", ContainerCount: 2}
	require.NoError(t, store.Create(context.Background(), b))
	if status != StatusPending {
		store.rows[b.ID].Status = status
		b.Status = status
	}
	return b
}

func TestConfirmPendingBooking(t *testing.T) {
	svc, store, eventStore := newTestService()
	b := seedBooking(t, store, StatusPending)

	updated, err := svc.Transition(context.Background(), b.ID, StatusConfirmed)
	require.NoError(t, err)
	require.Equal(t, StatusConfirmed, updated.Status)

	require.Len(t, eventStore.events, 1)
	require.Equal(t, events.TopicBookingConfirmed, eventStore.events[0].Topic)
}

func TestCancelConfirmedBooking(t *testing.T) {
	svc, store, eventStore := newTestService()
	b := seedBooking(t, store, StatusConfirmed)

	updated, err := svc.Transition(context.Background(), b.ID, StatusCancelled)
	require.NoError(t, err)
	require.Equal(t, StatusCancelled, updated.Status)

	require.Len(t, eventStore.events, 1)
	require.Equal(t, events.TopicBookingCancelled, eventStore.events[0].Topic)
}

func TestCompleteRequiresConfirmed(t *testing.T) {
	svc, store, _ := newTestService()
	b := seedBooking(t, store, StatusPending)

	_, err := svc.Transition(context.Background(), b.ID, StatusCompleted)
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestTerminalStatusNeverMoves(t *testing.T) {
	svc, store, _ := newTestService()

	for _, terminal := range []Status{StatusCompleted, StatusCancelled} {
		b := seedBooking(t, store, terminal)
		for _, to := range []Status{StatusConfirmed, StatusCompleted, StatusCancelled} {
			_, err := svc.Transition(context.Background(), b.ID, to)
			require.ErrorIs(t, err, ErrInvalidTransition, "from %s to %s", terminal, to)
		}
	}
}

func TestTransitionUnknownBooking(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.Transition(context.Background(), uuid.New(), StatusConfirmed)
	require.ErrorIs(t, err, ErrNotFound)
}
