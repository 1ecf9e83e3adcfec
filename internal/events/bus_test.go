package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

type memStore struct {
	events []Event
	err    error
}

func (m *memStore) InsertDomainEvent(_ context.Context, topic string, aggregateID uuid.UUID, payload []byte) (Event, error) {
	if m.err != nil {
		return Event{}, m.err
	}
	ev := Event{ID: uuid.New(), Topic: topic, AggregateID: aggregateID, Payload: payload, OccurredAt: time.Now()}
	m.events = append(m.events, ev)
	return ev, nil
}

type recordingNotifier struct {
	seen []Event
	err  error
}

func (n *recordingNotifier) Notify(_ context.Context, ev Event) error {
	n.seen = append(n.seen, ev)
	return n.err
}

func TestBusEmitPersistsAndNotifies(t *testing.T) {
	store := &memStore{}
	notifier := &recordingNotifier{}
	bus := &Bus{Store: store, Notifiers: []Notifier{notifier}}

	aggregate := uuid.New()
	ev, err := bus.Emit(context.Background(), TopicGateIn, aggregate, map[string]string{"container_id": "MSCU1234567"})
	if err != nil {
		t.Fatalf("emit: %v", err)
	}
	if len(store.events) != 1 {
		t.Fatalf("expected event persisted, got %d", len(store.events))
	}
	if len(notifier.seen) != 1 || notifier.seen[0].ID != ev.ID {
		t.Fatalf("expected notifier to observe event, got %+v", notifier.seen)
	}
	var payload map[string]string
	if err := json.Unmarshal(ev.Payload, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload["container_id"] != "MSCU1234567" {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func TestBusEmitRejectsMissingTopic(t *testing.T) {
	bus := &Bus{Store: &memStore{}}
	if _, err := bus.Emit(context.Background(), "  ", uuid.New(), nil); err == nil {
		t.Fatal("expected error for missing topic")
	}
}

func TestBusEmitSurfacesNotifierErrors(t *testing.T) {
	bus := &Bus{Store: &memStore{}, Notifiers: []Notifier{&recordingNotifier{err: errors.New("boom")}}}
	if _, err := bus.Emit(context.Background(), TopicGateOut, uuid.New(), nil); err == nil {
		t.Fatal("expected notifier error to be surfaced")
	}
}

func TestBusEmitRejectsInvalidJSONPayload(t *testing.T) {
	bus := &Bus{Store: &memStore{}}
	if _, err := bus.Emit(context.Background(), TopicGateIn, uuid.New(), []byte("{not json")); err == nil {
		t.Fatal("expected error for invalid payload")
	}
}
