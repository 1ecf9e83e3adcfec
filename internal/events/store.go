package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type pgStore struct {
	pool *pgxpool.Pool
}

// NewPgStore returns a PostgreSQL-backed event store.
func NewPgStore(pool *pgxpool.Pool) EventStore {
	return &pgStore{pool: pool}
}

func (r *pgStore) InsertDomainEvent(ctx context.Context, topic string, aggregateID uuid.UUID, payload []byte) (Event, error) {
	ev := Event{
		ID:          uuid.New(),
		Topic:       topic,
		AggregateID: aggregateID,
		Payload:     payload,
		OccurredAt:  time.Now().UTC(),
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO domain_events (id, topic, aggregate_id, payload, occurred_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		ev.ID, ev.Topic, ev.AggregateID, ev.Payload, ev.OccurredAt,
	)
	if err != nil {
		return Event{}, err
	}
	return ev, nil
}
