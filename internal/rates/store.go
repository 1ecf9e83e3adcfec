package rates

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// ErrDuplicate indicates a tariff already exists for the client/size pair.
var ErrDuplicate = errors.New("rates: tariff already exists")

// ErrNotFound indicates the tariff row does not exist.
var ErrNotFound = errors.New("rates: tariff not found")

// Store persists tariff schedules.
type Store interface {
	Find(ctx context.Context, clientID *uuid.UUID, sizeClass string) (*Schedule, error)
	List(ctx context.Context, limit, offset int) ([]Schedule, error)
	Create(ctx context.Context, s *Schedule) error
	Update(ctx context.Context, s *Schedule) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type pgStore struct {
	pool *pgxpool.Pool
}

// NewPgStore returns a PostgreSQL-backed tariff store.
func NewPgStore(pool *pgxpool.Pool) Store {
	return &pgStore{pool: pool}
}

const scheduleSelectCols = `id, client_id, size_class,
	storage_per_day::text, free_days, handling_per_event::text,
	created_at, updated_at`

func scanSchedule(scan func(...any) error) (*Schedule, error) {
	s := &Schedule{}
	var storage, handling string
	if err := scan(
		&s.ID, &s.ClientID, &s.SizeClass,
		&storage, &s.FreeDays, &handling,
		&s.CreatedAt, &s.UpdatedAt,
	); err != nil {
		return nil, err
	}
	var err error
	if s.StoragePerDay, err = decimal.NewFromString(storage); err != nil {
		return nil, fmt.Errorf("rates: parse storage rate: %w", err)
	}
	if s.HandlingPerEvent, err = decimal.NewFromString(handling); err != nil {
		return nil, fmt.Errorf("rates: parse handling rate: %w", err)
	}
	return s, nil
}

func (r *pgStore) Find(ctx context.Context, clientID *uuid.UUID, sizeClass string) (*Schedule, error) {
	var row pgx.Row
	if clientID == nil {
		row = r.pool.QueryRow(ctx,
			`SELECT `+scheduleSelectCols+` FROM rate_schedules
			 WHERE client_id IS NULL AND size_class = $1`, sizeClass)
	} else {
		row = r.pool.QueryRow(ctx,
			`SELECT `+scheduleSelectCols+` FROM rate_schedules
			 WHERE client_id = $1 AND size_class = $2`, *clientID, sizeClass)
	}
	s, err := scanSchedule(row.Scan)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *pgStore) List(ctx context.Context, limit, offset int) ([]Schedule, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+scheduleSelectCols+` FROM rate_schedules
		 ORDER BY size_class, client_id NULLS FIRST
		 LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []Schedule
	for rows.Next() {
		s, err := scanSchedule(rows.Scan)
		if err != nil {
			return nil, err
		}
		list = append(list, *s)
	}
	return list, rows.Err()
}

func (r *pgStore) Create(ctx context.Context, s *Schedule) error {
	now := time.Now().UTC()
	s.ID = uuid.New()
	s.CreatedAt = now
	s.UpdatedAt = now
	_, err := r.pool.Exec(ctx,
		`INSERT INTO rate_schedules
		 (id, client_id, size_class, storage_per_day, free_days, handling_per_event, created_at, updated_at)
		 VALUES ($1, $2, $3, $4::numeric, $5, $6::numeric, $7, $8)`,
		s.ID, s.ClientID, s.SizeClass,
		s.StoragePerDay.String(), s.FreeDays, s.HandlingPerEvent.String(),
		s.CreatedAt, s.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func (r *pgStore) Update(ctx context.Context, s *Schedule) error {
	s.UpdatedAt = time.Now().UTC()
	tag, err := r.pool.Exec(ctx,
		`UPDATE rate_schedules
		 SET storage_per_day = $2::numeric, free_days = $3, handling_per_event = $4::numeric, updated_at = $5
		 WHERE id = $1`,
		s.ID, s.StoragePerDay.String(), s.FreeDays, s.HandlingPerEvent.String(), s.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *pgStore) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM rate_schedules WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
