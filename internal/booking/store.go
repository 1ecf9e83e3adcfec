package booking

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound indicates the booking row does not exist.
	ErrNotFound = errors.New("booking: not found")
	// ErrDuplicateReference indicates the client already has a booking with the reference.
	ErrDuplicateReference = errors.New("booking: reference already in use")
)

// Store persists bookings.
type Store interface {
	Create(ctx context.Context, b *Booking) error
	GetByID(ctx context.Context, id uuid.UUID) (*Booking, error)
	List(ctx context.Context, clientID *uuid.UUID, status *Status, limit, offset int) ([]Booking, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) error
}

type pgStore struct {
	pool *pgxpool.Pool
}

// NewPgStore returns a PostgreSQL-backed booking store.
func NewPgStore(pool *pgxpool.Pool) Store {
	return &pgStore{pool: pool}
}

const bookingSelectCols = `id, client_id, reference, size_class, container_count,
	expected_date, status, created_at, updated_at`

func scanBooking(scan func(...any) error) (*Booking, error) {
	b := &Booking{}
	return b, scan(
		&b.ID, &b.ClientID, &b.Reference, &b.SizeClass, &b.ContainerCount,
		&b.ExpectedDate, &b.Status, &b.CreatedAt, &b.UpdatedAt,
	)
}

func (r *pgStore) Create(ctx context.Context, b *Booking) error {
	now := time.Now().UTC()
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	b.Status = StatusPending
	b.CreatedAt = now
	b.UpdatedAt = now
	_, err := r.pool.Exec(ctx,
		`INSERT INTO bookings
		 (id, client_id, reference, size_class, container_count, expected_date, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		b.ID, b.ClientID, b.Reference, b.SizeClass, b.ContainerCount,
		b.ExpectedDate, b.Status, b.CreatedAt, b.UpdatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicateReference
	}
	return err
}

func (r *pgStore) GetByID(ctx context.Context, id uuid.UUID) (*Booking, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+bookingSelectCols+` FROM bookings WHERE id = $1`, id)
	b, err := scanBooking(row.Scan)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (r *pgStore) List(ctx context.Context, clientID *uuid.UUID, status *Status, limit, offset int) ([]Booking, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+bookingSelectCols+` FROM bookings
		 WHERE ($1::uuid IS NULL OR client_id = $1)
		   AND ($2::text IS NULL OR status = $2)
		 ORDER BY expected_date DESC, id
		 LIMIT $3 OFFSET $4`,
		clientID, status, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []Booking
	for rows.Next() {
		b, err := scanBooking(rows.Scan)
		if err != nil {
			return nil, err
		}
		list = append(list, *b)
	}
	return list, rows.Err()
}

// UpdateStatus moves a booking between states. The WHERE clause pins the
// current status so concurrent transitions cannot both win.
func (r *pgStore) UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE bookings SET status = $3, updated_at = $4
		 WHERE id = $1 AND status = $2`,
		id, from, to, time.Now().UTC())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
