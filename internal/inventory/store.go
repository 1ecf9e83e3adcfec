package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noah-isme/backend-yard/internal/billing"
)

var (
	// ErrAlreadyInYard indicates an open movement already exists for the container.
	ErrAlreadyInYard = errors.New("inventory: container already in yard")
	// ErrNotFound indicates the movement row does not exist.
	ErrNotFound = errors.New("inventory: movement not found")
)

// Store persists movement records and serves the billing movement source.
type Store interface {
	Insert(ctx context.Context, m *Movement) error
	GetByID(ctx context.Context, id uuid.UUID) (*Movement, error)
	FindOpenByContainer(ctx context.Context, containerID string) (*Movement, error)
	SetDateOut(ctx context.Context, id uuid.UUID, dateOut time.Time) error
	List(ctx context.Context, filter ListFilter) ([]Movement, error)
	ListOverlapping(ctx context.Context, w billing.Window, clientID *uuid.UUID, limit int) ([]billing.Movement, error)
}

type pgStore struct {
	pool *pgxpool.Pool
}

// NewPgStore returns a PostgreSQL-backed movement store.
func NewPgStore(pool *pgxpool.Pool) Store {
	return &pgStore{pool: pool}
}

const movementSelectCols = `id, container_id, client_id, size_class, booking_id,
	date_in, date_out, created_at, updated_at`

func scanMovement(scan func(...any) error) (*Movement, error) {
	m := &Movement{}
	return m, scan(
		&m.ID, &m.ContainerID, &m.ClientID, &m.SizeClass, &m.BookingID,
		&m.DateIn, &m.DateOut, &m.CreatedAt, &m.UpdatedAt,
	)
}

func (r *pgStore) Insert(ctx context.Context, m *Movement) error {
	now := time.Now().UTC()
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	m.CreatedAt = now
	m.UpdatedAt = now
	_, err := r.pool.Exec(ctx,
		`INSERT INTO movements
		 (id, container_id, client_id, size_class, booking_id, date_in, date_out, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		m.ID, m.ContainerID, m.ClientID, m.SizeClass, m.BookingID,
		m.DateIn, m.DateOut, m.CreatedAt, m.UpdatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrAlreadyInYard
	}
	return err
}

func (r *pgStore) GetByID(ctx context.Context, id uuid.UUID) (*Movement, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+movementSelectCols+` FROM movements WHERE id = $1`, id)
	m, err := scanMovement(row.Scan)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (r *pgStore) FindOpenByContainer(ctx context.Context, containerID string) (*Movement, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+movementSelectCols+` FROM movements
		 WHERE container_id = $1 AND date_out IS NULL`, containerID)
	m, err := scanMovement(row.Scan)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (r *pgStore) SetDateOut(ctx context.Context, id uuid.UUID, dateOut time.Time) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE movements SET date_out = $2, updated_at = $3
		 WHERE id = $1 AND date_out IS NULL`,
		id, dateOut, time.Now().UTC(),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *pgStore) List(ctx context.Context, filter ListFilter) ([]Movement, error) {
	conditions := []string{"TRUE"}
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.ClientID != nil {
		conditions = append(conditions, "client_id = "+arg(*filter.ClientID))
	}
	if filter.InYardOnly {
		conditions = append(conditions, "date_out IS NULL")
	}
	if filter.From != nil {
		conditions = append(conditions, "date_in >= "+arg(*filter.From))
	}
	if filter.To != nil {
		conditions = append(conditions, "date_in < "+arg(filter.To.Add(24*time.Hour)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + movementSelectCols + ` FROM movements
		 WHERE ` + strings.Join(conditions, " AND ") + `
		 ORDER BY date_in DESC, id
		 LIMIT ` + arg(limit) + ` OFFSET ` + arg(filter.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []Movement
	for rows.Next() {
		m, err := scanMovement(rows.Scan)
		if err != nil {
			return nil, err
		}
		list = append(list, *m)
	}
	return list, rows.Err()
}

// ListOverlapping selects movements whose presence interval overlaps the
// billing window: entered on or before the window end and, when already
// gone, left on or after the window start. Ordering is fixed so repeated
// runs return byte-identical reports.
func (r *pgStore) ListOverlapping(ctx context.Context, w billing.Window, clientID *uuid.UUID, limit int) ([]billing.Movement, error) {
	args := []any{w.Start, w.End, limit}
	clientCond := ""
	if clientID != nil {
		args = append(args, *clientID)
		clientCond = " AND client_id = $4"
	}
	rows, err := r.pool.Query(ctx,
		`SELECT id, container_id, client_id, size_class, date_in, date_out
		 FROM movements
		 WHERE date_in::date <= $2::date
		   AND (date_out IS NULL OR date_out::date >= $1::date)`+clientCond+`
		 ORDER BY container_id, date_in, id
		 LIMIT $3`,
		args...,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []billing.Movement
	for rows.Next() {
		var m billing.Movement
		if err := rows.Scan(&m.ID, &m.ContainerID, &m.ClientID, &m.SizeClass, &m.DateIn, &m.DateOut); err != nil {
			return nil, err
		}
		list = append(list, m)
	}
	return list, rows.Err()
}
