package client

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
	// ErrNotFound indicates the client row does not exist.
	ErrNotFound = errors.New("client: not found")
	// ErrDuplicateCode indicates another client already uses the code.
	ErrDuplicateCode = errors.New("client: code already in use")
)

// Store persists client records.
type Store interface {
	Create(ctx context.Context, c *Client) error
	GetByID(ctx context.Context, id uuid.UUID) (*Client, error)
	List(ctx context.Context, search string, limit, offset int) ([]Client, error)
	Update(ctx context.Context, c *Client) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type pgStore struct {
	pool *pgxpool.Pool
}

// NewPgStore returns a PostgreSQL-backed client store.
func NewPgStore(pool *pgxpool.Pool) Store {
	return &pgStore{pool: pool}
}

const clientSelectCols = `id, code, name, contact_email, active, created_at, updated_at`

func scanClient(scan func(...any) error) (*Client, error) {
	c := &Client{}
	return c, scan(&c.ID, &c.Code, &c.Name, &c.ContactEmail, &c.Active, &c.CreatedAt, &c.UpdatedAt)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (r *pgStore) Create(ctx context.Context, c *Client) error {
	now := time.Now().UTC()
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	c.CreatedAt = now
	c.UpdatedAt = now
	_, err := r.pool.Exec(ctx,
		`INSERT INTO clients (id, code, name, contact_email, active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		c.ID, c.Code, c.Name, c.ContactEmail, c.Active, c.CreatedAt, c.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return ErrDuplicateCode
	}
	return err
}

func (r *pgStore) GetByID(ctx context.Context, id uuid.UUID) (*Client, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+clientSelectCols+` FROM clients WHERE id = $1`, id)
	c, err := scanClient(row.Scan)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *pgStore) List(ctx context.Context, search string, limit, offset int) ([]Client, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+clientSelectCols+` FROM clients
		 WHERE $1 = '' OR code ILIKE '%' || $1 || '%' OR name ILIKE '%' || $1 || '%'
		 ORDER BY code
		 LIMIT $2 OFFSET $3`, search, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []Client
	for rows.Next() {
		c, err := scanClient(rows.Scan)
		if err != nil {
			return nil, err
		}
		list = append(list, *c)
	}
	return list, rows.Err()
}

func (r *pgStore) Update(ctx context.Context, c *Client) error {
	c.UpdatedAt = time.Now().UTC()
	tag, err := r.pool.Exec(ctx,
		`UPDATE clients
		 SET code = $2, name = $3, contact_email = $4, active = $5, updated_at = $6
		 WHERE id = $1`,
		c.ID, c.Code, c.Name, c.ContactEmail, c.Active, c.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return ErrDuplicateCode
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *pgStore) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM clients WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
