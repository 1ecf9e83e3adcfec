package auth

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
	// ErrUserNotFound indicates no user matches the lookup.
	ErrUserNotFound = errors.New("auth: user not found")
	// ErrEmailTaken indicates the email is already registered.
	ErrEmailTaken = errors.New("auth: email already registered")
)

// UserRecord is the stored user row, including the password hash.
type UserRecord struct {
	ID           uuid.UUID
	Name         string
	Email        string
	PasswordHash string
	Roles        []string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserStore persists back-office users.
type UserStore interface {
	Create(ctx context.Context, u *UserRecord) error
	GetByEmail(ctx context.Context, email string) (*UserRecord, error)
	GetByID(ctx context.Context, id uuid.UUID) (*UserRecord, error)
}

type pgUserStore struct {
	pool *pgxpool.Pool
}

// NewPgUserStore returns a PostgreSQL-backed user store.
func NewPgUserStore(pool *pgxpool.Pool) UserStore {
	return &pgUserStore{pool: pool}
}

const userSelectCols = `id, name, email, password_hash, roles, created_at, updated_at`

func scanUser(scan func(...any) error) (*UserRecord, error) {
	u := &UserRecord{}
	return u, scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Roles, &u.CreatedAt, &u.UpdatedAt)
}

func (r *pgUserStore) Create(ctx context.Context, u *UserRecord) error {
	now := time.Now().UTC()
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	u.CreatedAt = now
	u.UpdatedAt = now
	_, err := r.pool.Exec(ctx,
		`INSERT INTO users (id, name, email, password_hash, roles, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		u.ID, u.Name, u.Email, u.PasswordHash, u.Roles, u.CreatedAt, u.UpdatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrEmailTaken
	}
	return err
}

func (r *pgUserStore) GetByEmail(ctx context.Context, email string) (*UserRecord, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+userSelectCols+` FROM users WHERE email = $1`, email)
	u, err := scanUser(row.Scan)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (r *pgUserStore) GetByID(ctx context.Context, id uuid.UUID) (*UserRecord, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+userSelectCols+` FROM users WHERE id = $1`, id)
	u, err := scanUser(row.Scan)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}
