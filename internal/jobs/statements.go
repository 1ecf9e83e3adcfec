package jobs

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Statement is a persisted billing statement produced by a background job.
type Statement struct {
	ID                  uuid.UUID       `json:"id"`
	ClientID            uuid.UUID       `json:"client_id"`
	PeriodStart         time.Time       `json:"period_start"`
	PeriodEnd           time.Time       `json:"period_end"`
	TotalStorageCharge  decimal.Decimal `json:"total_storage_charge"`
	TotalHandlingCharge decimal.Decimal `json:"total_handling_charge"`
	TotalCharge         decimal.Decimal `json:"total_charge"`
	RecordCount         int             `json:"record_count"`
	Diagnostics         json.RawMessage `json:"diagnostics,omitempty"`
	GeneratedAt         time.Time       `json:"generated_at"`
}

// StatementStore persists generated statements.
type StatementStore interface {
	Insert(ctx context.Context, s *Statement) error
	ListByClient(ctx context.Context, clientID uuid.UUID, limit, offset int) ([]Statement, error)
}

type pgStatementStore struct {
	pool *pgxpool.Pool
}

// NewPgStatementStore returns a PostgreSQL-backed statement store.
func NewPgStatementStore(pool *pgxpool.Pool) StatementStore {
	return &pgStatementStore{pool: pool}
}

func (r *pgStatementStore) Insert(ctx context.Context, s *Statement) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	s.GeneratedAt = time.Now().UTC()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO statements
		 (id, client_id, period_start, period_end, total_storage_charge,
		  total_handling_charge, total_charge, record_count, diagnostics, generated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		s.ID, s.ClientID, s.PeriodStart, s.PeriodEnd, s.TotalStorageCharge,
		s.TotalHandlingCharge, s.TotalCharge, s.RecordCount, s.Diagnostics, s.GeneratedAt,
	)
	return err
}

func (r *pgStatementStore) ListByClient(ctx context.Context, clientID uuid.UUID, limit, offset int) ([]Statement, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, client_id, period_start, period_end,
		        total_storage_charge::text, total_handling_charge::text, total_charge::text,
		        record_count, diagnostics, generated_at
		 FROM statements
		 WHERE client_id = $1
		 ORDER BY period_start DESC, generated_at DESC
		 LIMIT $2 OFFSET $3`,
		clientID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []Statement
	for rows.Next() {
		var s Statement
		var storage, handling, total string
		if err := rows.Scan(
			&s.ID, &s.ClientID, &s.PeriodStart, &s.PeriodEnd,
			&storage, &handling, &total,
			&s.RecordCount, &s.Diagnostics, &s.GeneratedAt,
		); err != nil {
			return nil, err
		}
		if s.TotalStorageCharge, err = decimal.NewFromString(storage); err != nil {
			return nil, err
		}
		if s.TotalHandlingCharge, err = decimal.NewFromString(handling); err != nil {
			return nil, err
		}
		if s.TotalCharge, err = decimal.NewFromString(total); err != nil {
			return nil, err
		}
		list = append(list, s)
	}
	return list, rows.Err()
}
