package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type pgStore struct {
	pool *pgxpool.Pool
}

// NewPgStore returns a PostgreSQL-backed audit log store.
func NewPgStore(pool *pgxpool.Pool) Store {
	return &pgStore{pool: pool}
}

func (r *pgStore) Insert(ctx context.Context, e *Entry) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	e.CreatedAt = time.Now().UTC()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO audit_logs
		 (id, actor_kind, actor_user_id, action, resource_type, resource_id,
		  method, path, route, status, ip, user_agent, request_id, metadata, created_at)
		 VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''),
		         $7, $8, NULLIF($9, ''), $10, NULLIF($11, ''), NULLIF($12, ''), NULLIF($13, ''), $14, $15)`,
		e.ID, e.ActorKind, e.ActorUserID, e.Action, e.ResourceType, e.ResourceID,
		e.Method, e.Path, e.Route, e.Status, e.IP, e.UserAgent, e.RequestID, e.Metadata, e.CreatedAt,
	)
	return err
}

func (r *pgStore) List(ctx context.Context, action string, limit, offset int) ([]Entry, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, actor_kind, actor_user_id, action, resource_type,
		        COALESCE(resource_id, ''), method, path, COALESCE(route, ''), status,
		        COALESCE(ip, ''), COALESCE(user_agent, ''), COALESCE(request_id, ''),
		        metadata, created_at
		 FROM audit_logs
		 WHERE ($1 = '' OR action = $1)
		 ORDER BY created_at DESC
		 LIMIT $2 OFFSET $3`,
		action, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(
			&e.ID, &e.ActorKind, &e.ActorUserID, &e.Action, &e.ResourceType,
			&e.ResourceID, &e.Method, &e.Path, &e.Route, &e.Status,
			&e.IP, &e.UserAgent, &e.RequestID, &e.Metadata, &e.CreatedAt,
		); err != nil {
			return nil, err
		}
		list = append(list, e)
	}
	return list, rows.Err()
}
