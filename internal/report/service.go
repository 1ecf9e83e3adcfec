package report

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// OccupancyRow is the current yard population for one size class.
type OccupancyRow struct {
	SizeClass string `json:"size_class"`
	Count     int64  `json:"count"`
}

// ActivityRow is the gate traffic for one calendar day.
type ActivityRow struct {
	Date     string `json:"date"`
	GateIns  int64  `json:"gate_ins"`
	GateOuts int64  `json:"gate_outs"`
}

// Source provides the aggregate queries behind the reporting endpoints.
type Source interface {
	Occupancy(ctx context.Context) ([]OccupancyRow, error)
	GateActivity(ctx context.Context, from, to time.Time) ([]ActivityRow, error)
}

type pgSource struct {
	pool *pgxpool.Pool
}

// NewPgSource returns a PostgreSQL-backed report source.
func NewPgSource(pool *pgxpool.Pool) Source {
	return &pgSource{pool: pool}
}

func (r *pgSource) Occupancy(ctx context.Context) ([]OccupancyRow, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT size_class, COUNT(*)
		 FROM movements
		 WHERE date_out IS NULL
		 GROUP BY size_class
		 ORDER BY size_class`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []OccupancyRow
	for rows.Next() {
		var row OccupancyRow
		if err := rows.Scan(&row.SizeClass, &row.Count); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// GateActivity counts entries and exits per day across the range. Days with
// no traffic are omitted.
func (r *pgSource) GateActivity(ctx context.Context, from, to time.Time) ([]ActivityRow, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT day::date, COALESCE(ins, 0), COALESCE(outs, 0)
		 FROM (
		   SELECT date_in::date AS day, COUNT(*) AS ins, NULL::bigint AS outs
		   FROM movements
		   WHERE date_in::date BETWEEN $1::date AND $2::date
		   GROUP BY date_in::date
		   UNION ALL
		   SELECT date_out::date AS day, NULL::bigint AS ins, COUNT(*) AS outs
		   FROM movements
		   WHERE date_out IS NOT NULL AND date_out::date BETWEEN $1::date AND $2::date
		   GROUP BY date_out::date
		 ) q
		 ORDER BY day`,
		from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	merged := map[string]*ActivityRow{}
	var order []string
	for rows.Next() {
		var day time.Time
		var ins, outs int64
		if err := rows.Scan(&day, &ins, &outs); err != nil {
			return nil, err
		}
		key := day.Format("2006-01-02")
		row, ok := merged[key]
		if !ok {
			row = &ActivityRow{Date: key}
			merged[key] = row
			order = append(order, key)
		}
		row.GateIns += ins
		row.GateOuts += outs
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]ActivityRow, 0, len(order))
	for _, key := range order {
		out = append(out, *merged[key])
	}
	return out, nil
}
