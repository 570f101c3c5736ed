package reports

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/saferoute/saferoute/internal/clock"
)

// maxReportsPerQuery bounds a single window query.
const maxReportsPerQuery = 5000

// PostgresRepository is a PostgreSQL implementation of Repository.
type PostgresRepository struct {
	pool  *pgxpool.Pool
	clock clock.Clock
}

// NewPostgresRepository creates a new PostgreSQL report repository.
func NewPostgresRepository(pool *pgxpool.Pool, opts ...Option) *PostgresRepository {
	return &PostgresRepository{pool: pool, clock: applyOptions(opts).clock}
}

// Create inserts a new report.
func (r *PostgresRepository) Create(ctx context.Context, report *Report) error {
	if err := r.prepare(report); err != nil {
		return err
	}

	query := `
		INSERT INTO community_reports (
			id, user_id, lat, lon, category, severity, description, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.pool.Exec(ctx, query,
		report.ID,
		report.UserID,
		report.Location.Lat,
		report.Location.Lon,
		report.Category,
		string(report.Severity),
		report.Description,
		report.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert report: %w", err)
	}
	return nil
}

// prepare validates report and fills in the generated fields.
func (r *PostgresRepository) prepare(report *Report) error {
	if err := report.Validate(); err != nil {
		return err
	}
	fillDefaults(report, r.clock)
	return nil
}

// ReportsCreatedSince returns reports created at or after since, newest first.
func (r *PostgresRepository) ReportsCreatedSince(ctx context.Context, since time.Time) ([]Report, error) {
	query := `
		SELECT id, user_id, lat, lon, category, severity, description, created_at
		FROM community_reports
		WHERE created_at >= $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, since, maxReportsPerQuery)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var out []Report
	for rows.Next() {
		var (
			rep      Report
			severity string
		)
		err := rows.Scan(
			&rep.ID,
			&rep.UserID,
			&rep.Location.Lat,
			&rep.Location.Lon,
			&rep.Category,
			&severity,
			&rep.Description,
			&rep.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("%w: scan: %v", ErrStoreUnavailable, err)
		}
		rep.Severity = Severity(severity)
		out = append(out, rep)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	return out, nil
}
