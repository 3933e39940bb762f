package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/FranksOps/sitehunt/internal/storage"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ensure postgresBackend implements storage.Backend
var _ storage.Backend = (*postgresBackend)(nil)

type postgresBackend struct {
	pool *pgxpool.Pool
}

const schema = `
CREATE TABLE IF NOT EXISTS lookups (
	id TEXT PRIMARY KEY,
	run_id TEXT NOT NULL,
	workbook TEXT NOT NULL,
	row_index INTEGER NOT NULL,
	company TEXT NOT NULL,
	query TEXT NOT NULL,
	website TEXT NOT NULL,
	engine TEXT NOT NULL DEFAULT '',
	found BOOLEAN NOT NULL,
	attempts INTEGER NOT NULL,
	blocked_by TEXT[] NOT NULL DEFAULT '{}',
	duration_ms BIGINT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	error TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS lookups_run_id ON lookups (run_id);
`

const columns = `id, run_id, workbook, row_index, company, query, website, engine, found, attempts, blocked_by, duration_ms, created_at, error`

// New creates a new Postgres-backed storage.Backend.
func New(ctx context.Context, dsn string) (storage.Backend, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: schema: %w", err)
	}

	return &postgresBackend{pool: pool}, nil
}

func (b *postgresBackend) Save(ctx context.Context, rec *storage.LookupRecord) error {
	blockedBy := rec.BlockedBy
	if blockedBy == nil {
		blockedBy = []string{}
	}

	query := `INSERT INTO lookups (` + columns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err := b.pool.Exec(ctx, query,
		rec.ID,
		rec.RunID,
		rec.Workbook,
		rec.Row,
		rec.Company,
		rec.Query,
		rec.Website,
		rec.Engine,
		rec.Found,
		rec.Attempts,
		blockedBy,
		rec.Duration.Milliseconds(),
		rec.CreatedAt,
		rec.Error,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert: %w", err)
	}

	return nil
}

func (b *postgresBackend) Query(ctx context.Context, filter storage.Filter) ([]*storage.LookupRecord, error) {
	query := `SELECT ` + columns + ` FROM lookups WHERE 1=1`
	args := []any{}
	paramCount := 1

	if filter.RunID != "" {
		query += fmt.Sprintf(` AND run_id = $%d`, paramCount)
		args = append(args, filter.RunID)
		paramCount++
	}
	if filter.Company != "" {
		query += fmt.Sprintf(` AND company ILIKE $%d`, paramCount)
		args = append(args, "%"+filter.Company+"%")
		paramCount++
	}
	if filter.Found != nil {
		query += fmt.Sprintf(` AND found = $%d`, paramCount)
		args = append(args, *filter.Found)
		paramCount++
	}
	if filter.Since != nil {
		query += fmt.Sprintf(` AND created_at >= $%d`, paramCount)
		args = append(args, *filter.Since)
		paramCount++
	}

	query += ` ORDER BY created_at DESC`

	if filter.Limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d`, paramCount)
		args = append(args, filter.Limit)
		paramCount++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, paramCount)
		args = append(args, filter.Offset)
	}

	rows, err := b.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: query: %w", err)
	}
	defer rows.Close()

	var results []*storage.LookupRecord
	for rows.Next() {
		var r storage.LookupRecord
		var durationMs int64

		err := rows.Scan(
			&r.ID, &r.RunID, &r.Workbook, &r.Row, &r.Company, &r.Query, &r.Website,
			&r.Engine, &r.Found, &r.Attempts, &r.BlockedBy, &durationMs, &r.CreatedAt, &r.Error,
		)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan: %w", err)
		}

		r.Duration = time.Duration(durationMs) * time.Millisecond
		if len(r.BlockedBy) == 0 {
			r.BlockedBy = nil
		}
		results = append(results, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: rows: %w", err)
	}

	return results, nil
}

func (b *postgresBackend) Close() error {
	b.pool.Close()
	return nil
}
