package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/FranksOps/sitehunt/internal/storage"
	_ "modernc.org/sqlite"
)

// ensure sqliteBackend implements storage.Backend
var _ storage.Backend = (*sqliteBackend)(nil)

type sqliteBackend struct {
	db *sql.DB
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
	engine TEXT,
	found BOOLEAN NOT NULL,
	attempts INTEGER NOT NULL,
	blocked_by TEXT NOT NULL,
	duration_ms INTEGER NOT NULL,
	created_at DATETIME NOT NULL,
	error TEXT
);
CREATE INDEX IF NOT EXISTS lookups_run_id ON lookups (run_id);
`

const columns = `id, run_id, workbook, row_index, company, query, website, engine, found, attempts, blocked_by, duration_ms, created_at, error`

// New creates a new SQLite-backed storage.Backend.
func New(dsn string) (storage.Backend, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: schema: %w", err)
	}

	return &sqliteBackend{db: db}, nil
}

func (b *sqliteBackend) Save(ctx context.Context, rec *storage.LookupRecord) error {
	blockedJSON, err := json.Marshal(nonNil(rec.BlockedBy))
	if err != nil {
		return fmt.Errorf("sqlite: encode blocked_by: %w", err)
	}

	query := `INSERT INTO lookups (` + columns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = b.db.ExecContext(ctx, query,
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
		string(blockedJSON),
		rec.Duration.Milliseconds(),
		rec.CreatedAt.UTC(),
		rec.Error,
	)
	if err != nil {
		return fmt.Errorf("sqlite: insert: %w", err)
	}

	return nil
}

func (b *sqliteBackend) Query(ctx context.Context, filter storage.Filter) ([]*storage.LookupRecord, error) {
	query := `SELECT ` + columns + ` FROM lookups WHERE 1=1`
	args := []any{}

	if filter.RunID != "" {
		query += ` AND run_id = ?`
		args = append(args, filter.RunID)
	}
	if filter.Company != "" {
		query += ` AND LOWER(company) LIKE ?`
		args = append(args, "%"+strings.ToLower(filter.Company)+"%")
	}
	if filter.Found != nil {
		query += ` AND found = ?`
		args = append(args, *filter.Found)
	}
	if filter.Since != nil {
		query += ` AND created_at >= ?`
		args = append(args, filter.Since.UTC())
	}

	query += ` ORDER BY created_at DESC`

	if filter.Limit > 0 || filter.Offset > 0 {
		limit := filter.Limit
		if limit <= 0 {
			limit = -1
		}
		query += ` LIMIT ? OFFSET ?`
		args = append(args, limit, filter.Offset)
	}

	rows, err := b.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query: %w", err)
	}
	defer rows.Close()

	var results []*storage.LookupRecord
	for rows.Next() {
		var r storage.LookupRecord
		var engine, errText sql.NullString
		var blockedJSON string
		var durationMs int64

		err := rows.Scan(
			&r.ID, &r.RunID, &r.Workbook, &r.Row, &r.Company, &r.Query, &r.Website,
			&engine, &r.Found, &r.Attempts, &blockedJSON, &durationMs, &r.CreatedAt, &errText,
		)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scan: %w", err)
		}

		r.Engine = engine.String
		r.Error = errText.String
		r.Duration = time.Duration(durationMs) * time.Millisecond
		if err := json.Unmarshal([]byte(blockedJSON), &r.BlockedBy); err != nil {
			return nil, fmt.Errorf("sqlite: decode blocked_by: %w", err)
		}
		if len(r.BlockedBy) == 0 {
			r.BlockedBy = nil
		}

		results = append(results, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: rows: %w", err)
	}

	return results, nil
}

func (b *sqliteBackend) Close() error {
	return b.db.Close()
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
