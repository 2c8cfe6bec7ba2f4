// Package runs keeps a SQLite registry of training, cross-validation and
// accuracy-check runs.
package runs

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/KaramelBytes/estatefit-cli/internal/utils"
)

// Kinds of recorded runs.
const (
	KindTrain = "train"
	KindCV    = "cv"
	KindCheck = "check"
)

// Run is one registry row.
type Run struct {
	ID        string
	Kind      string
	Dataset   string
	ModelPath string
	MAE       float64
	RMSE      float64
	R2        float64
	Params    map[string]any
	CreatedAt time.Time
}

// Store wraps the registry database.
type Store struct {
	db   *sql.DB
	path string
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	kind TEXT NOT NULL,
	dataset TEXT,
	model_path TEXT,
	mae REAL,
	rmse REAL,
	r2 REAL,
	params TEXT,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);
`

// Open creates or opens the registry at path.
func Open(path string) (*Store, error) {
	if err := utils.EnsureParentDir(path); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// Record inserts r. CreatedAt defaults to now.
func (s *Store) Record(ctx context.Context, r Run) error {
	if r.ID == "" {
		return fmt.Errorf("record run: empty id")
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	params, err := json.Marshal(r.Params)
	if err != nil {
		return fmt.Errorf("record run: marshal params: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs (id, kind, dataset, model_path, mae, rmse, r2, params, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Kind, r.Dataset, r.ModelPath, r.MAE, r.RMSE, r.R2, string(params),
		r.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

// List returns up to limit runs, newest first. limit <= 0 returns all.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	q := `SELECT id, kind, dataset, model_path, mae, rmse, r2, params, created_at
		FROM runs ORDER BY created_at DESC, rowid DESC`
	var args []any
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		var params, created string
		if err := rows.Scan(&r.ID, &r.Kind, &r.Dataset, &r.ModelPath, &r.MAE, &r.RMSE, &r.R2, &params, &created); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if params != "" && params != "null" {
			if err := json.Unmarshal([]byte(params), &r.Params); err != nil {
				return nil, fmt.Errorf("decode params for run %s: %w", r.ID, err)
			}
		}
		if r.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
			return nil, fmt.Errorf("parse created_at for run %s: %w", r.ID, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
