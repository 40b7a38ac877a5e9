package storage

import (
	"context"
	"database/sql"
	"strings"

	_ "modernc.org/sqlite"
)

type sqliteStore struct {
	baseStore
}

func NewSQLite(dsn string) (Store, error) {
	if strings.TrimSpace(dsn) == "" {
		dsn = "file:eventsds.db?_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	return &sqliteStore{baseStore{db: db}}, nil
}

func (s *sqliteStore) Init(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			phase TEXT NOT NULL,
			started_at TEXT NOT NULL,
			generated_at TEXT NOT NULL,
			elapsed_seconds REAL NOT NULL,
			tu INTEGER NOT NULL,
			tu_source TEXT NOT NULL,
			dataset TEXT NOT NULL,
			params_json TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_generated_at ON runs(generated_at)`,
		`CREATE TABLE IF NOT EXISTS run_counters (
			run_id TEXT NOT NULL REFERENCES runs(run_id),
			name TEXT NOT NULL,
			value INTEGER NOT NULL,
			PRIMARY KEY (run_id, name)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
