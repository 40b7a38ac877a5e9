package storage

import (
	"context"
	"database/sql"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
)

type postgresStore struct {
	baseStore
}

func NewPostgres(dsn string) (Store, error) {
	if strings.TrimSpace(dsn) == "" {
		dsn = "postgres://localhost:5432/eventsds?sslmode=disable"
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	return &postgresStore{baseStore{db: db, rebind: dollarPlaceholders}}, nil
}

func (s *postgresStore) Init(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			phase TEXT NOT NULL,
			started_at TEXT NOT NULL,
			generated_at TEXT NOT NULL,
			elapsed_seconds DOUBLE PRECISION NOT NULL,
			tu BIGINT NOT NULL,
			tu_source TEXT NOT NULL,
			dataset TEXT NOT NULL,
			params_json JSONB NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_generated_at ON runs(generated_at)`,
		`CREATE TABLE IF NOT EXISTS run_counters (
			run_id TEXT NOT NULL REFERENCES runs(run_id),
			name TEXT NOT NULL,
			value BIGINT NOT NULL,
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
