package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"sort"
	"strconv"
	"strings"
	"time"

	"eventsds/internal/config"
	"eventsds/internal/model"
)

// Store keeps an audit trail of phase runs.
type Store interface {
	Init(ctx context.Context) error
	Close() error
	SaveRun(ctx context.Context, run model.RunMetadata) error
	RecentRuns(ctx context.Context, limit int) ([]model.RunMetadata, error)
}

func NewStore(cfg config.StorageConfig) (Store, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	switch strings.ToLower(cfg.Driver) {
	case "sqlite":
		return NewSQLite(cfg.DSN)
	case "postgres", "postgresql", "pgx":
		return NewPostgres(cfg.DSN)
	default:
		return nil, errors.New("unsupported storage driver")
	}
}

// timeLayout sorts lexically in UTC.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

type baseStore struct {
	db *sql.DB
	// rebind rewrites ? placeholders for drivers that need another style.
	rebind func(string) string
}

func (b *baseStore) Close() error {
	if b.db != nil {
		return b.db.Close()
	}
	return nil
}

func (b *baseStore) q(query string) string {
	if b.rebind == nil {
		return query
	}
	return b.rebind(query)
}

func (b *baseStore) SaveRun(ctx context.Context, run model.RunMetadata) error {
	if b.db == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, b.q(
		`INSERT INTO runs (run_id, phase, started_at, generated_at, elapsed_seconds, tu, tu_source, dataset, params_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		run.ID,
		run.Phase,
		run.StartedAt.UTC().Format(timeLayout),
		run.GeneratedAt.UTC().Format(timeLayout),
		run.Elapsed,
		run.Tu,
		run.TuSource,
		run.Dataset,
		encodeJSON(run.Params),
	); err != nil {
		_ = tx.Rollback()
		return err
	}

	stmt, err := tx.PrepareContext(ctx, b.q(`INSERT INTO run_counters (run_id, name, value) VALUES (?, ?, ?)`))
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()
	for _, name := range sortedKeys(run.Counters) {
		if _, err := stmt.ExecContext(ctx, run.ID, name, run.Counters[name]); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (b *baseStore) RecentRuns(ctx context.Context, limit int) ([]model.RunMetadata, error) {
	if b.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 20
	}
	rows, err := b.db.QueryContext(ctx, b.q(
		`SELECT run_id, phase, started_at, generated_at, elapsed_seconds, tu, tu_source, dataset, params_json
		FROM runs ORDER BY generated_at DESC, run_id LIMIT ?`), limit)
	if err != nil {
		return nil, err
	}
	var runs []model.RunMetadata
	for rows.Next() {
		var (
			run            model.RunMetadata
			started, genAt string
			params         string
		)
		if err := rows.Scan(&run.ID, &run.Phase, &started, &genAt, &run.Elapsed, &run.Tu, &run.TuSource, &run.Dataset, &params); err != nil {
			rows.Close()
			return nil, err
		}
		run.StartedAt, _ = time.Parse(timeLayout, started)
		run.GeneratedAt, _ = time.Parse(timeLayout, genAt)
		if params != "" {
			_ = json.Unmarshal([]byte(params), &run.Params)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}

	for i := range runs {
		counters, err := b.counters(ctx, runs[i].ID)
		if err != nil {
			return nil, err
		}
		runs[i].Counters = counters
	}
	return runs, nil
}

func (b *baseStore) counters(ctx context.Context, runID string) (map[string]int, error) {
	rows, err := b.db.QueryContext(ctx, b.q(`SELECT name, value FROM run_counters WHERE run_id = ?`), runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]int)
	for rows.Next() {
		var name string
		var value int
		if err := rows.Scan(&name, &value); err != nil {
			return nil, err
		}
		out[name] = value
	}
	return out, rows.Err()
}

func encodeJSON(value any) string {
	data, _ := json.Marshal(value)
	return string(data)
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// dollarPlaceholders turns ?, ?, ? into $1, $2, $3.
func dollarPlaceholders(query string) string {
	var sb strings.Builder
	n := 0
	for _, ch := range query {
		if ch == '?' {
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
			continue
		}
		sb.WriteRune(ch)
	}
	return sb.String()
}
