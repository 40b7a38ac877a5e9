package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"eventsds/internal/config"
	"eventsds/internal/model"
)

func TestSQLiteRunHistory(t *testing.T) {
	ctx := context.Background()
	dsn := "file:" + filepath.Join(t.TempDir(), "runs.db")
	store, err := NewStore(config.StorageConfig{Enabled: true, Driver: "sqlite", DSN: dsn})
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	defer store.Close()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, phase := range []string{"events", "windows"} {
		run := model.RunMetadata{
			ID:          phase + "-run",
			Phase:       phase,
			Tu:          10,
			TuSource:    "config",
			StartedAt:   base.Add(time.Duration(i) * time.Minute),
			GeneratedAt: base.Add(time.Duration(i)*time.Minute + 1500*time.Millisecond),
			Elapsed:     1.5,
			Dataset:     "matrix.csv",
			Params:      map[string]any{"ow": 2},
			Counters:    map[string]int{"windows_total": 5 * i, "windows_written": 4 * i},
		}
		if err := store.SaveRun(ctx, run); err != nil {
			t.Fatalf("save run: %v", err)
		}
	}

	runs, err := store.RecentRuns(ctx, 10)
	if err != nil {
		t.Fatalf("recent runs: %v", err)
	}
	if len(runs) != 2 || runs[0].Phase != "windows" {
		t.Fatalf("unexpected order: %+v", runs)
	}
	if runs[0].Counters["windows_written"] != 4 || runs[0].Params["ow"] != float64(2) {
		t.Fatalf("round trip mismatch: %+v", runs[0])
	}
	if !runs[0].GeneratedAt.Equal(base.Add(61500 * time.Millisecond)) {
		t.Fatalf("generated_at: %s", runs[0].GeneratedAt)
	}

	limited, err := store.RecentRuns(ctx, 1)
	if err != nil || len(limited) != 1 {
		t.Fatalf("limit: %v %d", err, len(limited))
	}
}

func TestDisabledStore(t *testing.T) {
	store, err := NewStore(config.StorageConfig{Enabled: false})
	if err != nil || store != nil {
		t.Fatalf("disabled store should be nil: %v", err)
	}
}

func TestDollarPlaceholders(t *testing.T) {
	got := dollarPlaceholders("INSERT INTO t (a, b) VALUES (?, ?)")
	if got != "INSERT INTO t (a, b) VALUES ($1, $2)" {
		t.Fatalf("rebind: %s", got)
	}
}
