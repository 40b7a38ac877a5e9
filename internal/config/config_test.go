package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"eventsds/internal/model"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadYAMLAppliesDefaults(t *testing.T) {
	path := writeConfig(t, "cfg.yaml", `
input:
  path: data/matrix.csv
windows:
  ow: 6
  lt: 2
  pw: 3
  window_strategy: ASYNOW
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Windows.OW != 6 || cfg.Windows.LT != 2 || cfg.Windows.PW != 3 {
		t.Fatalf("windows: %+v", cfg.Windows)
	}
	if cfg.Windows.BatchSize != 10000 || cfg.Windows.NaNStrategy != "discard" {
		t.Fatalf("window defaults not applied: %+v", cfg.Windows)
	}
	if len(cfg.Events.BandThresholdsPct) != 3 || cfg.Events.EventStrategy != "both" {
		t.Fatalf("event defaults not applied: %+v", cfg.Events)
	}
	if cfg.Artifacts.Driver != "fs" || cfg.Storage.Driver != "sqlite" {
		t.Fatalf("driver defaults not applied")
	}
}

func TestLoadJSON(t *testing.T) {
	path := writeConfig(t, "cfg.json", `{"events":{"tu":60,"band_thresholds_pct":[25,75]},"windows":{"ow":1,"pw":1}}`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Events.Tu != 60 || cfg.Events.BandThresholdsPct[1] != 75 {
		t.Fatalf("events: %+v", cfg.Events)
	}
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]func(*Config){
		"window strategy": func(c *Config) { c.Windows.WindowStrategy = "sliding" },
		"event strategy":  func(c *Config) { c.Events.EventStrategy = "edges" },
		"nan strategy":    func(c *Config) { c.Windows.NaNStrategy = "drop" },
		"zero ow":         func(c *Config) { c.Windows.OW = 0 },
		"zero pw":         func(c *Config) { c.Windows.PW = 0 },
		"negative lt":     func(c *Config) { c.Windows.LT = -1 },
		"batch size":      func(c *Config) { c.Windows.BatchSize = -5 },
		"thresholds":      func(c *Config) { c.Events.BandThresholdsPct = []float64{60, 40} },
		"threshold range": func(c *Config) { c.Events.BandThresholdsPct = []float64{0, 50} },
		"negative tu":     func(c *Config) { c.Events.Tu = -10 },
		"timezone":        func(c *Config) { c.Input.Timezone = "Mars/Olympus" },
		"redis addr": func(c *Config) {
			c.Artifacts.Driver = "redis"
			c.Artifacts.Redis.Addr = ""
		},
		"notify": func(c *Config) { c.Notify.Enabled = true },
		"storage": func(c *Config) {
			c.Storage.Enabled = true
			c.Storage.Driver = "mysql"
		},
	}
	for name, mutate := range cases {
		cfg := DefaultConfig()
		mutate(cfg)
		if err := Validate(cfg); !errors.Is(err, model.ErrConfiguration) {
			t.Fatalf("%s: expected configuration error, got %v", name, err)
		}
	}
	if err := Validate(DefaultConfig()); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "saved.yaml")
	cfg := DefaultConfig()
	cfg.Windows.OW = 12
	cfg.Notify = NotifyConfig{Enabled: true, Brokers: []string{"localhost:9092"}, Topic: "eventsds.runs"}
	if err := Save(path, cfg); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Windows.OW != 12 || got.Notify.Topic != "eventsds.runs" {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestLoadEmpty(t *testing.T) {
	path := writeConfig(t, "empty.yaml", "   \n")
	if _, err := Load(path); !errors.Is(err, model.ErrConfiguration) {
		t.Fatalf("expected configuration error for empty config, got %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); !errors.Is(err, model.ErrConfiguration) {
		t.Fatalf("expected configuration error for missing config, got %v", err)
	}
}
