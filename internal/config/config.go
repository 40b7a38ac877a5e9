package config

import (
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"eventsds/internal/bands"
	"eventsds/internal/model"
)

type Config struct {
	LogLevel  string          `json:"log_level" yaml:"log_level"`
	LogFormat string          `json:"log_format" yaml:"log_format"`
	Input     InputConfig     `json:"input" yaml:"input"`
	Events    EventsConfig    `json:"events" yaml:"events"`
	Windows   WindowsConfig   `json:"windows" yaml:"windows"`
	Output    OutputConfig    `json:"output" yaml:"output"`
	Artifacts ArtifactsConfig `json:"artifacts" yaml:"artifacts"`
	Storage   StorageConfig   `json:"storage" yaml:"storage"`
	Metrics   MetricsConfig   `json:"metrics" yaml:"metrics"`
	Notify    NotifyConfig    `json:"notify" yaml:"notify"`
}

type InputConfig struct {
	Path       string   `json:"path" yaml:"path"`
	Format     string   `json:"format" yaml:"format"`
	TimeColumn string   `json:"time_column" yaml:"time_column"`
	Columns    []string `json:"columns" yaml:"columns"`
	Timezone   string   `json:"timezone" yaml:"timezone"`
}

type EventsConfig struct {
	Tu                int64     `json:"tu" yaml:"tu"`
	BandThresholdsPct []float64 `json:"band_thresholds_pct" yaml:"band_thresholds_pct"`
	EventStrategy     string    `json:"event_strategy" yaml:"event_strategy"`
	NaNHandling       string    `json:"nan_handling" yaml:"nan_handling"`
}

// WindowsConfig sizes are in Tu units.
type WindowsConfig struct {
	OW             int64  `json:"ow" yaml:"ow"`
	LT             int64  `json:"lt" yaml:"lt"`
	PW             int64  `json:"pw" yaml:"pw"`
	Tu             int64  `json:"tu" yaml:"tu"`
	NaNStrategy    string `json:"nan_strategy" yaml:"nan_strategy"`
	WindowStrategy string `json:"window_strategy" yaml:"window_strategy"`
	BatchSize      int    `json:"batch_size" yaml:"batch_size"`
	LogEvery       int    `json:"log_every" yaml:"log_every"`
}

type OutputConfig struct {
	EventsDir  string `json:"events_dir" yaml:"events_dir"`
	WindowsDir string `json:"windows_dir" yaml:"windows_dir"`
}

type ArtifactsConfig struct {
	Driver    string      `json:"driver" yaml:"driver"`
	Namespace string      `json:"namespace" yaml:"namespace"`
	Redis     RedisConfig `json:"redis" yaml:"redis"`
}

type RedisConfig struct {
	Addr     string `json:"addr" yaml:"addr"`
	Password string `json:"password" yaml:"password"`
	DB       int    `json:"db" yaml:"db"`
	Prefix   string `json:"prefix" yaml:"prefix"`
}

type StorageConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Driver  string `json:"driver" yaml:"driver"`
	DSN     string `json:"dsn" yaml:"dsn"`
}

type MetricsConfig struct {
	Textfile string `json:"textfile" yaml:"textfile"`
}

type NotifyConfig struct {
	Enabled bool     `json:"enabled" yaml:"enabled"`
	Brokers []string `json:"brokers" yaml:"brokers"`
	Topic   string   `json:"topic" yaml:"topic"`
}

func DefaultConfig() *Config {
	return &Config{
		LogLevel:  "info",
		LogFormat: "json",
		Input:     InputConfig{Timezone: "UTC"},
		Events: EventsConfig{
			BandThresholdsPct: []float64{40, 60, 90},
			EventStrategy:     string(model.EventBoth),
			NaNHandling:       string(model.NaNKeep),
		},
		Windows: WindowsConfig{
			OW:             1,
			LT:             0,
			PW:             1,
			NaNStrategy:    string(model.NaNDiscard),
			WindowStrategy: string(model.WindowSynchro),
			BatchSize:      10000,
			LogEvery:       100000,
		},
		Output:    OutputConfig{EventsDir: "out/events", WindowsDir: "out/windows"},
		Artifacts: ArtifactsConfig{Driver: "fs", Namespace: "default", Redis: RedisConfig{Addr: "localhost:6379", Prefix: "eventsds"}},
		Storage:   StorageConfig{Enabled: false, Driver: "sqlite", DSN: "file:eventsds.db?_pragma=busy_timeout(5000)"},
	}
}

func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, model.ConfigErrorf("open config: %v", err)
	}
	defer f.Close()
	content, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()

	trimmed := strings.TrimSpace(string(content))
	if len(trimmed) == 0 {
		return nil, model.ConfigErrorf("config file %s is empty", path)
	}
	var decodeErr error
	if looksLikeJSON(trimmed) {
		decodeErr = json.Unmarshal([]byte(trimmed), cfg)
	} else {
		decodeErr = yaml.Unmarshal([]byte(trimmed), cfg)
	}
	if decodeErr != nil {
		return nil, model.ConfigErrorf("decode %s: %v", path, decodeErr)
	}
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	if path == "" || cfg == nil {
		return errors.New("config path or config is empty")
	}
	var data []byte
	var err error
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".json" {
		data, err = json.MarshalIndent(cfg, "", "  ")
	} else {
		data, err = yaml.Marshal(cfg)
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func looksLikeJSON(s string) bool {
	for _, ch := range s {
		if ch == '{' || ch == '[' {
			return true
		}
		if ch > ' ' {
			return false
		}
	}
	return false
}

func applyDefaults(cfg *Config) {
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "json"
	}
	if cfg.Input.Timezone == "" {
		cfg.Input.Timezone = "UTC"
	}
	if len(cfg.Events.BandThresholdsPct) == 0 {
		cfg.Events.BandThresholdsPct = []float64{40, 60, 90}
	}
	if cfg.Events.EventStrategy == "" {
		cfg.Events.EventStrategy = string(model.EventBoth)
	}
	if cfg.Events.NaNHandling == "" {
		cfg.Events.NaNHandling = string(model.NaNKeep)
	}
	if cfg.Windows.NaNStrategy == "" {
		cfg.Windows.NaNStrategy = string(model.NaNDiscard)
	}
	if cfg.Windows.WindowStrategy == "" {
		cfg.Windows.WindowStrategy = string(model.WindowSynchro)
	}
	if cfg.Windows.BatchSize == 0 {
		cfg.Windows.BatchSize = 10000
	}
	if cfg.Windows.LogEvery <= 0 {
		cfg.Windows.LogEvery = 100000
	}
	if cfg.Output.EventsDir == "" {
		cfg.Output.EventsDir = "out/events"
	}
	if cfg.Output.WindowsDir == "" {
		cfg.Output.WindowsDir = "out/windows"
	}
	if cfg.Artifacts.Driver == "" {
		cfg.Artifacts.Driver = "fs"
	}
	if cfg.Artifacts.Namespace == "" {
		cfg.Artifacts.Namespace = "default"
	}
	if cfg.Artifacts.Redis.Prefix == "" {
		cfg.Artifacts.Redis.Prefix = "eventsds"
	}
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = "sqlite"
	}
}

// Validate checks every field a phase depends on. All failures are
// configuration errors.
func Validate(cfg *Config) error {
	if _, err := model.ParseEventStrategy(cfg.Events.EventStrategy); err != nil {
		return err
	}
	if _, err := model.ParseNaNPolicy(cfg.Events.NaNHandling); err != nil {
		return err
	}
	if _, err := model.ParseNaNPolicy(cfg.Windows.NaNStrategy); err != nil {
		return err
	}
	if _, err := model.ParseWindowStrategy(cfg.Windows.WindowStrategy); err != nil {
		return err
	}
	if err := bands.ValidateThresholds(cfg.Events.BandThresholdsPct); err != nil {
		return err
	}
	if cfg.Events.Tu < 0 {
		return model.ConfigErrorf("events.tu must be >= 0, got %d", cfg.Events.Tu)
	}
	if cfg.Windows.Tu < 0 {
		return model.ConfigErrorf("windows.tu must be >= 0, got %d", cfg.Windows.Tu)
	}
	if cfg.Windows.OW <= 0 {
		return model.ConfigErrorf("windows.ow must be > 0, got %d", cfg.Windows.OW)
	}
	if cfg.Windows.PW <= 0 {
		return model.ConfigErrorf("windows.pw must be > 0, got %d", cfg.Windows.PW)
	}
	if cfg.Windows.LT < 0 {
		return model.ConfigErrorf("windows.lt must be >= 0, got %d", cfg.Windows.LT)
	}
	if cfg.Windows.BatchSize <= 0 {
		return model.ConfigErrorf("windows.batch_size must be > 0, got %d", cfg.Windows.BatchSize)
	}
	switch strings.ToLower(cfg.LogFormat) {
	case "json", "text":
	default:
		return model.ConfigErrorf("log_format must be json or text, got %q", cfg.LogFormat)
	}
	if _, err := cfg.Location(); err != nil {
		return err
	}
	switch cfg.Artifacts.Driver {
	case "fs":
	case "redis":
		if cfg.Artifacts.Redis.Addr == "" {
			return model.ConfigErrorf("artifacts.redis.addr required when artifacts.driver is redis")
		}
	default:
		return model.ConfigErrorf("unknown artifacts.driver %q", cfg.Artifacts.Driver)
	}
	if cfg.Storage.Enabled {
		switch strings.ToLower(cfg.Storage.Driver) {
		case "sqlite", "postgres", "postgresql", "pgx":
		default:
			return model.ConfigErrorf("unknown storage.driver %q", cfg.Storage.Driver)
		}
	}
	if cfg.Notify.Enabled && (len(cfg.Notify.Brokers) == 0 || cfg.Notify.Topic == "") {
		return model.ConfigErrorf("notify requires brokers and topic")
	}
	return nil
}

// Location resolves input.timezone for textual timestamps.
func (c *Config) Location() (*time.Location, error) {
	if c.Input.Timezone == "" || strings.EqualFold(c.Input.Timezone, "UTC") {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Input.Timezone)
	if err != nil {
		return nil, model.ConfigErrorf("input.timezone %q: %v", c.Input.Timezone, err)
	}
	return loc, nil
}

func ResolvePath(path string) string {
	if path == "" {
		return path
	}
	if filepath.IsAbs(path) {
		return path
	}
	cwd, err := os.Getwd()
	if err != nil {
		return path
	}
	return filepath.Join(cwd, path)
}
