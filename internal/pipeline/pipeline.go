package pipeline

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"eventsds/internal/artifacts"
	"eventsds/internal/config"
	"eventsds/internal/metrics"
	"eventsds/internal/model"
	"eventsds/internal/notify"
	"eventsds/internal/storage"
)

const (
	PhaseEvents  = "events"
	PhaseWindows = "windows"

	StreamFile          = "events_stream.parquet"
	StatsFile           = "events_stats.json"
	EventsMetadataFile  = "events_metadata.json"
	WindowsFile         = "windows.parquet"
	WindowsMetadataFile = "windows_metadata.json"

	TuFromConfig         = "config"
	TuInferred           = "inferred"
	TuFromEventsMetadata = "events_metadata"
)

// Runner executes the two batch phases. Each phase either commits all of its
// outputs or leaves none of the files it started.
type Runner struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    storage.Store
	recorder *metrics.Recorder
	notifier *notify.Publisher
	now      func() time.Time
}

type Option func(*Runner)

func WithStore(s storage.Store) Option {
	return func(r *Runner) { r.store = s }
}

func WithRecorder(m *metrics.Recorder) Option {
	return func(r *Runner) { r.recorder = m }
}

func WithNotifier(p *notify.Publisher) Option {
	return func(r *Runner) { r.notifier = p }
}

func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

func NewRunner(cfg *config.Config, logger *slog.Logger, opts ...Option) *Runner {
	r := &Runner{cfg: cfg, logger: logger, now: time.Now}
	for _, o := range opts {
		o(r)
	}
	if r.recorder == nil {
		r.recorder = metrics.NewRecorder()
	}
	if r.logger == nil {
		r.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return r
}

func (r *Runner) Recorder() *metrics.Recorder {
	return r.recorder
}

// Run executes the events phase followed by the windows phase.
func (r *Runner) Run(ctx context.Context) ([]model.RunMetadata, error) {
	ev, err := r.RunEvents(ctx)
	if err != nil {
		return nil, err
	}
	win, err := r.RunWindows(ctx)
	if err != nil {
		return []model.RunMetadata{ev}, err
	}
	return []model.RunMetadata{ev, win}, nil
}

func (r *Runner) newRun(phase string) model.RunMetadata {
	return model.RunMetadata{
		ID:        uuid.NewString(),
		Phase:     phase,
		StartedAt: r.now().UTC(),
		Params:    map[string]any{},
		Counters:  map[string]int{},
	}
}

func (r *Runner) stamp(run *model.RunMetadata) {
	run.GeneratedAt = r.now().UTC()
	run.Elapsed = run.GeneratedAt.Sub(run.StartedAt).Seconds()
}

// report publishes a committed run. Outputs are already in place, so audit
// and notification failures are logged rather than returned.
func (r *Runner) report(ctx context.Context, run model.RunMetadata) {
	r.recorder.PhaseDone(run.Phase, run.GeneratedAt.Sub(run.StartedAt), run.GeneratedAt)
	if r.store != nil {
		if err := r.store.SaveRun(ctx, run); err != nil {
			r.logger.Warn("run audit failed", "run_id", run.ID, "err", err)
		}
	}
	if err := r.notifier.RunCompleted(ctx, run); err != nil {
		r.logger.Warn("run notification failed", "run_id", run.ID, "err", err)
	}
	if err := r.recorder.WriteTextfile(r.cfg.Metrics.Textfile); err != nil {
		r.logger.Warn("metrics textfile export failed", "path", r.cfg.Metrics.Textfile, "err", err)
	}
	r.logger.Info("phase completed",
		"phase", run.Phase,
		"run_id", run.ID,
		"elapsed", run.Elapsed,
	)
}

// outputs tracks the files a phase has committed so far and removes them if
// the phase fails later on. artifacts, when set, drops the bands and catalog
// the phase created.
type outputs struct {
	paths     []string
	artifacts *artifacts.Store
}

func (o *outputs) add(path string) {
	o.paths = append(o.paths, path)
}

func (o *outputs) rollback(ctx context.Context) error {
	var err error
	if o.artifacts != nil {
		err = o.artifacts.Rollback(ctx)
	}
	for _, p := range o.paths {
		if rerr := os.Remove(p); rerr != nil && !errors.Is(rerr, fs.ErrNotExist) {
			err = multierr.Append(err, rerr)
		}
	}
	return err
}

// invalidate removes a previous run's metadata so that a failed run never
// leaves metadata describing outputs it replaced.
func invalidate(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func join(dir, name string) string {
	return filepath.Join(dir, name)
}
