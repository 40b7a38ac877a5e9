package pipeline

import (
	"context"
	"errors"
	"io/fs"

	"eventsds/internal/artifacts"
	"eventsds/internal/engine"
	"eventsds/internal/model"
	"eventsds/internal/sink"
)

// RunWindows reads the committed events-phase outputs and writes the
// windows dataset for the configured geometry and strategy.
func (r *Runner) RunWindows(ctx context.Context) (run model.RunMetadata, err error) {
	cfg := r.cfg
	run = r.newRun(PhaseWindows)

	strategyName, err := model.ParseWindowStrategy(cfg.Windows.WindowStrategy)
	if err != nil {
		return run, err
	}
	nanStrategy, err := model.ParseNaNPolicy(cfg.Windows.NaNStrategy)
	if err != nil {
		return run, err
	}
	strategy, err := engine.NewStrategy(strategyName)
	if err != nil {
		return run, err
	}

	eventsDir := cfg.Output.EventsDir
	var upstream model.RunMetadata
	haveUpstream := true
	if err := sink.ReadJSON(join(eventsDir, EventsMetadataFile), &upstream); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return run, model.DataErrorf("read %s: %v", join(eventsDir, EventsMetadataFile), err)
		}
		haveUpstream = false
	}
	run.Dataset = upstream.Dataset

	run.Tu, run.TuSource = cfg.Windows.Tu, TuFromConfig
	if run.Tu <= 0 {
		if !haveUpstream || upstream.Tu <= 0 {
			return run, model.ConfigErrorf("windows.tu is not set and no events metadata provides one")
		}
		run.Tu, run.TuSource = upstream.Tu, TuFromEventsMetadata
	}

	ex, err := engine.NewExtractor(engine.Options{
		Geometry: engine.Geometry{
			Tu: run.Tu,
			OW: cfg.Windows.OW,
			LT: cfg.Windows.LT,
			PW: cfg.Windows.PW,
		},
		Strategy:  strategy,
		NaN:       nanStrategy,
		BatchSize: cfg.Windows.BatchSize,
		LogEvery:  cfg.Windows.LogEvery,
	}, r.logger)
	if err != nil {
		return run, err
	}

	store, err := artifacts.New(ctx, cfg.Artifacts, eventsDir)
	if err != nil {
		return run, err
	}
	defer store.Close()
	cat, err := store.Catalog(ctx)
	if err != nil {
		return run, err
	}
	b, err := store.Bands(ctx)
	if err != nil {
		return run, err
	}

	stream, err := sink.ReadStream(join(eventsDir, StreamFile))
	if err != nil {
		return run, err
	}
	r.logger.Info("event stream loaded", "rows", stream.Len(), "events", len(stream.Codes), "event_types", cat.Len())

	dir := cfg.Output.WindowsDir
	if err = invalidate(join(dir, WindowsMetadataFile)); err != nil {
		return run, err
	}
	out := &outputs{}
	defer func() {
		if err != nil {
			if rerr := out.rollback(ctx); rerr != nil {
				r.logger.Error("rollback failed", "phase", PhaseWindows, "err", rerr)
			}
		}
	}()

	w, err := sink.Create[model.WindowSample](join(dir, WindowsFile))
	if err != nil {
		return run, err
	}
	res, err := ex.Extract(stream, cat, b.Measures(), w)
	if err != nil {
		if aerr := w.Abort(); aerr != nil {
			r.logger.Error("abort windows dataset", "path", w.Path(), "err", aerr)
		}
		return run, err
	}
	if err = w.Commit(); err != nil {
		return run, err
	}
	out.add(w.Path())
	r.recorder.Windows(string(strategyName), res.Total, res.Written, res.Rejected)

	run.Params = map[string]any{
		"OW":              cfg.Windows.OW,
		"LT":              cfg.Windows.LT,
		"PW":              cfg.Windows.PW,
		"window_strategy": string(strategyName),
		"nan_strategy":    string(nanStrategy),
		"batch_size":      cfg.Windows.BatchSize,
		"events_run_id":   upstream.ID,
	}
	run.Counters = map[string]int{
		"windows_total":     res.Total,
		"windows_written":   res.Written,
		"rejected_empty":    res.Rejected[engine.RejectEmpty],
		"rejected_strategy": res.Rejected[engine.RejectStrategy],
		"rejected_nan":      res.Rejected[engine.RejectNaN],
		"batches":           res.Batches,
	}
	r.stamp(&run)
	if err = sink.WriteJSON(join(dir, WindowsMetadataFile), run); err != nil {
		return run, err
	}
	r.report(ctx, run)
	return run, nil
}
