package pipeline

import (
	"context"

	"eventsds/internal/artifacts"
	"eventsds/internal/bands"
	"eventsds/internal/catalog"
	"eventsds/internal/events"
	"eventsds/internal/ingest"
	"eventsds/internal/model"
	"eventsds/internal/normalize"
	"eventsds/internal/sink"
)

// RunEvents loads the measurement matrix, derives bands and the catalog,
// and writes the event stream with its statistics and metadata.
func (r *Runner) RunEvents(ctx context.Context) (run model.RunMetadata, err error) {
	cfg := r.cfg
	run = r.newRun(PhaseEvents)
	run.Dataset = cfg.Input.Path

	strategy, err := model.ParseEventStrategy(cfg.Events.EventStrategy)
	if err != nil {
		return run, err
	}
	nanHandling, err := model.ParseNaNPolicy(cfg.Events.NaNHandling)
	if err != nil {
		return run, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return run, err
	}
	if cfg.Input.Path == "" {
		return run, model.ConfigErrorf("input.path is required")
	}

	m, err := ingest.Load(cfg.Input.Path, ingest.Options{
		Format:     cfg.Input.Format,
		TimeColumn: cfg.Input.TimeColumn,
		Columns:    cfg.Input.Columns,
		Location:   loc,
	}, r.logger)
	if err != nil {
		return run, err
	}
	r.recorder.RowsRead.Add(float64(m.Len()))

	run.Tu, run.TuSource = cfg.Events.Tu, TuFromConfig
	if run.Tu <= 0 {
		if run.Tu, err = normalize.InferTu(m.Times); err != nil {
			return run, err
		}
		run.TuSource = TuInferred
	}
	r.logger.Info("sampling period resolved", "tu", run.Tu, "source", run.TuSource)

	b, err := bands.DefineAll(m, cfg.Events.BandThresholdsPct)
	if err != nil {
		return run, err
	}
	cat := catalog.Build(b, strategy, nanHandling)

	store, err := artifacts.New(ctx, cfg.Artifacts, cfg.Output.EventsDir)
	if err != nil {
		return run, err
	}
	defer store.Close()
	out := &outputs{artifacts: store}
	defer func() {
		if err != nil {
			if rerr := out.rollback(ctx); rerr != nil {
				r.logger.Error("rollback failed", "phase", PhaseEvents, "err", rerr)
			}
		}
	}()
	if err = store.PutBands(ctx, b); err != nil {
		return run, err
	}
	if err = store.PutCatalog(ctx, cat); err != nil {
		return run, err
	}
	r.logger.Info("catalog stored",
		"event_types", cat.Len(),
		"bands", store.Location(artifacts.BandsName),
		"catalog", store.Location(artifacts.CatalogName),
	)

	stream, err := events.NewGenerator(events.Options{Tu: run.Tu, Strategy: strategy, NaN: nanHandling}, r.logger).Generate(m, b, cat)
	if err != nil {
		return run, err
	}
	r.recorder.EventsEmitted.Add(float64(len(stream.Codes)))

	dir := cfg.Output.EventsDir
	if err = invalidate(join(dir, EventsMetadataFile)); err != nil {
		return run, err
	}
	if err = sink.WriteStream(join(dir, StreamFile), stream); err != nil {
		return run, err
	}
	out.add(join(dir, StreamFile))

	summary := events.Summarize(stream, cat, b.Measures())
	if err = sink.WriteJSON(join(dir, StatsFile), summary); err != nil {
		return run, err
	}
	out.add(join(dir, StatsFile))

	run.Params = map[string]any{
		"time_column":         m.TimeColumn,
		"measures":            m.Measures,
		"band_thresholds_pct": cfg.Events.BandThresholdsPct,
		"event_strategy":      string(strategy),
		"nan_handling":        string(nanHandling),
	}
	run.Counters = map[string]int{
		"rows_in":          m.Len(),
		"rows_out":         stream.Len(),
		"event_types":      cat.Len(),
		"events":           summary.Events,
		"rows_with_events": summary.RowsWithEvents,
		"distinct_events":  summary.DistinctEvents,
	}
	r.stamp(&run)
	if err = sink.WriteJSON(join(dir, EventsMetadataFile), run); err != nil {
		return run, err
	}
	r.report(ctx, run)
	return run, nil
}
