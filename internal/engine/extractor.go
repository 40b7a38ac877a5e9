package engine

import (
	"log/slog"

	"eventsds/internal/catalog"
	"eventsds/internal/model"
)

const (
	RejectEmpty    = "empty"
	RejectStrategy = "strategy"
	RejectNaN      = "nan"
)

// Sink receives retained windows in batches. Samples alias the event
// stream and the batch slice is reused once WriteBatch returns.
type Sink interface {
	WriteBatch(samples []model.WindowSample) error
}

type Options struct {
	Geometry  Geometry
	Strategy  Strategy
	NaN       model.NaNPolicy
	BatchSize int
	LogEvery  int
}

type Result struct {
	Total    int
	Written  int
	Batches  int
	Rejected map[string]int
}

type Extractor struct {
	opts   Options
	logger *slog.Logger
}

func NewExtractor(opts Options, logger *slog.Logger) (*Extractor, error) {
	if err := opts.Geometry.Validate(); err != nil {
		return nil, err
	}
	if opts.Strategy == nil {
		return nil, model.ConfigErrorf("window strategy is required")
	}
	if opts.BatchSize <= 0 {
		return nil, model.ConfigErrorf("batch_size must be > 0, got %d", opts.BatchSize)
	}
	if opts.NaN == "" {
		opts.NaN = model.NaNDiscard
	}
	return &Extractor{opts: opts, logger: logger}, nil
}

// Extract enumerates candidates, filters them and streams the retained
// windows to sink. measures lists the banded measures; when NaN windows
// are discarded each of them needs a sentinel in cat.
func (e *Extractor) Extract(s *model.EventStream, cat *catalog.Catalog, measures []string, sink Sink) (Result, error) {
	res := Result{Rejected: map[string]int{RejectEmpty: 0, RejectStrategy: 0, RejectNaN: 0}}

	var nan *nanIndex
	if e.opts.NaN == model.NaNDiscard {
		codes := make([]int32, 0, len(measures))
		for _, m := range measures {
			code, err := cat.Resolve(catalog.NaNName(m))
			if err != nil {
				return res, err
			}
			codes = append(codes, code)
		}
		nan = newNaNIndex(s, codes)
	}

	geom := e.opts.Geometry
	loc := newLocator(s.Times, geom)
	cands := e.opts.Strategy.Candidates(s, geom)
	batch := make([]model.WindowSample, 0, e.opts.BatchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := sink.WriteBatch(batch); err != nil {
			return err
		}
		res.Batches++
		batch = batch[:0]
		return nil
	}

	var prev int64
	for t0, ok := cands.Next(); ok; t0, ok = cands.Next() {
		if res.Total > 0 && t0 <= prev {
			return res, model.DataErrorf("window candidates not strictly increasing: %d after %d", t0, prev)
		}
		prev = t0
		res.Total++
		if e.opts.LogEvery > 0 && res.Total%e.opts.LogEvery == 0 && e.logger != nil {
			e.logger.Info("window extraction progress",
				"candidates", res.Total,
				"written", res.Written,
				"t0", t0,
			)
		}

		w := loc.locate(t0)
		if s.CountIn(w.OW0, w.OW1) == 0 && s.CountIn(w.PW0, w.PW1) == 0 {
			res.Rejected[RejectEmpty]++
			continue
		}
		if !e.opts.Strategy.Accept(w, s) {
			res.Rejected[RejectStrategy]++
			continue
		}
		if nan != nil && (nan.contains(w.OW0, w.OW1) || nan.contains(w.PW0, w.PW1)) {
			res.Rejected[RejectNaN]++
			continue
		}

		batch = append(batch, model.WindowSample{
			OWEvents: s.Span(w.OW0, w.OW1),
			PWEvents: s.Span(w.PW0, w.PW1),
		})
		res.Written++
		if len(batch) >= e.opts.BatchSize {
			if err := flush(); err != nil {
				return res, err
			}
		}
	}
	if err := flush(); err != nil {
		return res, err
	}

	if e.logger != nil {
		e.logger.Info("windows extracted",
			"strategy", string(e.opts.Strategy.Name()),
			"windows_total", res.Total,
			"windows_written", res.Written,
			"rejected_empty", res.Rejected[RejectEmpty],
			"rejected_strategy", res.Rejected[RejectStrategy],
			"rejected_nan", res.Rejected[RejectNaN],
			"batches", res.Batches,
		)
	}
	return res, nil
}
