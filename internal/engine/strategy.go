package engine

import (
	"eventsds/internal/model"
)

// Candidates yields window start times in strictly increasing order.
type Candidates interface {
	Next() (int64, bool)
}

// Strategy decides where windows may start and which located windows are
// kept. The extractor applies the shared both-empty rule before Accept.
type Strategy interface {
	Name() model.WindowStrategy
	Candidates(s *model.EventStream, g Geometry) Candidates
	Accept(w Window, s *model.EventStream) bool
}

func NewStrategy(name model.WindowStrategy) (Strategy, error) {
	switch name {
	case model.WindowSynchro:
		return synchro{}, nil
	case model.WindowAsynOW:
		return asynOW{}, nil
	case model.WindowWithinPW:
		return withinPW{}, nil
	case model.WindowAsynPW:
		return asynPW{}, nil
	default:
		return nil, model.ConfigErrorf("unknown window strategy %q", name)
	}
}

// denseCandidates steps by Tu from the first timestamp while the whole
// window still ends at or before the last timestamp.
type denseCandidates struct {
	next int64
	last int64
	step int64
	done bool
}

func newDense(s *model.EventStream, g Geometry) *denseCandidates {
	if s.Len() == 0 {
		return &denseCandidates{done: true}
	}
	return &denseCandidates{
		next: s.Times[0],
		last: s.Times[s.Len()-1] - g.Span(),
		step: g.Tu,
	}
}

func (d *denseCandidates) Next() (int64, bool) {
	if d.done || d.next > d.last {
		d.done = true
		return 0, false
	}
	t0 := d.next
	d.next += d.step
	return t0, true
}

// activeBins walks rows with at least one event and yields the start of
// their Tu bucket, measured from the first timestamp. Consecutive rows in
// the same bucket yield it once.
type activeBins struct {
	s      *model.EventStream
	origin int64
	tu     int64
	last   int64
	row    int
	prev   int64
	seen   bool
}

func newActiveBins(s *model.EventStream, g Geometry) *activeBins {
	b := &activeBins{s: s, tu: g.Tu, row: s.Len()}
	if s.Len() > 0 {
		b.origin = s.Times[0]
		b.last = s.Times[s.Len()-1] - g.Span()
		b.row = 0
	}
	return b
}

func (b *activeBins) Next() (int64, bool) {
	for ; b.row < b.s.Len(); b.row++ {
		if b.s.CountIn(b.row, b.row+1) == 0 {
			continue
		}
		t0 := b.origin + ((b.s.Times[b.row]-b.origin)/b.tu)*b.tu
		if t0 > b.last {
			b.row = b.s.Len()
			return 0, false
		}
		if b.seen && t0 == b.prev {
			continue
		}
		b.prev, b.seen = t0, true
		b.row++
		return t0, true
	}
	return 0, false
}

type synchro struct{}

func (synchro) Name() model.WindowStrategy { return model.WindowSynchro }

func (synchro) Candidates(s *model.EventStream, g Geometry) Candidates { return newDense(s, g) }

func (synchro) Accept(Window, *model.EventStream) bool { return true }

type asynOW struct{}

func (asynOW) Name() model.WindowStrategy { return model.WindowAsynOW }

func (asynOW) Candidates(s *model.EventStream, g Geometry) Candidates { return newActiveBins(s, g) }

func (asynOW) Accept(w Window, s *model.EventStream) bool {
	return s.CountIn(w.OW0, w.OW1) > 0
}

type withinPW struct{}

func (withinPW) Name() model.WindowStrategy { return model.WindowWithinPW }

func (withinPW) Candidates(s *model.EventStream, g Geometry) Candidates { return newDense(s, g) }

func (withinPW) Accept(w Window, s *model.EventStream) bool {
	return s.CountIn(w.PW0, w.PW1) > 0
}

type asynPW struct{}

func (asynPW) Name() model.WindowStrategy { return model.WindowAsynPW }

func (asynPW) Candidates(s *model.EventStream, g Geometry) Candidates { return newDense(s, g) }

// Accept keeps windows with an event in the first Tu of the prediction
// window, right after the lead gap.
func (asynPW) Accept(w Window, s *model.EventStream) bool {
	return s.CountIn(w.PW0, w.PWHead) > 0
}
