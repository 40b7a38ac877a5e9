package events

import (
	"log/slog"

	"eventsds/internal/bands"
	"eventsds/internal/catalog"
	"eventsds/internal/model"
)

type Options struct {
	Tu       int64
	Strategy model.EventStrategy
	NaN      model.NaNPolicy
}

// codeTable holds every code one measure can emit, resolved before the walk.
type codeTable struct {
	level      []int32
	transition [][]int32 // [from][to], 0 on the diagonal
	nan        int32
}

// bandState is the per-measure reading carried from one row to the next.
type bandState struct {
	kind  bands.Kind
	label int
}

type Generator struct {
	opts   Options
	logger *slog.Logger
}

func NewGenerator(opts Options, logger *slog.Logger) *Generator {
	return &Generator{opts: opts, logger: logger}
}

// Generate walks the matrix once and returns one event row per timestamp.
// Every measure of m must have a band definition and every code the
// configuration can produce must be present in cat.
func (g *Generator) Generate(m *model.Matrix, b *model.Bands, cat *catalog.Catalog) (*model.EventStream, error) {
	if g.opts.Tu <= 0 {
		return nil, model.ConfigErrorf("tu must be > 0, got %d", g.opts.Tu)
	}
	n := m.Len()
	for i := 1; i < n; i++ {
		if m.Times[i] <= m.Times[i-1] {
			return nil, model.DataErrorf("timestamps not strictly increasing at row %d (%d after %d)", i, m.Times[i], m.Times[i-1])
		}
	}

	tables := make([]codeTable, len(m.Measures))
	kinds := make([][]bands.Kind, len(m.Measures))
	labels := make([][]int, len(m.Measures))
	for j, measure := range m.Measures {
		def, ok := b.Get(measure)
		if !ok {
			return nil, model.DataErrorf("no band definition for measure %q", measure)
		}
		table, err := g.resolve(cat, measure, def)
		if err != nil {
			return nil, err
		}
		tables[j] = table
		kinds[j], labels[j] = bands.Assign(m.Values[j], def)
	}

	stream := model.NewEventStream(n)
	prev := make([]bandState, len(m.Measures))
	row := make([]int32, 0, 2*len(m.Measures))
	for i := 0; i < n; i++ {
		consecutive := i > 0 && m.Times[i]-m.Times[i-1] == g.opts.Tu
		row = row[:0]
		for j := range m.Measures {
			curr := bandState{kind: kinds[j][i], label: labels[j][i]}
			row = g.emit(row, tables[j], prev[j], curr, consecutive)
			prev[j] = curr
		}
		stream.AppendRow(m.Times[i], row)
	}

	if g.logger != nil {
		g.logger.Info("event stream generated",
			"rows", n,
			"measures", len(m.Measures),
			"events", len(stream.Codes),
			"tu", g.opts.Tu,
			"event_strategy", string(g.opts.Strategy),
			"nan_handling", string(g.opts.NaN),
		)
	}
	return stream, nil
}

func (g *Generator) emit(row []int32, t codeTable, prev, curr bandState, consecutive bool) []int32 {
	if consecutive && g.opts.Strategy.Transitions() &&
		prev.kind == bands.KindBand && curr.kind == bands.KindBand && prev.label != curr.label {
		row = append(row, t.transition[prev.label][curr.label])
	}
	switch curr.kind {
	case bands.KindBand:
		if g.opts.Strategy.Levels() {
			row = append(row, t.level[curr.label])
		}
	case bands.KindNaN:
		if g.opts.NaN == model.NaNKeep {
			row = append(row, t.nan)
		}
	}
	return row
}

func (g *Generator) resolve(cat *catalog.Catalog, measure string, def model.BandDefinition) (codeTable, error) {
	var t codeTable
	var err error
	if g.opts.Strategy.Levels() {
		t.level = make([]int32, len(def.Labels))
		for i, label := range def.Labels {
			if t.level[i], err = cat.Resolve(catalog.LevelName(measure, label)); err != nil {
				return t, err
			}
		}
	}
	if g.opts.Strategy.Transitions() {
		t.transition = make([][]int32, len(def.Labels))
		for a, from := range def.Labels {
			t.transition[a] = make([]int32, len(def.Labels))
			for c, to := range def.Labels {
				if a == c {
					continue
				}
				if t.transition[a][c], err = cat.Resolve(catalog.TransitionName(measure, from, to)); err != nil {
					return t, err
				}
			}
		}
	}
	if g.opts.NaN == model.NaNKeep {
		if t.nan, err = cat.Resolve(catalog.NaNName(measure)); err != nil {
			return t, err
		}
	}
	return t, nil
}
