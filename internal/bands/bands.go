// Package bands discretizes continuous readings into labeled value bands.
//
// Cut points are linear over a measure's observed range: with thresholds
// p_1 < ... < p_k (percent of range), the cuts are min + p/100*(max-min) for
// p in [0, p_1, ..., p_k, 100]. Band j covers [cut_j, cut_j+1) and the last
// band is closed on both ends, so every finite value in [min, max] falls in
// exactly one band.
package bands

import (
	"math"
	"sort"
	"strconv"

	"gonum.org/v1/gonum/floats"

	"eventsds/internal/model"
)

type Kind uint8

const (
	// KindNone marks a finite reading outside [min, max].
	KindNone Kind = iota
	KindBand
	KindNaN
)

func (k Kind) String() string {
	switch k {
	case KindBand:
		return "band"
	case KindNaN:
		return "NaN"
	}
	return "none"
}

const degenerateLabel = "0_100"

// ValidateThresholds checks that thresholds are strictly ascending and lie
// strictly between 0 and 100.
func ValidateThresholds(pct []float64) error {
	for i, p := range pct {
		if math.IsNaN(p) || p <= 0 || p >= 100 {
			return model.ConfigErrorf("band_thresholds_pct[%d]=%v must be strictly between 0 and 100", i, p)
		}
		if i > 0 && p <= pct[i-1] {
			return model.ConfigErrorf("band_thresholds_pct must be strictly ascending (%v after %v)", p, pct[i-1])
		}
	}
	return nil
}

// Define builds the band definition for a measure observed in [min, max].
func Define(min, max float64, pct []float64) (model.BandDefinition, error) {
	if err := ValidateThresholds(pct); err != nil {
		return model.BandDefinition{}, err
	}
	if math.IsNaN(min) || math.IsNaN(max) || math.IsInf(min, 0) || math.IsInf(max, 0) || min > max {
		return model.BandDefinition{}, model.DataErrorf("invalid measure range [%v, %v]", min, max)
	}
	if min == max {
		return model.BandDefinition{Cuts: []float64{min, max}, Labels: []string{degenerateLabel}}, nil
	}
	points := make([]float64, 0, len(pct)+2)
	points = append(points, 0)
	points = append(points, pct...)
	points = append(points, 100)

	r := max - min
	cuts := make([]float64, len(points))
	labels := make([]string, len(points)-1)
	for i, p := range points {
		cuts[i] = min + p/100*r
	}
	// pin the edges so rounding never leaves min or max unassigned
	cuts[0] = min
	cuts[len(cuts)-1] = max
	for i := 0; i < len(labels); i++ {
		labels[i] = formatPct(points[i]) + "_" + formatPct(points[i+1])
	}
	return model.BandDefinition{Cuts: cuts, Labels: labels}, nil
}

func formatPct(p float64) string {
	return strconv.FormatFloat(p, 'f', -1, 64)
}

// Range returns the min and max of the finite readings. ok is false when the
// column holds no finite value.
func Range(values []float64) (min, max float64, ok bool) {
	finite := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			finite = append(finite, v)
		}
	}
	if len(finite) == 0 {
		return 0, 0, false
	}
	return floats.Min(finite), floats.Max(finite), true
}

// DefineAll computes band definitions for every measure of m, in measure order.
func DefineAll(m *model.Matrix, pct []float64) (*model.Bands, error) {
	out := model.NewBands()
	for i, name := range m.Measures {
		lo, hi, ok := Range(m.Values[i])
		if !ok {
			return nil, model.DataErrorf("measure %q has no finite readings", name)
		}
		def, err := Define(lo, hi, pct)
		if err != nil {
			return nil, err
		}
		out.Add(name, def)
	}
	return out, nil
}

// Assign classifies every reading. labels[i] is the band index for
// KindBand readings and -1 otherwise.
func Assign(values []float64, def model.BandDefinition) (kinds []Kind, labels []int) {
	kinds = make([]Kind, len(values))
	labels = make([]int, len(values))
	for i, v := range values {
		kinds[i], labels[i] = Classify(v, def)
	}
	return kinds, labels
}

func Classify(v float64, def model.BandDefinition) (Kind, int) {
	cuts := def.Cuts
	if math.IsNaN(v) {
		return KindNaN, -1
	}
	if len(cuts) < 2 || v < cuts[0] || v > cuts[len(cuts)-1] {
		return KindNone, -1
	}
	idx := sort.Search(len(cuts), func(j int) bool { return cuts[j] > v }) - 1
	if idx >= len(def.Labels) {
		idx = len(def.Labels) - 1
	}
	if idx < 0 {
		idx = 0
	}
	return KindBand, idx
}
