package bands

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"eventsds/internal/model"
)

func TestDefineLinearCuts(t *testing.T) {
	def, err := Define(0, 200, []float64{40, 60, 90})
	require.NoError(t, err)
	require.Equal(t, []float64{0, 80, 120, 180, 200}, def.Cuts)
	require.Equal(t, []string{"0_40", "40_60", "60_90", "90_100"}, def.Labels)
}

func TestDefineFractionalThresholdLabels(t *testing.T) {
	def, err := Define(0, 1, []float64{12.5, 50})
	require.NoError(t, err)
	require.Equal(t, []string{"0_12.5", "12.5_50", "50_100"}, def.Labels)
}

func TestDefineDegenerate(t *testing.T) {
	def, err := Define(3, 3, []float64{50})
	require.NoError(t, err)
	require.Equal(t, []string{"0_100"}, def.Labels)

	kind, idx := Classify(3, def)
	require.Equal(t, KindBand, kind)
	require.Equal(t, 0, idx)

	kind, _ = Classify(3.5, def)
	require.Equal(t, KindNone, kind)
}

func TestDefineRejectsBadThresholds(t *testing.T) {
	for _, pct := range [][]float64{{0}, {100}, {50, 40}, {30, 30}, {-1}, {math.NaN()}} {
		_, err := Define(0, 1, pct)
		require.Error(t, err, "thresholds %v", pct)
		require.True(t, errors.Is(err, model.ErrConfiguration))
	}
}

func TestClassifyKinds(t *testing.T) {
	def, err := Define(1, 9, []float64{50})
	require.NoError(t, err)

	kind, idx := Classify(1, def)
	require.Equal(t, KindBand, kind)
	require.Equal(t, 0, idx)

	kind, idx = Classify(5, def)
	require.Equal(t, KindBand, kind)
	require.Equal(t, 1, idx, "cut value belongs to the band it opens")

	kind, idx = Classify(9, def)
	require.Equal(t, KindBand, kind)
	require.Equal(t, 1, idx, "max is inside the last band")

	kind, idx = Classify(math.NaN(), def)
	require.Equal(t, KindNaN, kind)
	require.Equal(t, -1, idx)

	kind, _ = Classify(0.5, def)
	require.Equal(t, KindNone, kind)
	kind, _ = Classify(9.5, def)
	require.Equal(t, KindNone, kind)
}

func TestBandsPartitionRange(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 50; trial++ {
		lo := rng.Float64()*100 - 50
		hi := lo + rng.Float64()*37 + 1e-6
		def, err := Define(lo, hi, []float64{10, 33.3, 50, 75})
		require.NoError(t, err)
		require.Equal(t, lo, def.Cuts[0])
		require.Equal(t, hi, def.Cuts[len(def.Cuts)-1])

		for s := 0; s < 200; s++ {
			v := lo + rng.Float64()*(hi-lo)
			if s == 0 {
				v = lo
			}
			if s == 1 {
				v = hi
			}
			matches := 0
			for j := range def.Labels {
				last := j == len(def.Labels)-1
				if v >= def.Cuts[j] && (v < def.Cuts[j+1] || (last && v <= def.Cuts[j+1])) {
					matches++
				}
			}
			require.Equal(t, 1, matches, "value %v in [%v,%v]", v, lo, hi)
			kind, idx := Classify(v, def)
			require.Equal(t, KindBand, kind)
			require.True(t, v >= def.Cuts[idx])
		}
	}
}

func TestDefineAllRejectsAllNaNMeasure(t *testing.T) {
	m := &model.Matrix{
		Times:    []int64{0, 10},
		Measures: []string{"ok", "empty"},
		Values:   [][]float64{{1, 2}, {math.NaN(), math.NaN()}},
	}
	_, err := DefineAll(m, []float64{50})
	require.Error(t, err)
	require.True(t, errors.Is(err, model.ErrDataContract))
}

func TestDefineAllKeepsMeasureOrder(t *testing.T) {
	m := &model.Matrix{
		Times:    []int64{0, 10, 20},
		Measures: []string{"zeta", "alpha"},
		Values:   [][]float64{{1, 2, math.NaN()}, {5, 5, 5}},
	}
	b, err := DefineAll(m, []float64{50})
	require.NoError(t, err)
	require.Equal(t, []string{"zeta", "alpha"}, b.Measures())
	def, ok := b.Get("zeta")
	require.True(t, ok)
	require.Equal(t, []float64{1, 1.5, 2}, def.Cuts)
}

func TestAssignVector(t *testing.T) {
	def, err := Define(0, 10, []float64{50})
	require.NoError(t, err)
	kinds, labels := Assign([]float64{0, 4.9, 5, 10, math.NaN(), 11}, def)
	require.Equal(t, []Kind{KindBand, KindBand, KindBand, KindBand, KindNaN, KindNone}, kinds)
	require.Equal(t, []int{0, 0, 1, 1, -1, -1}, labels)
}
