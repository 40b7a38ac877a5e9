package inspect

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"eventsds/internal/model"
	"eventsds/internal/sink"
)

func writeSamples(t *testing.T, samples []model.WindowSample) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "windows.parquet")
	require.NoError(t, sink.WriteWindows(path, samples))
	return path
}

func TestCheckHealthyDataset(t *testing.T) {
	path := writeSamples(t, []model.WindowSample{
		{OWEvents: []int32{1, 2}, PWEvents: []int32{3}},
		{OWEvents: []int32{4}, PWEvents: nil},
		{OWEvents: []int32{5, 6, 7}, PWEvents: []int32{8, 9}},
	})

	rep, err := Check(path, model.WindowAsynOW)
	require.NoError(t, err)
	require.True(t, rep.OK(), rep.Violations)
	require.Equal(t, 3, rep.Windows)
	require.Equal(t, 1, rep.EmptyPW)
	require.Equal(t, LengthStats{Min: 1, Mean: 2, Max: 3}, rep.OW)
	require.Equal(t, LengthStats{Min: 0, Mean: 1, Max: 2}, rep.PW)
}

func TestCheckFlagsStrategyViolations(t *testing.T) {
	path := writeSamples(t, []model.WindowSample{
		{OWEvents: []int32{1}, PWEvents: nil},
		{OWEvents: nil, PWEvents: nil},
	})

	rep, err := Check(path, model.WindowWithinPW)
	require.NoError(t, err)
	require.False(t, rep.OK())
	require.Equal(t, 1, rep.BothEmpty)
	require.Len(t, rep.Violations, 2)

	rep, err = Check(path, "")
	require.NoError(t, err)
	require.Len(t, rep.Violations, 1)
}

func TestCheckStatsSpanScanChunks(t *testing.T) {
	samples := make([]model.WindowSample, 2*scanChunk+100)
	for i := range samples {
		samples[i] = model.WindowSample{OWEvents: make([]int32, i%5), PWEvents: []int32{1}}
	}
	samples[len(samples)-1].OWEvents = make([]int32, 9)

	rep, err := Check(writeSamples(t, samples), "")
	require.NoError(t, err)
	require.Equal(t, len(samples), rep.Windows)
	require.Equal(t, 0.0, rep.OW.Min)
	require.Equal(t, 9.0, rep.OW.Max)
	require.Equal(t, LengthStats{Min: 1, Mean: 1, Max: 1}, rep.PW)
}

func TestExportCSV(t *testing.T) {
	path := writeSamples(t, []model.WindowSample{
		{OWEvents: []int32{1, 2}, PWEvents: []int32{3}},
		{OWEvents: []int32{4}, PWEvents: nil},
	})
	var buf bytes.Buffer
	n, err := ExportCSV(path, &buf)
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.Equal(t, "OW_events,PW_events\n\"[1,2]\",[3]\n[4],[]\n", buf.String())
}
