package sink

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"eventsds/internal/model"
)

func TestStreamRoundTrip(t *testing.T) {
	s := model.NewEventStream(4)
	s.AppendRow(0, []int32{1, 2})
	s.AppendRow(10, nil)
	s.AppendRow(20, []int32{3})
	s.AppendRow(30, []int32{})

	path := filepath.Join(t.TempDir(), "events_stream.parquet")
	require.NoError(t, WriteStream(path, s))

	got, err := ReadStream(path)
	require.NoError(t, err)
	require.Equal(t, s.Times, got.Times)
	require.Equal(t, s.Offsets, got.Offsets)
	require.Equal(t, s.Codes, got.Codes)
}

func TestReadStreamRejectsUnsortedSegs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.parquet")
	w, err := Create[model.StreamRow](path)
	require.NoError(t, err)
	require.NoError(t, w.WriteBatch([]model.StreamRow{{Segs: 10}, {Segs: 5, Events: []int32{1}}}))
	require.NoError(t, w.Commit())

	_, err = ReadStream(path)
	require.True(t, errors.Is(err, model.ErrDataContract))
}

func TestWindowsWriterBatchesAndCommits(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "windows.parquet")
	w, err := Create[model.WindowSample](path)
	require.NoError(t, err)

	require.NoError(t, w.WriteBatch([]model.WindowSample{
		{OWEvents: []int32{1, 1}, PWEvents: []int32{2}},
		{OWEvents: []int32{3}, PWEvents: nil},
	}))
	require.NoError(t, w.WriteBatch([]model.WindowSample{{OWEvents: nil, PWEvents: []int32{4, 5}}}))
	_, err = os.Stat(path)
	require.True(t, os.IsNotExist(err), "target must not exist before commit")

	require.NoError(t, w.Commit())
	require.Equal(t, 3, w.Rows())
	require.Equal(t, 2, w.Batches())

	var got []model.WindowSample
	n, err := Scan(path, 2, func(rows []model.WindowSample) error {
		for _, r := range rows {
			got = append(got, model.WindowSample{
				OWEvents: append([]int32(nil), r.OWEvents...),
				PWEvents: append([]int32(nil), r.PWEvents...),
			})
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 3, n)
	require.Equal(t, []int32{1, 1}, got[0].OWEvents)
	require.Equal(t, []int32{2}, got[0].PWEvents)
	require.Empty(t, got[1].PWEvents)
	require.Equal(t, []int32{4, 5}, got[2].PWEvents)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestAbortLeavesNothingBehind(t *testing.T) {
	dir := t.TempDir()
	w, err := Create[model.WindowSample](filepath.Join(dir, "windows.parquet"))
	require.NoError(t, err)
	require.NoError(t, w.WriteBatch([]model.WindowSample{{OWEvents: []int32{1}}}))
	require.NoError(t, w.Abort())
	require.NoError(t, w.Abort())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries)
	require.Error(t, w.WriteBatch([]model.WindowSample{{OWEvents: []int32{1}}}))
}

func TestWriteJSONAtomic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "meta.json")
	require.NoError(t, WriteJSON(path, map[string]int{"windows_total": 3}))

	var got map[string]int
	require.NoError(t, ReadJSON(path, &got))
	require.Equal(t, 3, got["windows_total"])
}
