package sink

import (
	"eventsds/internal/model"
)

const streamBatch = 65536

// WriteStream stores the event stream as (segs, events) rows, one per
// timestamp, including rows without events.
func WriteStream(path string, s *model.EventStream) (err error) {
	w, err := Create[model.StreamRow](path)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = w.Abort()
		}
	}()

	batch := make([]model.StreamRow, 0, min(streamBatch, s.Len()))
	for i := 0; i < s.Len(); i++ {
		batch = append(batch, model.StreamRow{Segs: s.Times[i], Events: s.Row(i)})
		if len(batch) == cap(batch) {
			if err = w.WriteBatch(batch); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if err = w.WriteBatch(batch); err != nil {
		return err
	}
	return w.Commit()
}

// ReadStream loads a stream written by WriteStream and checks that
// timestamps are strictly increasing.
func ReadStream(path string) (*model.EventStream, error) {
	s := model.NewEventStream(0)
	_, err := Scan(path, streamBatch, func(rows []model.StreamRow) error {
		for _, row := range rows {
			if n := s.Len(); n > 0 && row.Segs <= s.Times[n-1] {
				return model.DataErrorf("%s: segs not strictly increasing at row %d (%d after %d)",
					path, n, row.Segs, s.Times[n-1])
			}
			s.AppendRow(row.Segs, row.Events)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// WriteWindows is a convenience for small in-memory sample sets.
func WriteWindows(path string, samples []model.WindowSample) error {
	w, err := Create[model.WindowSample](path)
	if err != nil {
		return err
	}
	if err := w.WriteBatch(samples); err != nil {
		_ = w.Abort()
		return err
	}
	return w.Commit()
}
