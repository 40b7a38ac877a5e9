package ingest

import (
	"encoding/csv"
	"errors"
	"io"
	"math"
	"strings"

	"eventsds/internal/model"
	"eventsds/internal/normalize"
)

// ReadCSV parses a header row followed by one row per timestamp. Without an
// explicit column list, columns holding anything other than numbers and
// missing markers are skipped; with one, such a cell is a data error.
func ReadCSV(r io.Reader, opts Options) (*model.Matrix, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.ReuseRecord = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, model.DataErrorf("input has no header")
		}
		return nil, err
	}
	header = append([]string(nil), header...)
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	timeIdx, err := pickTimeColumn(header, opts.TimeColumn)
	if err != nil {
		return nil, err
	}
	measureIdx, explicit, err := selectMeasures(header, timeIdx, opts.Columns)
	if err != nil {
		return nil, err
	}

	m := &model.Matrix{TimeColumn: header[timeIdx]}
	values := make([][]float64, len(measureIdx))
	numeric := make([]bool, len(measureIdx))
	for j := range numeric {
		numeric[j] = true
	}

	line := 1
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, model.DataErrorf("line %d: %v", line, err)
		}
		ts, err := normalize.ParseEpoch(rec[timeIdx], opts.Location)
		if err != nil {
			return nil, model.DataErrorf("line %d: column %q: %v", line, header[timeIdx], err)
		}
		m.Times = append(m.Times, ts)
		for j, col := range measureIdx {
			v, err := normalize.ParseReading(rec[col])
			if err != nil {
				if explicit {
					return nil, model.DataErrorf("line %d: column %q: not numeric: %q", line, header[col], rec[col])
				}
				numeric[j] = false
				v = math.NaN()
			}
			values[j] = append(values[j], v)
		}
	}

	for j, col := range measureIdx {
		if !numeric[j] {
			continue
		}
		m.Measures = append(m.Measures, header[col])
		m.Values = append(m.Values, values[j])
	}
	if len(m.Measures) == 0 {
		return nil, model.DataErrorf("no numeric measurement columns")
	}
	return m, nil
}
