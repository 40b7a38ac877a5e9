package ingest

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/parquet-go/parquet-go"

	"eventsds/internal/model"
	"eventsds/internal/normalize"
)

const parquetReadBatch = 4096

// ReadParquet loads a flat parquet file. Numeric leaf columns become
// measures; nulls read as NaN.
func ReadParquet(r io.ReaderAt, size int64, opts Options) (*model.Matrix, error) {
	file, err := parquet.OpenFile(r, size)
	if err != nil {
		return nil, fmt.Errorf("open parquet: %w", err)
	}
	schema := file.Schema()
	paths := schema.Columns()
	header := make([]string, len(paths))
	for i, p := range paths {
		header[i] = strings.Join(p, ".")
	}

	timeIdx, err := pickTimeColumn(header, opts.TimeColumn)
	if err != nil {
		return nil, err
	}
	measureIdx, explicit, err := selectMeasures(header, timeIdx, opts.Columns)
	if err != nil {
		return nil, err
	}
	kinds := make([]parquet.Kind, len(paths))
	for i, p := range paths {
		leaf, ok := schema.Lookup(p...)
		if !ok {
			return nil, model.DataErrorf("parquet column %q has no leaf", header[i])
		}
		kinds[i] = leaf.Node.Type().Kind()
	}

	keep := measureIdx[:0:0]
	for _, col := range measureIdx {
		if isNumericKind(kinds[col]) {
			keep = append(keep, col)
			continue
		}
		if explicit {
			return nil, model.DataErrorf("column %q is not numeric (%s)", header[col], kinds[col])
		}
	}
	if len(keep) == 0 {
		return nil, model.DataErrorf("no numeric measurement columns")
	}

	slot := make(map[int]int, len(keep))
	m := &model.Matrix{TimeColumn: header[timeIdx]}
	for j, col := range keep {
		slot[col] = j
		m.Measures = append(m.Measures, header[col])
	}
	m.Values = make([][]float64, len(keep))

	reader := parquet.NewReader(r)
	defer reader.Close()
	rows := make([]parquet.Row, parquetReadBatch)
	line := 0
	for {
		n, err := reader.ReadRows(rows)
		for _, row := range rows[:n] {
			line++
			ts, haveTime := int64(0), false
			readings := make([]float64, len(keep))
			for j := range readings {
				readings[j] = math.NaN()
			}
			for _, v := range row {
				col := v.Column()
				if col == timeIdx {
					t, terr := timeValue(v, opts)
					if terr != nil {
						return nil, model.DataErrorf("row %d: column %q: %v", line, header[timeIdx], terr)
					}
					ts = t
					haveTime = true
					continue
				}
				if j, ok := slot[col]; ok && !v.IsNull() {
					readings[j] = numericValue(v)
				}
			}
			if !haveTime {
				return nil, model.DataErrorf("row %d: missing %q", line, header[timeIdx])
			}
			m.Times = append(m.Times, ts)
			for j, x := range readings {
				m.Values[j] = append(m.Values[j], x)
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("read parquet: %w", err)
		}
		if n == 0 {
			break
		}
	}
	return m, nil
}

func isNumericKind(k parquet.Kind) bool {
	switch k {
	case parquet.Int32, parquet.Int64, parquet.Float, parquet.Double, parquet.Boolean:
		return true
	}
	return false
}

func numericValue(v parquet.Value) float64 {
	switch v.Kind() {
	case parquet.Int32:
		return float64(v.Int32())
	case parquet.Int64:
		return float64(v.Int64())
	case parquet.Float:
		return float64(v.Float())
	case parquet.Double:
		return v.Double()
	case parquet.Boolean:
		if v.Boolean() {
			return 1
		}
		return 0
	}
	return math.NaN()
}

func timeValue(v parquet.Value, opts Options) (int64, error) {
	if v.IsNull() {
		return 0, errors.New("null timestamp")
	}
	switch v.Kind() {
	case parquet.Int32:
		return int64(v.Int32()), nil
	case parquet.Int64:
		return v.Int64(), nil
	case parquet.Float, parquet.Double:
		f := numericValue(v)
		if f != math.Trunc(f) || math.IsInf(f, 0) || math.IsNaN(f) {
			return 0, fmt.Errorf("non-integral timestamp %v", f)
		}
		return int64(f), nil
	case parquet.ByteArray:
		return normalize.ParseEpoch(string(v.ByteArray()), opts.Location)
	}
	return 0, fmt.Errorf("unsupported timestamp kind %s", v.Kind())
}
