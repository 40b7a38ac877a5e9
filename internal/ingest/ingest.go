package ingest

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"eventsds/internal/model"
	"eventsds/internal/normalize"
)

const (
	FormatCSV     = "csv"
	FormatParquet = "parquet"
)

// DefaultTimeColumns are tried in order when no time column is configured.
var DefaultTimeColumns = []string{"segs", "epoch"}

type Options struct {
	Format     string
	TimeColumn string
	Columns    []string
	Location   *time.Location
}

// Load reads a measurement matrix from path and checks its contract.
func Load(path string, opts Options, logger *slog.Logger) (*model.Matrix, error) {
	format := strings.ToLower(strings.TrimSpace(opts.Format))
	if format == "" {
		format = formatFromPath(path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	var m *model.Matrix
	switch format {
	case FormatCSV:
		m, err = ReadCSV(f, opts)
	case FormatParquet:
		st, serr := f.Stat()
		if serr != nil {
			return nil, serr
		}
		m, err = ReadParquet(f, st.Size(), opts)
	default:
		return nil, model.ConfigErrorf("unsupported input format %q for %s", format, path)
	}
	if err != nil {
		return nil, err
	}
	if err := normalize.Validate(m); err != nil {
		return nil, err
	}
	if logger != nil {
		logger.Info("measurement matrix loaded",
			"path", path,
			"format", format,
			"rows", m.Len(),
			"measures", len(m.Measures),
			"time_column", m.TimeColumn,
		)
	}
	return m, nil
}

func formatFromPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".parquet", ".pqt":
		return FormatParquet
	default:
		return FormatCSV
	}
}

// pickTimeColumn returns the index of the configured time column, or of the
// first default candidate present in header.
func pickTimeColumn(header []string, configured string) (int, error) {
	find := func(name string) int {
		for i, h := range header {
			if strings.EqualFold(strings.TrimSpace(h), name) {
				return i
			}
		}
		return -1
	}
	if configured != "" {
		if i := find(configured); i >= 0 {
			return i, nil
		}
		return -1, model.DataErrorf("time column %q not found", configured)
	}
	for _, name := range DefaultTimeColumns {
		if i := find(name); i >= 0 {
			return i, nil
		}
	}
	return -1, model.DataErrorf("no time column found (tried %s)", strings.Join(DefaultTimeColumns, ", "))
}

// selectMeasures maps the requested measure names to header indexes. With no
// explicit list every non-time column is a candidate.
func selectMeasures(header []string, timeIdx int, columns []string) ([]int, bool, error) {
	if len(columns) == 0 {
		idx := make([]int, 0, len(header))
		for i := range header {
			if i != timeIdx {
				idx = append(idx, i)
			}
		}
		return idx, false, nil
	}
	pos := make(map[string]int, len(header))
	for i, h := range header {
		pos[strings.TrimSpace(h)] = i
	}
	idx := make([]int, 0, len(columns))
	for _, c := range columns {
		i, ok := pos[c]
		if !ok {
			return nil, true, model.DataErrorf("measure column %q not found", c)
		}
		if i == timeIdx {
			return nil, true, model.DataErrorf("column %q is the time column", c)
		}
		idx = append(idx, i)
	}
	return idx, true, nil
}
