package normalize

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"eventsds/internal/model"
)

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.000",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05Z0700",
	"2006-01-02 15:04:05Z0700",
}

// ParseEpoch converts a time cell to epoch seconds. Integer cells are taken
// as epoch seconds (milliseconds when 13 digits or longer); textual cells are
// parsed with the layouts above in loc.
func ParseEpoch(value string, loc *time.Location) (int64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, errors.New("empty timestamp")
	}
	if isNumeric(value) {
		return parseUnix(value)
	}
	if f, err := strconv.ParseFloat(value, 64); err == nil && !math.IsNaN(f) && f == math.Trunc(f) {
		return int64(f), nil
	}
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range timestampLayouts {
		// An explicit offset or Z in the value takes precedence over loc.
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t.Unix(), nil
		}
	}
	return 0, fmt.Errorf("unsupported timestamp format: %q", value)
}

func isNumeric(value string) bool {
	start := 0
	if strings.HasPrefix(value, "-") {
		start = 1
	}
	for _, ch := range value[start:] {
		if ch < '0' || ch > '9' {
			return false
		}
	}
	return len(value) > start
}

func parseUnix(value string) (int64, error) {
	v, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, err
	}
	if len(strings.TrimPrefix(value, "-")) >= 13 {
		return v / 1000, nil
	}
	return v, nil
}

// ParseReading converts a measurement cell. Empty cells and the usual
// missing-value spellings become NaN.
func ParseReading(value string) (float64, error) {
	value = strings.TrimSpace(value)
	switch strings.ToLower(value) {
	case "", "nan", "na", "null", "none":
		return math.NaN(), nil
	}
	return strconv.ParseFloat(value, 64)
}

// Validate checks the matrix contract: at least one row and one measure,
// strictly increasing timestamps, aligned columns and no all-NaN measure.
func Validate(m *model.Matrix) error {
	if m == nil || m.Len() == 0 {
		return model.DataErrorf("matrix has no rows")
	}
	if len(m.Measures) == 0 {
		return model.DataErrorf("matrix has no measurement columns")
	}
	if len(m.Values) != len(m.Measures) {
		return model.DataErrorf("%d value columns for %d measures", len(m.Values), len(m.Measures))
	}
	for i := 1; i < len(m.Times); i++ {
		if m.Times[i] <= m.Times[i-1] {
			return model.DataErrorf("column %q not strictly increasing at row %d (%d after %d)",
				m.TimeColumn, i, m.Times[i], m.Times[i-1])
		}
	}
	for j, name := range m.Measures {
		col := m.Values[j]
		if len(col) != len(m.Times) {
			return model.DataErrorf("measure %q has %d readings for %d timestamps", name, len(col), len(m.Times))
		}
		allNaN := true
		for _, v := range col {
			if !math.IsNaN(v) {
				allNaN = false
				break
			}
		}
		if allNaN {
			return model.DataErrorf("measure %q is all NaN", name)
		}
	}
	return nil
}

// InferTu returns the median of the positive consecutive time deltas,
// rounded to whole seconds.
func InferTu(times []int64) (int64, error) {
	deltas := make([]int64, 0, len(times))
	for i := 1; i < len(times); i++ {
		if d := times[i] - times[i-1]; d > 0 {
			deltas = append(deltas, d)
		}
	}
	if len(deltas) == 0 {
		return 0, model.DataErrorf("cannot infer tu from %d timestamps", len(times))
	}
	sort.Slice(deltas, func(a, b int) bool { return deltas[a] < deltas[b] })
	mid := len(deltas) / 2
	if len(deltas)%2 == 1 {
		return deltas[mid], nil
	}
	return int64(math.Round(float64(deltas[mid-1]+deltas[mid]) / 2)), nil
}
