package inspect

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"eventsds/internal/model"
	"eventsds/internal/sink"
)

// ExportCSV writes the windows dataset at path as CSV with the lists
// rendered as JSON arrays, and returns the number of rows written.
func ExportCSV(path string, w io.Writer) (int, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"OW_events", "PW_events"}); err != nil {
		return 0, err
	}
	record := make([]string, 2)
	n, err := sink.Scan(path, 8192, func(rows []model.WindowSample) error {
		for _, r := range rows {
			record[0] = formatList(r.OWEvents)
			record[1] = formatList(r.PWEvents)
			if err := cw.Write(record); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return n, err
	}
	cw.Flush()
	return n, cw.Error()
}

func formatList(codes []int32) string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, c := range codes {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.FormatInt(int64(c), 10))
	}
	sb.WriteByte(']')
	return sb.String()
}
