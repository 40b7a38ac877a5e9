package events

import (
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"eventsds/internal/catalog"
	"eventsds/internal/model"
)

type EventStats struct {
	Code         int32    `json:"event_id"`
	Name         string   `json:"event_name"`
	Count        int      `json:"num_appearances"`
	Intervals    int      `json:"num_intervals"`
	MeanInterval *float64 `json:"mean_interarrival"`
	StdInterval  *float64 `json:"std_interarrival"`
	MinInterval  *float64 `json:"min_interarrival"`
	MaxInterval  *float64 `json:"max_interarrival"`
}

type Summary struct {
	Rows           int            `json:"rows"`
	Events         int            `json:"events"`
	RowsWithEvents int            `json:"rows_with_events"`
	DistinctEvents int            `json:"distinct_events"`
	ByEvent        []EventStats   `json:"by_event"`
	ByMeasure      map[string]int `json:"by_measure"`
}

// Summarize counts appearances per event and per measure and reports
// interarrival statistics (seconds) for every event that appears.
func Summarize(s *model.EventStream, cat *catalog.Catalog, measures []string) Summary {
	positions := make(map[int32][]int64)
	sum := Summary{Rows: s.Len(), Events: len(s.Codes), ByMeasure: make(map[string]int)}
	for i := 0; i < s.Len(); i++ {
		row := s.Row(i)
		if len(row) > 0 {
			sum.RowsWithEvents++
		}
		for _, code := range row {
			positions[code] = append(positions[code], s.Times[i])
		}
	}

	codes := make([]int32, 0, len(positions))
	for code := range positions {
		codes = append(codes, code)
	}
	sort.Slice(codes, func(a, b int) bool { return codes[a] < codes[b] })
	sum.DistinctEvents = len(codes)

	for _, code := range codes {
		times := positions[code]
		name, _ := cat.Name(code)
		es := EventStats{Code: code, Name: name, Count: len(times)}
		if m, ok := catalog.MeasureOf(name, measures); ok {
			sum.ByMeasure[m] += len(times)
		}
		if len(times) >= 2 {
			deltas := make([]float64, 0, len(times)-1)
			for i := 1; i < len(times); i++ {
				deltas = append(deltas, float64(times[i]-times[i-1]))
			}
			mean, std := stat.PopMeanStdDev(deltas, nil)
			lo, hi := floats.Min(deltas), floats.Max(deltas)
			es.Intervals = len(deltas)
			es.MeanInterval, es.StdInterval = &mean, &std
			es.MinInterval, es.MaxInterval = &lo, &hi
		}
		sum.ByEvent = append(sum.ByEvent, es)
	}
	return sum
}
