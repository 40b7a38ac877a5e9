package model

import (
	"strings"
	"time"
)

type EventStrategy string

const (
	EventLevels      EventStrategy = "levels"
	EventTransitions EventStrategy = "transitions"
	EventBoth        EventStrategy = "both"
)

func ParseEventStrategy(s string) (EventStrategy, error) {
	switch EventStrategy(strings.ToLower(strings.TrimSpace(s))) {
	case EventLevels:
		return EventLevels, nil
	case EventTransitions:
		return EventTransitions, nil
	case EventBoth:
		return EventBoth, nil
	}
	return "", ConfigErrorf("unknown event_strategy %q (expected levels|transitions|both)", s)
}

func (s EventStrategy) Levels() bool      { return s == EventLevels || s == EventBoth }
func (s EventStrategy) Transitions() bool { return s == EventTransitions || s == EventBoth }

// NaNPolicy is shared by the generator (nan_handling) and the extractor
// (nan_strategy). They are configured independently.
type NaNPolicy string

const (
	NaNKeep    NaNPolicy = "keep"
	NaNDiscard NaNPolicy = "discard"
)

func ParseNaNPolicy(s string) (NaNPolicy, error) {
	switch NaNPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case NaNKeep:
		return NaNKeep, nil
	case NaNDiscard:
		return NaNDiscard, nil
	}
	return "", ConfigErrorf("unknown nan policy %q (expected keep|discard)", s)
}

type WindowStrategy string

const (
	WindowSynchro  WindowStrategy = "synchro"
	WindowAsynOW   WindowStrategy = "asynOW"
	WindowWithinPW WindowStrategy = "withinPW"
	WindowAsynPW   WindowStrategy = "asynPW"
)

// ParseWindowStrategy matches names case-insensitively and returns the
// canonical spelling.
func ParseWindowStrategy(s string) (WindowStrategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "synchro":
		return WindowSynchro, nil
	case "asynow":
		return WindowAsynOW, nil
	case "withinpw":
		return WindowWithinPW, nil
	case "asynpw":
		return WindowAsynPW, nil
	}
	return "", ConfigErrorf("unknown window_strategy %q (expected synchro|asynOW|withinPW|asynPW)", s)
}

// Matrix is the read-only measurement input. Values is column-major:
// Values[m][i] is measure m at Times[i]; NaN marks a missing reading.
type Matrix struct {
	TimeColumn string
	Times      []int64
	Measures   []string
	Values     [][]float64
}

func (m *Matrix) Len() int {
	if m == nil {
		return 0
	}
	return len(m.Times)
}

// Column returns the readings of the named measure.
func (m *Matrix) Column(name string) ([]float64, bool) {
	for i, n := range m.Measures {
		if n == name {
			return m.Values[i], true
		}
	}
	return nil, false
}

type BandDefinition struct {
	Cuts   []float64 `json:"cuts"`
	Labels []string  `json:"labels"`
}

// EventStream holds one row per input timestamp in CSR layout:
// the codes of row i are Codes[Offsets[i]:Offsets[i+1]].
type EventStream struct {
	Times   []int64
	Offsets []int
	Codes   []int32
}

func NewEventStream(capacity int) *EventStream {
	return &EventStream{
		Times:   make([]int64, 0, capacity),
		Offsets: append(make([]int, 0, capacity+1), 0),
		Codes:   make([]int32, 0, capacity),
	}
}

// AppendRow adds a row. Callers keep Times strictly increasing.
func (s *EventStream) AppendRow(t int64, codes []int32) {
	s.Times = append(s.Times, t)
	s.Codes = append(s.Codes, codes...)
	s.Offsets = append(s.Offsets, len(s.Codes))
}

func (s *EventStream) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Times)
}

func (s *EventStream) Row(i int) []int32 {
	return s.Codes[s.Offsets[i]:s.Offsets[i+1]]
}

// Span returns the concatenated codes of rows [i0, i1).
func (s *EventStream) Span(i0, i1 int) []int32 {
	return s.Codes[s.Offsets[i0]:s.Offsets[i1]]
}

func (s *EventStream) CountIn(i0, i1 int) int {
	return s.Offsets[i1] - s.Offsets[i0]
}

type WindowSample struct {
	OWEvents []int32 `parquet:"OW_events,list" json:"OW_events"`
	PWEvents []int32 `parquet:"PW_events,list" json:"PW_events"`
}

type StreamRow struct {
	Segs   int64   `parquet:"segs"`
	Events []int32 `parquet:"events,list"`
}

type RunMetadata struct {
	ID          string         `json:"run_id"`
	Phase       string         `json:"phase"`
	Tu          int64          `json:"Tu"`
	TuSource    string         `json:"Tu_source,omitempty"`
	StartedAt   time.Time      `json:"started_at"`
	GeneratedAt time.Time      `json:"generated_at"`
	Elapsed     float64        `json:"elapsed_seconds"`
	Dataset     string         `json:"dataset"`
	Params      map[string]any `json:"params"`
	Counters    map[string]int `json:"counters"`
}
