package ingest

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/parquet-go/parquet-go"

	"eventsds/internal/model"
)

func TestReadCSVDefaults(t *testing.T) {
	in := "segs,temp,label,flow\n0,1.5,a,\n10,2.5,b,3\n20,NaN,c,4\n"
	m, err := ReadCSV(strings.NewReader(in), Options{})
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if m.TimeColumn != "segs" {
		t.Fatalf("time column: %s", m.TimeColumn)
	}
	if len(m.Measures) != 2 || m.Measures[0] != "temp" || m.Measures[1] != "flow" {
		t.Fatalf("measures: %v", m.Measures)
	}
	if m.Len() != 3 || m.Times[2] != 20 {
		t.Fatalf("times: %v", m.Times)
	}
	if !math.IsNaN(m.Values[0][2]) || !math.IsNaN(m.Values[1][0]) || m.Values[1][2] != 4 {
		t.Fatalf("values: %v", m.Values)
	}
}

func TestReadCSVConfiguredColumns(t *testing.T) {
	in := "ts,temp,flow\n2023-11-14T22:13:20Z,1,2\n2023-11-14T22:13:30Z,3,4\n"
	m, err := ReadCSV(strings.NewReader(in), Options{TimeColumn: "ts", Columns: []string{"flow"}})
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(m.Measures) != 1 || m.Measures[0] != "flow" {
		t.Fatalf("measures: %v", m.Measures)
	}
	if m.Times[0] != 1700000000 || m.Times[1] != 1700000010 {
		t.Fatalf("times: %v", m.Times)
	}
}

func TestReadCSVContractErrors(t *testing.T) {
	cases := map[string]struct {
		in   string
		opts Options
	}{
		"no time column":    {"when,temp\n0,1\n", Options{}},
		"missing measure":   {"segs,temp\n0,1\n", Options{Columns: []string{"flow"}}},
		"non numeric":       {"segs,temp\n0,hot\n", Options{Columns: []string{"temp"}}},
		"bad timestamp":     {"segs,temp\nsoon,1\n", Options{}},
		"no numeric column": {"segs,label\n0,a\n", Options{}},
		"empty":             {"", Options{}},
	}
	for name, tc := range cases {
		_, err := ReadCSV(strings.NewReader(tc.in), tc.opts)
		if !errors.Is(err, model.ErrDataContract) {
			t.Fatalf("%s: expected data contract error, got %v", name, err)
		}
	}
}

func TestLoadValidatesOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "matrix.csv")
	if err := os.WriteFile(path, []byte("segs,temp\n0,1\n20,2\n10,3\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path, Options{}, nil); !errors.Is(err, model.ErrDataContract) {
		t.Fatalf("expected data contract error, got %v", err)
	}
	if _, err := Load(path, Options{Format: "xlsx"}, nil); !errors.Is(err, model.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

type parquetRow struct {
	Epoch int64    `parquet:"epoch"`
	Temp  float64  `parquet:"temp"`
	Flow  *float64 `parquet:"flow,optional"`
	Site  string   `parquet:"site"`
}

func TestLoadParquet(t *testing.T) {
	two := 2.0
	path := filepath.Join(t.TempDir(), "matrix.parquet")
	rows := []parquetRow{
		{Epoch: 100, Temp: 1, Flow: &two, Site: "a"},
		{Epoch: 110, Temp: 3, Flow: nil, Site: "a"},
	}
	if err := parquet.WriteFile(path, rows); err != nil {
		t.Fatalf("write parquet: %v", err)
	}

	m, err := Load(path, Options{}, nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if m.TimeColumn != "epoch" || m.Len() != 2 || m.Times[1] != 110 {
		t.Fatalf("times: %s %v", m.TimeColumn, m.Times)
	}
	temp, ok := m.Column("temp")
	if !ok || temp[1] != 3 {
		t.Fatalf("temp: %v", temp)
	}
	flow, ok := m.Column("flow")
	if !ok || flow[0] != 2 || !math.IsNaN(flow[1]) {
		t.Fatalf("flow: %v", flow)
	}
	if _, ok := m.Column("site"); ok {
		t.Fatalf("text column must not be a measure")
	}
}
