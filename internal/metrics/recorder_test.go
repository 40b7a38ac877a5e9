package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorderCounts(t *testing.T) {
	r := NewRecorder()
	r.RowsRead.Add(10)
	r.Windows("synchro", 5, 3, map[string]int{"empty": 1, "nan": 1})
	r.Windows("synchro", 2, 2, nil)

	if got := testutil.ToFloat64(r.RowsRead); got != 10 {
		t.Fatalf("rows read: %v", got)
	}
	if got := testutil.ToFloat64(r.WindowsCandidates.WithLabelValues("synchro")); got != 7 {
		t.Fatalf("candidates: %v", got)
	}
	if got := testutil.ToFloat64(r.WindowsWritten.WithLabelValues("synchro")); got != 5 {
		t.Fatalf("written: %v", got)
	}
	if got := testutil.ToFloat64(r.WindowsRejected.WithLabelValues("nan")); got != 1 {
		t.Fatalf("rejected nan: %v", got)
	}
}

func TestWriteTextfile(t *testing.T) {
	r := NewRecorder()
	r.PhaseDone("events", 1500*time.Millisecond, time.Unix(1700000000, 0))

	path := filepath.Join(t.TempDir(), "eventsds.prom")
	if err := r.WriteTextfile(path); err != nil {
		t.Fatalf("write textfile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(data), `eventsds_phase_duration_seconds{phase="events"} 1.5`) {
		t.Fatalf("textfile content:\n%s", data)
	}
	if err := r.WriteTextfile(""); err != nil {
		t.Fatalf("empty path should be a no-op: %v", err)
	}
}
