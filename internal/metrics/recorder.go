package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder collects per-run metrics on its own registry so that a batch run
// can dump them to a node-exporter textfile when it finishes.
type Recorder struct {
	registry *prometheus.Registry

	RowsRead          prometheus.Counter
	EventsEmitted     prometheus.Counter
	WindowsCandidates *prometheus.CounterVec
	WindowsWritten    *prometheus.CounterVec
	WindowsRejected   *prometheus.CounterVec
	PhaseDuration     *prometheus.GaugeVec
	LastSuccess       *prometheus.GaugeVec
}

func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Recorder{
		registry: reg,
		RowsRead: f.NewCounter(prometheus.CounterOpts{
			Name: "eventsds_rows_read_total",
			Help: "Measurement matrix rows read",
		}),
		EventsEmitted: f.NewCounter(prometheus.CounterOpts{
			Name: "eventsds_events_emitted_total",
			Help: "Event codes emitted by the stream generator",
		}),
		WindowsCandidates: f.NewCounterVec(prometheus.CounterOpts{
			Name: "eventsds_windows_candidates_total",
			Help: "Window start candidates considered",
		}, []string{"strategy"}),
		WindowsWritten: f.NewCounterVec(prometheus.CounterOpts{
			Name: "eventsds_windows_written_total",
			Help: "Windows written to the dataset",
		}, []string{"strategy"}),
		WindowsRejected: f.NewCounterVec(prometheus.CounterOpts{
			Name: "eventsds_windows_rejected_total",
			Help: "Window candidates rejected, by reason",
		}, []string{"reason"}),
		PhaseDuration: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "eventsds_phase_duration_seconds",
			Help: "Wall time of the last run of each phase",
		}, []string{"phase"}),
		LastSuccess: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "eventsds_last_success_timestamp_seconds",
			Help: "Unix time of the last successful run of each phase",
		}, []string{"phase"}),
	}
}

func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// PhaseDone records the duration and completion time of a successful phase.
func (r *Recorder) PhaseDone(phase string, elapsed time.Duration, at time.Time) {
	r.PhaseDuration.WithLabelValues(phase).Set(elapsed.Seconds())
	r.LastSuccess.WithLabelValues(phase).Set(float64(at.Unix()))
}

func (r *Recorder) Windows(strategy string, total, written int, rejected map[string]int) {
	r.WindowsCandidates.WithLabelValues(strategy).Add(float64(total))
	r.WindowsWritten.WithLabelValues(strategy).Add(float64(written))
	for reason, n := range rejected {
		r.WindowsRejected.WithLabelValues(reason).Add(float64(n))
	}
}

// WriteTextfile writes the registry in text exposition format. An empty
// path disables the export.
func (r *Recorder) WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, r.registry)
}
