package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/jwo-cv/merlcut/internal/types"
)

// Metrics holds the run's collectors on a private registry. A nil *Metrics is a
// valid no-op recorder.
type Metrics struct {
	Registry *prometheus.Registry

	ClipsTotal   *prometheus.CounterVec
	VideosTotal  *prometheus.CounterVec
	TrimDuration prometheus.Histogram
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		Registry: reg,
		ClipsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "merlcut_clips_total",
			Help: "Clip tasks processed, by outcome",
		}, []string{"status"}),
		VideosTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "merlcut_videos_total",
			Help: "Annotation files processed, by outcome",
		}, []string{"status"}),
		TrimDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "merlcut_trim_duration_seconds",
			Help:    "Wall time of a single trim call",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 300},
		}),
	}
}

func (m *Metrics) Clip(status types.ClipStatus) {
	if m == nil {
		return
	}
	m.ClipsTotal.WithLabelValues(string(status)).Inc()
}

func (m *Metrics) Video(ok bool) {
	if m == nil {
		return
	}
	status := "ok"
	if !ok {
		status = "failed"
	}
	m.VideosTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) ObserveTrim(d time.Duration) {
	if m == nil {
		return
	}
	m.TrimDuration.Observe(d.Seconds())
}

// WriteTextfile writes the registry in text exposition format, the way the
// node exporter textfile collector expects it.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.Registry)
}
