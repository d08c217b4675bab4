package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwo-cv/merlcut/internal/types"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()
	m.Clip(types.StatusExtracted)
	m.Clip(types.StatusExtracted)
	m.Clip(types.StatusSkipped)
	m.Video(true)
	m.Video(false)
	m.ObserveTrim(1500 * time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ClipsTotal.WithLabelValues("extracted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ClipsTotal.WithLabelValues("skipped")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.VideosTotal.WithLabelValues("failed")))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Clip(types.StatusFailed)
		m.Video(true)
		m.ObserveTrim(time.Second)
	})
}

func TestWriteTextfile(t *testing.T) {
	m := New()
	m.Clip(types.StatusLabeled)

	path := filepath.Join(t.TempDir(), "merlcut.prom")
	require.NoError(t, m.WriteTextfile(path))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), `merlcut_clips_total{status="labeled"} 1`)
}
