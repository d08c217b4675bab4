package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwo-cv/merlcut/internal/domain/annotations/mattest"
	"github.com/jwo-cv/merlcut/internal/domain/manifest"
	"github.com/jwo-cv/merlcut/internal/ports/adapters/sqlite"
	"github.com/jwo-cv/merlcut/internal/types"
)

// fakeFFmpeg writes the last argument as the clip, failing for clips of video
// "vfail".
const fakeFFmpeg = `#!/bin/sh
for last; do :; done
case "${last##*/}" in
  vfail*) echo "Invalid data found when processing input" >&2; exit 1 ;;
esac
echo clip > "$last"
`

func testConfig(t *testing.T) Config {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script fake")
	}
	dir := t.TempDir()
	labels := filepath.Join(dir, "labels")
	videos := filepath.Join(dir, "videos")
	require.NoError(t, os.MkdirAll(labels, 0o755))
	require.NoError(t, os.MkdirAll(videos, 0o755))

	mattest.Write(t, filepath.Join(labels, "v1_label.mat"), "tlabs", [][][2]float64{
		{{0, 0}, {30, 90}},
		{{120, 150}},
	})
	mattest.Write(t, filepath.Join(labels, "vfail_label.mat"), "tlabs", [][][2]float64{
		{{30, 90}},
		{},
	})

	bin := filepath.Join(dir, "ffmpeg")
	require.NoError(t, os.WriteFile(bin, []byte(fakeFFmpeg), 0o755))

	cfg, err := LoadConfig()
	require.NoError(t, err)
	cfg.AnnotationDir = labels
	cfg.VideoDir = videos
	cfg.OutDir = filepath.Join(dir, "out")
	cfg.FFmpegPath = bin
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "tlabs", cfg.Variable)
	assert.Equal(t, "{video}_crop.mp4", cfg.VideoTemplate)
	assert.Equal(t, 30.0, cfg.FrameRate)
	assert.Equal(t, []string{"0:0:pick", "1:1:return"}, cfg.Classes)
	assert.Equal(t, BackendExec, cfg.Backend)
}

func TestLoadConfig_Env(t *testing.T) {
	t.Setenv("MERLCUT_FPS", "25")
	t.Setenv("MERLCUT_CLASSES", "1:0:pick,0:1:return")
	t.Setenv("MERLCUT_LABELS_ONLY", "true")
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 25.0, cfg.FrameRate)
	assert.True(t, cfg.LabelsOnly)

	classes, err := ParseClasses(cfg.Classes)
	require.NoError(t, err)
	assert.Equal(t, []types.Class{{Slot: 1, ID: 0, Label: "pick"}, {Slot: 0, ID: 1, Label: "return"}}, classes)
}

func TestParseClasses_Errors(t *testing.T) {
	for _, specs := range [][]string{
		nil,
		{"0:0"},
		{"x:0:pick"},
		{"0:-1:pick"},
		{"0:0:"},
		{"0:0:a/b"},
		{"0:0:pick", "0:1:return"},
		{"0:0:pick", "1:0:pick"},
	} {
		_, err := ParseClasses(specs)
		assert.Error(t, err, "%v", specs)
	}
}

func TestValidate(t *testing.T) {
	base := testConfig(t)

	cases := map[string]func(c *Config){
		"no annotation dir":  func(c *Config) { c.AnnotationDir = "" },
		"missing video dir":  func(c *Config) { c.VideoDir = filepath.Join(c.OutDir, "nope") },
		"template":           func(c *Config) { c.VideoTemplate = "video.mp4" },
		"zero fps":           func(c *Config) { c.FrameRate = 0 },
		"bad ext":            func(c *Config) { c.Ext = "a/b" },
		"backend":            func(c *Config) { c.Backend = "gstreamer" },
		"negative timeout":   func(c *Config) { c.TrimTimeout = -1 },
		"annotation is file": func(c *Config) { c.AnnotationDir = c.FFmpegPath },
	}
	for name, mut := range cases {
		t.Run(name, func(t *testing.T) {
			c := base
			mut(&c)
			assert.Error(t, c.Validate())
		})
	}

	labelsOnly := base
	labelsOnly.VideoDir = ""
	labelsOnly.LabelsOnly = true
	assert.NoError(t, labelsOnly.Validate())
	labelsOnly.ProbeFrameRate = true
	assert.Error(t, labelsOnly.Validate())
}

func TestRun_EndToEnd(t *testing.T) {
	cfg := testConfig(t)
	cfg.LedgerPath = filepath.Join(cfg.OutDir, "..", "ledger.db")
	cfg.MetricsFile = filepath.Join(cfg.OutDir, "..", "merlcut.prom")

	sum, err := Run(context.Background(), cfg, nil)
	require.NoError(t, err)
	require.NotEmpty(t, sum.RunID)
	assert.Equal(t, types.Summary{RunID: sum.RunID, Videos: 2, Extracted: 2, Skipped: 1, Failed: 1}, sum)

	rows, err := manifest.ReadCSV(filepath.Join(cfg.OutDir, "labels.csv"))
	require.NoError(t, err)
	assert.Equal(t, []types.ManifestRow{
		{ClipName: "v1_0_pick_1", ClassID: 0, Label: "pick"},
		{ClipName: "v1_1_return_0", ClassID: 1, Label: "return"},
	}, rows)

	assert.FileExists(t, filepath.Join(cfg.OutDir, "v1_0_pick_1.mp4"))
	assert.FileExists(t, filepath.Join(cfg.OutDir, "v1_1_return_0.mp4"))
	assert.NoFileExists(t, filepath.Join(cfg.OutDir, "vfail_0_pick_0.mp4"))

	prom, err := os.ReadFile(cfg.MetricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(prom), `merlcut_clips_total{status="failed"} 1`)

	l, err := sqlite.Open(cfg.LedgerPath)
	require.NoError(t, err)
	defer l.Close()
	recs, err := l.Clips(context.Background(), sum.RunID)
	require.NoError(t, err)
	require.Len(t, recs, 4)
	assert.Equal(t, types.StatusSkipped, recs[0].Status)
	assert.Equal(t, types.StatusFailed, recs[3].Status)

	stored, err := l.Summary(context.Background(), sum.RunID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.Extracted)
}

func TestRun_RerunIsEquivalent(t *testing.T) {
	cfg := testConfig(t)
	_, err := Run(context.Background(), cfg, nil)
	require.NoError(t, err)
	first, err := manifest.ReadCSV(filepath.Join(cfg.OutDir, "labels.csv"))
	require.NoError(t, err)

	_, err = Run(context.Background(), cfg, nil)
	require.NoError(t, err)
	second, err := manifest.ReadCSV(filepath.Join(cfg.OutDir, "labels.csv"))
	require.NoError(t, err)
	assert.ElementsMatch(t, first, second)
}

func TestRun_LabelsOnlyWritesNoMedia(t *testing.T) {
	cfg := testConfig(t)
	cfg.LabelsOnly = true
	cfg.ManifestPath = filepath.Join(cfg.OutDir, "..", "meta", "labels.csv")

	sum, err := Run(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, sum.Labeled)

	rows, err := manifest.ReadCSV(cfg.ManifestPath)
	require.NoError(t, err)
	assert.Len(t, rows, 3)

	_, err = os.Stat(cfg.OutDir)
	assert.True(t, os.IsNotExist(err))
}

func TestRun_UnreadableAnnotationDir(t *testing.T) {
	cfg := testConfig(t)
	cfg.AnnotationDir = filepath.Join(cfg.OutDir, "missing")
	_, err := Run(context.Background(), cfg, nil)
	require.Error(t, err)
}

func TestRun_FFmpegGoBackendUsesConfiguredProbe(t *testing.T) {
	cfg := testConfig(t)
	probe := filepath.Join(filepath.Dir(cfg.FFmpegPath), "ffprobe-custom")
	require.NoError(t, os.WriteFile(probe, []byte(`#!/bin/sh
echo '{"streams":[{"codec_type":"video","avg_frame_rate":"30/1"}]}'
`), 0o755))
	cfg.Backend = BackendFFmpegGo
	cfg.FFprobePath = probe
	cfg.ProbeFrameRate = true
	t.Setenv("PATH", "/nonexistent")

	sum, err := Run(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Extracted)
	assert.Equal(t, 1, sum.Skipped)
	assert.Equal(t, 1, sum.Failed)
}

func TestRun_UnusableLedgerIsNotFatal(t *testing.T) {
	cfg := testConfig(t)
	blocker := filepath.Join(filepath.Dir(cfg.OutDir), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))
	cfg.LedgerPath = filepath.Join(blocker, "ledger.db")

	sum, err := Run(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Extracted)
	assert.FileExists(t, filepath.Join(cfg.OutDir, "labels.csv"))
}
