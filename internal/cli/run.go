package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jwo-cv/merlcut/internal/logger"
	"github.com/jwo-cv/merlcut/internal/pipeline"
)

func addRunFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("labels", "", "Directory of per-video annotation .mat files")
	f.String("label-suffix", "_label", "Suffix stripped from annotation file names to get the video id")
	f.String("variable", "tlabs", "MAT variable holding the per-class interval cells")
	f.String("videos", "", "Directory of source videos")
	f.String("video-template", "{video}_crop.mp4", "Source video file name, {video} is replaced by the video id")
	f.String("out", "out", "Output directory for clips")
	f.String("manifest", "", "Manifest CSV path (default <out>/labels.csv)")
	f.String("ext", "mp4", "Clip file extension")
	f.Bool("group-by-class", false, "Write clips into one subdirectory per class")
	f.StringArray("class", nil, "Class mapping slot:id:label, repeatable (default 0:0:pick and 1:1:return)")
	f.Float64("fps", 30, "Frame rate used to convert frame indices to seconds")
	f.Bool("probe-fps", false, "Read the frame rate of each source video with ffprobe")
	f.Duration("timeout", 5*time.Minute, "Per-clip trim timeout, 0 disables it")
	f.Bool("labels-only", false, "Write the manifest without cutting any media")
	f.Bool("fail-fast", false, "Abort the run on the first unreadable annotation file")
	f.String("backend", pipeline.BackendExec, "Trim backend: exec or ffmpeg-go")
	f.String("ffmpeg", "ffmpeg", "ffmpeg binary")
	f.String("ffprobe", "ffprobe", "ffprobe binary")
	f.String("ledger", "", "SQLite run ledger path")
	f.String("metrics-file", "", "Write Prometheus metrics in textfile format to this path")
	f.Bool("progress", false, "Show a progress bar on stderr")
	f.String("log-level", "info", "Log level: debug, info, warn, error")
}

// applyRunFlags overrides env-derived values with the flags set on the command line.
func applyRunFlags(cmd *cobra.Command, cfg *pipeline.Config) {
	f := cmd.Flags()
	str := func(name string, dst *string) {
		if f.Changed(name) {
			*dst, _ = f.GetString(name)
		}
	}
	boolean := func(name string, dst *bool) {
		if f.Changed(name) {
			*dst, _ = f.GetBool(name)
		}
	}

	str("labels", &cfg.AnnotationDir)
	str("label-suffix", &cfg.AnnotationSuffix)
	str("variable", &cfg.Variable)
	str("videos", &cfg.VideoDir)
	str("video-template", &cfg.VideoTemplate)
	str("out", &cfg.OutDir)
	str("manifest", &cfg.ManifestPath)
	str("ext", &cfg.Ext)
	str("backend", &cfg.Backend)
	str("ffmpeg", &cfg.FFmpegPath)
	str("ffprobe", &cfg.FFprobePath)
	str("ledger", &cfg.LedgerPath)
	str("metrics-file", &cfg.MetricsFile)
	str("log-level", &cfg.LogLevel)

	boolean("group-by-class", &cfg.GroupByClass)
	boolean("probe-fps", &cfg.ProbeFrameRate)
	boolean("labels-only", &cfg.LabelsOnly)
	boolean("fail-fast", &cfg.FailFast)
	boolean("progress", &cfg.Progress)

	if f.Changed("class") {
		cfg.Classes, _ = f.GetStringArray("class")
	}
	if f.Changed("fps") {
		cfg.FrameRate, _ = f.GetFloat64("fps")
	}
	if f.Changed("timeout") {
		cfg.TrimTimeout, _ = f.GetDuration("timeout")
	}
}

func runConvert(cmd *cobra.Command) error {
	cfg, err := pipeline.LoadConfig()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	applyRunFlags(cmd, &cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log, err := logger.New(cfg.LogLevel, cmd.OutOrStdout())
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_, err = pipeline.Run(ctx, cfg, log)
	return err
}
