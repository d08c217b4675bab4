package pipeline

import (
	"context"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"

	"github.com/jwo-cv/merlcut/internal/domain/annotations"
	"github.com/jwo-cv/merlcut/internal/metrics"
	"github.com/jwo-cv/merlcut/internal/ports"
	"github.com/jwo-cv/merlcut/internal/ports/adapters/ffmpeg"
	"github.com/jwo-cv/merlcut/internal/ports/adapters/ffmpeggo"
	"github.com/jwo-cv/merlcut/internal/ports/adapters/sqlite"
	"github.com/jwo-cv/merlcut/internal/types"
	"github.com/jwo-cv/merlcut/internal/usecase"
)

// Run converts every annotation file in cfg.AnnotationDir into clips and writes
// the manifest. cfg must have passed Validate.
func Run(ctx context.Context, cfg Config, log *zap.Logger) (types.Summary, error) {
	if log == nil {
		log = zap.NewNop()
	}
	classes, err := ParseClasses(cfg.Classes)
	if err != nil {
		return types.Summary{}, err
	}

	files, err := annotations.Discover(cfg.AnnotationDir, cfg.AnnotationSuffix)
	if err != nil {
		return types.Summary{}, err
	}
	log.Info("discovered annotation files", zap.Int("count", len(files)), zap.String("dir", cfg.AnnotationDir))

	runID := uuid.NewString()
	m := metrics.New()
	deps := usecase.Deps{
		Video:   newVideoTool(cfg),
		Metrics: m,
		Log:     log,
	}

	var ledger *sqlite.Ledger
	if cfg.LedgerPath != "" {
		ledger = openLedger(ctx, cfg, runID, log)
		if ledger != nil {
			defer ledger.Close()
			deps.Ledger = ledger
		}
	}

	if cfg.Progress {
		bar := progressbar.NewOptions(len(files),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetDescription("videos"),
			progressbar.OptionShowCount(),
			progressbar.OptionSetWidth(40),
		)
		defer func() { _ = bar.Finish() }()
		deps.Progress = bar
	}

	res, err := usecase.New(deps).Run(ctx, usecase.Input{
		RunID:          runID,
		Files:          files,
		Variable:       cfg.Variable,
		Classes:        classes,
		VideoDir:       cfg.VideoDir,
		VideoTemplate:  cfg.VideoTemplate,
		OutDir:         cfg.OutDir,
		Ext:            cfg.Ext,
		GroupByClass:   cfg.GroupByClass,
		FrameRate:      cfg.FrameRate,
		ProbeFrameRate: cfg.ProbeFrameRate,
		TrimTimeout:    cfg.TrimTimeout,
		LabelsOnly:     cfg.LabelsOnly,
		FailFast:       cfg.FailFast,
	})
	res.Summary.RunID = runID
	if ledger != nil {
		if ferr := ledger.FinishRun(context.WithoutCancel(ctx), runID, time.Now(), res.Summary); ferr != nil {
			log.Warn("ledger write failed", zap.Error(ferr))
		}
	}
	if err != nil {
		return res.Summary, err
	}

	manifestPath := cfg.manifestPath()
	if err := res.Manifest.WriteCSV(manifestPath); err != nil {
		return res.Summary, err
	}
	log.Info("manifest written", zap.Int("rows", res.Manifest.Len()), zap.String("path", manifestPath))

	if cfg.MetricsFile != "" {
		if err := m.WriteTextfile(cfg.MetricsFile); err != nil {
			log.Warn("metrics write failed", zap.String("path", cfg.MetricsFile), zap.Error(err))
		}
	}

	s := res.Summary
	log.Info("done",
		zap.Int("videos", s.Videos),
		zap.Int("videos_failed", s.VideosFailed),
		zap.Int("extracted", s.Extracted),
		zap.Int("labeled", s.Labeled),
		zap.Int("skipped", s.Skipped),
		zap.Int("failed", s.Failed),
	)
	return s, nil
}

// openLedger returns nil when the ledger cannot be used; the run goes on
// without it.
func openLedger(ctx context.Context, cfg Config, runID string, log *zap.Logger) *sqlite.Ledger {
	ledger, err := sqlite.Open(cfg.LedgerPath)
	if err != nil {
		log.Warn("ledger unavailable, continuing without it", zap.String("ledger", cfg.LedgerPath), zap.Error(err))
		return nil
	}
	if err := ledger.StartRun(ctx, runID, cfg.summary(), time.Now()); err != nil {
		log.Warn("ledger unavailable, continuing without it", zap.String("ledger", cfg.LedgerPath), zap.Error(err))
		_ = ledger.Close()
		return nil
	}
	log.Info("recording run", zap.String("run", runID), zap.String("ledger", cfg.LedgerPath))
	return ledger
}

func newVideoTool(cfg Config) ports.VideoTool {
	if cfg.Backend == BackendFFmpegGo {
		return ffmpeggo.New(cfg.FFmpegPath, cfg.FFprobePath)
	}
	return ffmpeg.New(cfg.FFmpegPath, cfg.FFprobePath)
}

// ensure adapters implement ports
var _ ports.VideoTool = (*ffmpeg.Adapter)(nil)
var _ ports.VideoTool = (*ffmpeggo.Adapter)(nil)
var _ ports.Ledger = (*sqlite.Ledger)(nil)
var _ ports.Progress = (*progressbar.ProgressBar)(nil)
