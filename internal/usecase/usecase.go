package usecase

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/jwo-cv/merlcut/internal/domain/annotations"
	"github.com/jwo-cv/merlcut/internal/domain/clips"
	"github.com/jwo-cv/merlcut/internal/domain/manifest"
	"github.com/jwo-cv/merlcut/internal/metrics"
	"github.com/jwo-cv/merlcut/internal/ports"
	"github.com/jwo-cv/merlcut/internal/types"
)

type Deps struct {
	Video    ports.VideoTool
	Ledger   ports.Ledger   // optional
	Progress ports.Progress // optional
	Metrics  *metrics.Metrics
	Log      *zap.Logger
}

type Usecase struct{ d Deps }

func New(d Deps) Usecase {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	return Usecase{d: d}
}

type Input struct {
	RunID string
	Files []annotations.File

	Variable string
	Classes  []types.Class

	VideoDir      string
	VideoTemplate string
	OutDir        string
	Ext           string
	GroupByClass  bool

	FrameRate      float64
	ProbeFrameRate bool
	TrimTimeout    time.Duration

	LabelsOnly bool
	FailFast   bool
}

type Result struct {
	Manifest *manifest.Builder
	Summary  types.Summary
}

// Run processes every annotation file in order. A file that cannot be loaded is
// skipped unless FailFast is set; a clip that cannot be cut never reaches the
// manifest. Only cancellation, FailFast and output directory errors abort.
func (u Usecase) Run(ctx context.Context, in Input) (Result, error) {
	res := Result{Manifest: &manifest.Builder{}}
	for _, f := range in.Files {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		res.Summary.Videos++
		log := u.d.Log.With(zap.String("video", f.VideoID))
		log.Info("processing video")

		a, err := annotations.LoadFile(f, in.Variable)
		if err != nil {
			res.Summary.VideosFailed++
			u.d.Metrics.Video(false)
			if in.FailFast {
				return res, fmt.Errorf("load annotations for %s: %w", f.VideoID, err)
			}
			log.Warn("skipping video, annotations unreadable", zap.String("file", f.Path), zap.Error(err))
			u.advance()
			continue
		}

		for _, c := range in.Classes {
			rows, err := u.extract(ctx, in, a.VideoID, a.Intervals(c.Slot), c, &res.Summary)
			res.Manifest.Add(rows...)
			if err != nil {
				return res, err
			}
		}
		u.d.Metrics.Video(true)
		u.advance()
	}
	return res, nil
}

// extract cuts one clip per interval of a class and returns the manifest rows of
// the clips that were produced.
func (u Usecase) extract(
	ctx context.Context,
	in Input,
	videoID string,
	ivs []types.FrameInterval,
	c types.Class,
	sum *types.Summary,
) ([]types.ManifestRow, error) {
	if len(ivs) == 0 {
		return nil, nil
	}
	log := u.d.Log.With(zap.String("video", videoID), zap.String("class", c.Tag()))
	log.Info("extracting clips", zap.Int("intervals", len(ivs)))

	src := clips.SourcePath(in.VideoDir, in.VideoTemplate, videoID)
	fps := in.FrameRate
	if in.ProbeFrameRate {
		probed, err := u.d.Video.ProbeFrameRate(ctx, src)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Error("cannot read source video, abandoning class", zap.String("source", src), zap.Error(err))
			for _, t := range clips.Plan(videoID, ivs, c, in.FrameRate) {
				if t.Interval.Start == t.Interval.End {
					u.finish(ctx, in.RunID, t, types.StatusSkipped, "", sum)
					continue
				}
				u.finish(ctx, in.RunID, t, types.StatusFailed, "probe: "+err.Error(), sum)
			}
			return nil, nil
		}
		fps = probed
	}

	if !in.LabelsOnly {
		if err := os.MkdirAll(clips.OutputDir(in.OutDir, c, in.GroupByClass), 0o755); err != nil {
			return nil, fmt.Errorf("create clip dir: %w", err)
		}
	}

	var rows []types.ManifestRow
	for _, t := range clips.Plan(videoID, ivs, c, fps) {
		if err := ctx.Err(); err != nil {
			return rows, err
		}
		tlog := log.With(
			zap.String("clip", t.Name()),
			zap.Int("start_frame", t.Interval.Start),
			zap.Int("end_frame", t.Interval.End),
		)
		if t.Degenerate() {
			tlog.Info("same start and end time, skipping")
			u.finish(ctx, in.RunID, t, types.StatusSkipped, "", sum)
			continue
		}

		row := types.ManifestRow{ClipName: t.Name(), ClassID: c.ID, Label: c.Label}
		if in.LabelsOnly {
			u.finish(ctx, in.RunID, t, types.StatusLabeled, "", sum)
			rows = append(rows, row)
			continue
		}

		dst := clips.OutputPath(in.OutDir, t, in.Ext, in.GroupByClass)
		if err := u.trim(ctx, in.TrimTimeout, src, t, dst); err != nil {
			_ = os.Remove(dst)
			if ctx.Err() != nil {
				return rows, ctx.Err()
			}
			tlog.Error("failed to extract clip", zap.Error(err))
			u.finish(ctx, in.RunID, t, types.StatusFailed, err.Error(), sum)
			continue
		}
		tlog.Info("saved clip",
			zap.String("path", dst),
			zap.Float64("start_sec", t.Start.Seconds()),
			zap.Float64("end_sec", t.End.Seconds()),
		)
		u.finish(ctx, in.RunID, t, types.StatusExtracted, "", sum)
		rows = append(rows, row)
	}
	return rows, nil
}

func (u Usecase) trim(ctx context.Context, timeout time.Duration, src string, t types.ClipTask, dst string) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	began := time.Now()
	err := u.d.Video.Trim(ctx, src, t.Start, t.End, dst)
	u.d.Metrics.ObserveTrim(time.Since(began))
	return err
}

func (u Usecase) finish(ctx context.Context, runID string, t types.ClipTask, status types.ClipStatus, detail string, sum *types.Summary) {
	switch status {
	case types.StatusExtracted:
		sum.Extracted++
	case types.StatusSkipped:
		sum.Skipped++
	case types.StatusFailed:
		sum.Failed++
	case types.StatusLabeled:
		sum.Labeled++
	}
	u.d.Metrics.Clip(status)

	if u.d.Ledger == nil {
		return
	}
	rec := types.ClipRecord{
		RunID:      runID,
		VideoID:    t.VideoID,
		ClipName:   t.Name(),
		ClassID:    t.Class.ID,
		Label:      t.Class.Label,
		Index:      t.Index,
		StartFrame: t.Interval.Start,
		EndFrame:   t.Interval.End,
		StartSec:   t.Start.Seconds(),
		EndSec:     t.End.Seconds(),
		Status:     status,
		Detail:     detail,
	}
	if err := u.d.Ledger.RecordClip(context.WithoutCancel(ctx), rec); err != nil {
		u.d.Log.Warn("ledger write failed", zap.String("clip", rec.ClipName), zap.Error(err))
	}
}

func (u Usecase) advance() {
	if u.d.Progress != nil {
		_ = u.d.Progress.Add(1)
	}
}
