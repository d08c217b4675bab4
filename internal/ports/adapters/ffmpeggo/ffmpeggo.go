// Package ffmpeggo implements the video tool on top of the ffmpeg-go command
// graph builder.
package ffmpeggo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"time"

	ffmpeg_go "github.com/u2takey/ffmpeg-go"

	"github.com/jwo-cv/merlcut/internal/ports/adapters/ffmpeg"
)

type Adapter struct {
	ffmpeg  string
	ffprobe string
}

func New(ffmpegPath, ffprobePath string) *Adapter {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &Adapter{ffmpeg: ffmpegPath, ffprobe: ffprobePath}
}

// TrimArgs compiles the trim graph to ffmpeg arguments.
func TrimArgs(src string, start, end time.Duration, dst string) []string {
	return ffmpeg_go.
		Input(src, ffmpeg_go.KwArgs{
			"ss": ffmpeg.FmtSeconds(start),
			"to": ffmpeg.FmtSeconds(end),
		}).
		Output(dst).
		OverWriteOutput().
		GetArgs()
}

func (a *Adapter) Trim(ctx context.Context, src string, start, end time.Duration, dst string) error {
	cmd := exec.CommandContext(ctx, a.ffmpeg, TrimArgs(src, start, end, dst)...)
	cmd.WaitDelay = 2 * time.Second
	b, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("ffmpeg-go trim: %w", ctx.Err())
		}
		return fmt.Errorf("ffmpeg-go trim: %w\n%s", err, string(b))
	}
	return nil
}

type probeResult struct {
	Streams []struct {
		CodecType    string `json:"codec_type"`
		AvgFrameRate string `json:"avg_frame_rate"`
	} `json:"streams"`
}

// ProbeArgs are the ffprobe arguments for a JSON stream listing of src.
func ProbeArgs(src string) []string {
	args := ffmpeg_go.ConvertKwargsToCmdLineArgs(ffmpeg_go.KwArgs{
		"v":            "error",
		"show_streams": "",
		"of":           "json",
	})
	return append(args, src)
}

func (a *Adapter) ProbeFrameRate(ctx context.Context, src string) (float64, error) {
	cmd := exec.CommandContext(ctx, a.ffprobe, ProbeArgs(src)...)
	cmd.WaitDelay = 2 * time.Second
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if ctx.Err() != nil {
			return 0, fmt.Errorf("ffprobe frame rate: %w", ctx.Err())
		}
		return 0, fmt.Errorf("ffprobe frame rate: %w\n%s", err, stderr.String())
	}
	return FrameRateFromProbe(string(out))
}

// FrameRateFromProbe picks avg_frame_rate of the first video stream in ffprobe
// JSON output.
func FrameRateFromProbe(out string) (float64, error) {
	var res probeResult
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		return 0, fmt.Errorf("decode probe output: %w", err)
	}
	for _, s := range res.Streams {
		if s.CodecType == "video" {
			return ffmpeg.ParseRate(s.AvgFrameRate)
		}
	}
	return 0, errors.New("no video stream")
}
