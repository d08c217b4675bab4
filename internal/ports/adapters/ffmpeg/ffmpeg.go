package ffmpeg

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

const waitDelay = 2 * time.Second

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

func (a *Adapter) Trim(ctx context.Context, src string, start, end time.Duration, dst string) error {
	cmd := exec.CommandContext(ctx, a.ffmpeg, TrimArgs(src, start, end, dst)...)
	cmd.WaitDelay = waitDelay
	b, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("ffmpeg trim: %w", ctx.Err())
		}
		return fmt.Errorf("ffmpeg trim: %w\n%s", err, string(b))
	}
	return nil
}

// TrimArgs seeks on the input side so the cut is fast and -to stays absolute.
func TrimArgs(src string, start, end time.Duration, dst string) []string {
	return []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-ss", FmtSeconds(start),
		"-to", FmtSeconds(end),
		"-i", src,
		dst,
	}
}

func (a *Adapter) ProbeFrameRate(ctx context.Context, src string) (float64, error) {
	cmd := exec.CommandContext(ctx, a.ffprobe,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=avg_frame_rate",
		"-of", "default=noprint_wrappers=1:nokey=1",
		src,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return 0, fmt.Errorf("ffprobe frame rate: %w\n%s", err, string(b))
	}
	return ParseRate(string(b))
}

// ParseRate parses ffprobe rates such as "30/1", "30000/1001" or "25".
func ParseRate(s string) (float64, error) {
	s = strings.TrimSpace(s)
	num, den, frac := strings.Cut(s, "/")
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, fmt.Errorf("parse frame rate %q: %w", s, err)
	}
	d := 1.0
	if frac {
		d, err = strconv.ParseFloat(den, 64)
		if err != nil {
			return 0, fmt.Errorf("parse frame rate %q: %w", s, err)
		}
	}
	if n <= 0 || d <= 0 {
		return 0, fmt.Errorf("parse frame rate %q: not positive", s)
	}
	return n / d, nil
}

func FmtSeconds(d time.Duration) string {
	sec := float64(d) / float64(time.Second)
	return strconv.FormatFloat(sec, 'f', 2, 64)
}
