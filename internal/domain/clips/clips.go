package clips

import (
	"math"
	"path/filepath"
	"strings"
	"time"

	"github.com/jwo-cv/merlcut/internal/types"
)

// Seconds converts a frame number to a timestamp rounded to hundredths of a second.
func Seconds(frame int, fps float64) time.Duration {
	sec := math.Round(float64(frame)/fps*100) / 100
	return time.Duration(math.Round(sec*100)) * 10 * time.Millisecond
}

// Plan turns a class slot's intervals into clip tasks. Index is the interval's
// position in ivs, so degenerate intervals still consume an index.
func Plan(videoID string, ivs []types.FrameInterval, class types.Class, fps float64) []types.ClipTask {
	out := make([]types.ClipTask, 0, len(ivs))
	for i, iv := range ivs {
		out = append(out, types.ClipTask{
			VideoID:  videoID,
			Index:    i,
			Class:    class,
			Interval: iv,
			Start:    Seconds(iv.Start, fps),
			End:      Seconds(iv.End, fps),
		})
	}
	return out
}

// OutputPath is outDir/<name>.<ext>, or outDir/<class tag>/<name>.<ext> when
// grouped by class.
func OutputPath(outDir string, t types.ClipTask, ext string, groupByClass bool) string {
	return filepath.Join(OutputDir(outDir, t.Class, groupByClass), t.Name()+"."+strings.TrimPrefix(ext, "."))
}

func OutputDir(outDir string, c types.Class, groupByClass bool) string {
	if groupByClass {
		return filepath.Join(outDir, c.Tag())
	}
	return outDir
}

// SourcePath expands the {video} placeholder of template inside videoDir.
func SourcePath(videoDir, template, videoID string) string {
	return filepath.Join(videoDir, strings.ReplaceAll(template, "{video}", videoID))
}
