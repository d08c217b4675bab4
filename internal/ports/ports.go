package ports

import (
	"context"
	"time"

	"github.com/jwo-cv/merlcut/internal/types"
)

type VideoTool interface {
	// Trim cuts [start, end] of src into dst, overwriting dst.
	Trim(ctx context.Context, src string, start, end time.Duration, dst string) error
	ProbeFrameRate(ctx context.Context, src string) (float64, error)
}

type Ledger interface {
	RecordClip(ctx context.Context, rec types.ClipRecord) error
}

type Progress interface {
	Add(n int) error
}

type ObjectStore interface {
	Upload(ctx context.Context, key, path string) error
}
