package types

import (
	"fmt"
	"time"
)

type FrameInterval struct {
	Start int
	End   int
}

// Class maps an annotation slot to the class id and label written to the manifest.
type Class struct {
	Slot  int
	ID    int
	Label string
}

// Tag is the "<id>_<label>" form used in clip names and per-class directories.
func (c Class) Tag() string {
	return fmt.Sprintf("%d_%s", c.ID, c.Label)
}

type ClipTask struct {
	VideoID  string
	Index    int
	Class    Class
	Interval FrameInterval
	Start    time.Duration
	End      time.Duration
}

// Name is unique within a run: video id, class tag and interval index.
func (t ClipTask) Name() string {
	return fmt.Sprintf("%s_%s_%d", t.VideoID, t.Class.Tag(), t.Index)
}

func (t ClipTask) Degenerate() bool {
	return t.Start == t.End
}

type ManifestRow struct {
	ClipName string
	ClassID  int
	Label    string
}

type ClipStatus string

const (
	StatusExtracted ClipStatus = "extracted"
	StatusSkipped   ClipStatus = "skipped"
	StatusFailed    ClipStatus = "failed"
	StatusLabeled   ClipStatus = "labeled"
)

type ClipRecord struct {
	RunID      string
	VideoID    string
	ClipName   string
	ClassID    int
	Label      string
	Index      int
	StartFrame int
	EndFrame   int
	StartSec   float64
	EndSec     float64
	Status     ClipStatus
	Detail     string
}

type Summary struct {
	RunID        string
	Videos       int
	VideosFailed int
	Extracted    int
	Skipped      int
	Failed       int
	Labeled      int
}
