// Package annotations reads per-video frame-interval labels stored as MATLAB
// Level 5 MAT-files (one file per video, one cell per action class).
package annotations

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jwo-cv/merlcut/internal/types"
)

var (
	ErrMalformed  = errors.New("malformed annotation file")
	ErrNoVariable = errors.New("annotation variable not found")
	// ErrDuplicateVideo means two annotation files resolve to one video id.
	ErrDuplicateVideo = errors.New("ambiguous video id")
)

const (
	DefaultVariable = "tlabs"
	DefaultSuffix   = "_label"
)

// File is one discovered annotation file.
type File struct {
	Path    string
	VideoID string
}

// Discover lists the *.mat files in dir sorted by name. The video id is the file
// stem with every occurrence of suffix removed; two files mapping to the same id
// are an error since their clip names would collide.
func Discover(dir, suffix string) ([]File, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read annotation dir: %w", err)
	}
	var out []File
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".mat") {
			continue
		}
		stem := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
		id := stem
		if suffix != "" {
			id = strings.ReplaceAll(stem, suffix, "")
		}
		out = append(out, File{
			Path:    filepath.Join(dir, e.Name()),
			VideoID: id,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })

	seen := make(map[string]string, len(out))
	for _, f := range out {
		if f.VideoID == "" {
			return nil, fmt.Errorf("%w: %s has an empty video id", ErrDuplicateVideo, f.Path)
		}
		if prev, ok := seen[f.VideoID]; ok {
			return nil, fmt.Errorf("%w: %q from %s and %s", ErrDuplicateVideo, f.VideoID, prev, f.Path)
		}
		seen[f.VideoID] = f.Path
	}
	return out, nil
}

// Annotation holds the interval lists of one video, indexed by class slot.
type Annotation struct {
	VideoID string
	slots   [][]types.FrameInterval
}

func (a Annotation) Slots() int { return len(a.slots) }

// Intervals returns the slot's intervals in file order; a slot the file does not
// have is empty.
func (a Annotation) Intervals(slot int) []types.FrameInterval {
	if slot < 0 || slot >= len(a.slots) {
		return nil
	}
	return append([]types.FrameInterval(nil), a.slots[slot]...)
}

func LoadFile(f File, variable string) (Annotation, error) {
	b, err := os.ReadFile(f.Path)
	if err != nil {
		return Annotation{}, fmt.Errorf("read %s: %w", f.Path, err)
	}
	slots, err := Decode(b, variable)
	if err != nil {
		return Annotation{}, fmt.Errorf("decode %s: %w", f.Path, err)
	}
	return Annotation{VideoID: f.VideoID, slots: slots}, nil
}

// Decode extracts the cell array named variable from MAT-file bytes. Slot k is the
// k-th cell in column-major order.
func Decode(data []byte, variable string) ([][]types.FrameInterval, error) {
	if variable == "" {
		variable = DefaultVariable
	}
	vars, err := decodeMAT(data)
	if err != nil {
		return nil, err
	}
	v, ok := vars[variable]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoVariable, variable)
	}
	if v.class != mxCELL {
		return nil, fmt.Errorf("%w: %q is not a cell array", ErrMalformed, variable)
	}

	out := make([][]types.FrameInterval, 0, len(v.cells))
	for i, c := range v.cells {
		ivs, err := intervals(c)
		if err != nil {
			return nil, fmt.Errorf("slot %d: %w", i, err)
		}
		out = append(out, ivs)
	}
	return out, nil
}

func intervals(a *mxArray) ([]types.FrameInterval, error) {
	if a.count() == 0 {
		return nil, nil
	}
	if !a.numeric() {
		return nil, fmt.Errorf("%w: class %d is not numeric", ErrMalformed, a.class)
	}
	if len(a.dims) != 2 {
		return nil, fmt.Errorf("%w: %d-dimensional interval array", ErrMalformed, len(a.dims))
	}

	rows, cols := a.dims[0], a.dims[1]
	at := func(i, j int) float64 { return a.real[i+j*rows] }
	if cols != 2 {
		if rows != 2 {
			return nil, fmt.Errorf("%w: interval array is %dx%d", ErrMalformed, rows, cols)
		}
		rows, cols = cols, rows
		at = func(i, j int) float64 { return a.real[j+i*2] }
	}

	out := make([]types.FrameInterval, 0, rows)
	for i := 0; i < rows; i++ {
		s, e := at(i, 0), at(i, 1)
		if math.IsNaN(s) || math.IsNaN(e) || s < 0 || e < 0 {
			return nil, fmt.Errorf("%w: row %d has invalid frames (%v, %v)", ErrMalformed, i, s, e)
		}
		iv := types.FrameInterval{Start: int(s), End: int(e)}
		if iv.End < iv.Start {
			return nil, fmt.Errorf("%w: row %d ends before it starts (%d, %d)", ErrMalformed, i, iv.Start, iv.End)
		}
		out = append(out, iv)
	}
	return out, nil
}
