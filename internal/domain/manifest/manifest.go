package manifest

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/jwo-cv/merlcut/internal/types"
)

// Header of the manifest CSV. The leading unnamed column is the row index.
var Header = []string{"", "video_name", "class", "label"}

// Builder accumulates manifest rows in memory for the whole run.
type Builder struct {
	rows []types.ManifestRow
}

func (b *Builder) Add(rows ...types.ManifestRow) {
	b.rows = append(b.rows, rows...)
}

func (b *Builder) Len() int { return len(b.rows) }

func (b *Builder) Rows() []types.ManifestRow {
	return append([]types.ManifestRow(nil), b.rows...)
}

// WriteCSV writes the table to path, creating parent directories. The file is
// replaced atomically.
func (b *Builder) WriteCSV(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create manifest dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".manifest-*.csv")
	if err != nil {
		return fmt.Errorf("create manifest: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	_ = w.Write(Header)
	for i, r := range b.rows {
		_ = w.Write([]string{strconv.Itoa(i), r.ClipName, strconv.Itoa(r.ClassID), r.Label})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write manifest: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close manifest: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// ReadCSV parses a manifest written by WriteCSV.
func ReadCSV(path string) ([]types.ManifestRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	recs, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	if len(recs) == 0 {
		return nil, fmt.Errorf("read manifest: empty file")
	}
	out := make([]types.ManifestRow, 0, len(recs)-1)
	for i, rec := range recs[1:] {
		if len(rec) != len(Header) {
			return nil, fmt.Errorf("read manifest: row %d has %d columns", i, len(rec))
		}
		id, err := strconv.Atoi(rec[2])
		if err != nil {
			return nil, fmt.Errorf("read manifest: row %d class: %w", i, err)
		}
		out = append(out, types.ManifestRow{ClipName: rec[1], ClassID: id, Label: rec[3]})
	}
	return out, nil
}
