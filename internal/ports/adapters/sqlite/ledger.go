// Package sqlite records run and per-clip outcomes in a local SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/jwo-cv/merlcut/internal/types"
)

type Ledger struct {
	db *sql.DB
}

// Open opens or creates the ledger at path. Parent directories are created if
// they don't exist.
func Open(path string) (*Ledger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Ledger{db: db}, nil
}

// migrate is idempotent.
func migrate(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			started_at DATETIME NOT NULL,
			finished_at DATETIME,
			config TEXT,
			videos INTEGER DEFAULT 0,
			videos_failed INTEGER DEFAULT 0,
			extracted INTEGER DEFAULT 0,
			skipped INTEGER DEFAULT 0,
			failed INTEGER DEFAULT 0,
			labeled INTEGER DEFAULT 0
		);
		CREATE TABLE IF NOT EXISTS clips (
			id INTEGER PRIMARY KEY,
			run_id TEXT NOT NULL REFERENCES runs(id),
			video_id TEXT NOT NULL,
			clip_name TEXT NOT NULL,
			class_id INTEGER NOT NULL,
			label TEXT NOT NULL,
			interval_index INTEGER NOT NULL,
			start_frame INTEGER NOT NULL,
			end_frame INTEGER NOT NULL,
			start_sec REAL NOT NULL,
			end_sec REAL NOT NULL,
			status TEXT NOT NULL,
			detail TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_clips_run ON clips(run_id);
	`)
	if err != nil {
		return fmt.Errorf("migrate ledger: %w", err)
	}
	return nil
}

func (l *Ledger) Close() error { return l.db.Close() }

func (l *Ledger) StartRun(ctx context.Context, runID, config string, at time.Time) error {
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, config) VALUES (?, ?, ?)`,
		runID, at.UTC(), config,
	)
	if err != nil {
		return fmt.Errorf("start run: %w", err)
	}
	return nil
}

func (l *Ledger) FinishRun(ctx context.Context, runID string, at time.Time, s types.Summary) error {
	_, err := l.db.ExecContext(ctx, `
		UPDATE runs SET finished_at = ?, videos = ?, videos_failed = ?,
			extracted = ?, skipped = ?, failed = ?, labeled = ?
		WHERE id = ?`,
		at.UTC(), s.Videos, s.VideosFailed, s.Extracted, s.Skipped, s.Failed, s.Labeled, runID,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

func (l *Ledger) RecordClip(ctx context.Context, r types.ClipRecord) error {
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO clips (run_id, video_id, clip_name, class_id, label, interval_index,
			start_frame, end_frame, start_sec, end_sec, status, detail)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.VideoID, r.ClipName, r.ClassID, r.Label, r.Index,
		r.StartFrame, r.EndFrame, r.StartSec, r.EndSec, string(r.Status), r.Detail,
	)
	if err != nil {
		return fmt.Errorf("record clip %s: %w", r.ClipName, err)
	}
	return nil
}

// Clips returns the records of a run in insertion order.
func (l *Ledger) Clips(ctx context.Context, runID string) ([]types.ClipRecord, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT run_id, video_id, clip_name, class_id, label, interval_index,
			start_frame, end_frame, start_sec, end_sec, status, COALESCE(detail, '')
		FROM clips WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("query clips: %w", err)
	}
	defer rows.Close()

	var out []types.ClipRecord
	for rows.Next() {
		var r types.ClipRecord
		var status string
		if err := rows.Scan(&r.RunID, &r.VideoID, &r.ClipName, &r.ClassID, &r.Label, &r.Index,
			&r.StartFrame, &r.EndFrame, &r.StartSec, &r.EndSec, &status, &r.Detail); err != nil {
			return nil, fmt.Errorf("scan clip: %w", err)
		}
		r.Status = types.ClipStatus(status)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Summary reads back the counters stored for a finished run.
func (l *Ledger) Summary(ctx context.Context, runID string) (types.Summary, error) {
	var s types.Summary
	err := l.db.QueryRowContext(ctx, `
		SELECT videos, videos_failed, extracted, skipped, failed, labeled
		FROM runs WHERE id = ?`, runID,
	).Scan(&s.Videos, &s.VideosFailed, &s.Extracted, &s.Skipped, &s.Failed, &s.Labeled)
	if err != nil {
		return types.Summary{}, fmt.Errorf("query run %s: %w", runID, err)
	}
	return s, nil
}
