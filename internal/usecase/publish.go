package usecase

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/jwo-cv/merlcut/internal/ports"
)

// Publish uploads every regular file under dir to store, keyed by its slash
// separated path relative to dir under prefix. Hidden files are skipped.
func Publish(ctx context.Context, store ports.ObjectStore, dir, prefix string, log *zap.Logger) (int, error) {
	if log == nil {
		log = zap.NewNop()
	}
	n := 0
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p != dir && len(d.Name()) > 0 && d.Name()[0] == '.' {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		key := ObjectKey(prefix, rel)
		if err := store.Upload(ctx, key, p); err != nil {
			return err
		}
		log.Info("uploaded", zap.String("key", key))
		n++
		return nil
	})
	if err != nil {
		return n, fmt.Errorf("publish %s: %w", dir, err)
	}
	return n, nil
}

func ObjectKey(prefix, rel string) string {
	return path.Join(prefix, filepath.ToSlash(rel))
}
