package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"go.uber.org/zap"

	"github.com/jwo-cv/merlcut/internal/domain/manifest"
	"github.com/jwo-cv/merlcut/internal/ports/adapters/minio"
	"github.com/jwo-cv/merlcut/internal/usecase"
)

type PublishConfig struct {
	Dir          string
	ManifestPath string

	Endpoint  string `env:"MINIO_ENDPOINT"   envDefault:"localhost:9000"`
	AccessKey string `env:"MINIO_ACCESS_KEY"`
	SecretKey string `env:"MINIO_SECRET_KEY"`
	UseSSL    bool   `env:"MINIO_USE_SSL"    envDefault:"false"`
	Bucket    string `env:"MINIO_BUCKET"     envDefault:"merlcut"`
	Prefix    string `env:"MINIO_PREFIX"`
}

func LoadPublishConfig() (PublishConfig, error) {
	var cfg PublishConfig
	if err := env.Parse(&cfg); err != nil {
		return PublishConfig{}, err
	}
	return cfg, nil
}

func (c PublishConfig) Validate() error {
	if c.Dir == "" {
		return errors.New("dataset dir is empty")
	}
	if err := requireDir(c.Dir); err != nil {
		return fmt.Errorf("dataset dir: %w", err)
	}
	if _, _, err := minio.ParseEndpoint(c.Endpoint, c.UseSSL); err != nil {
		return err
	}
	if c.AccessKey == "" || c.SecretKey == "" {
		return errors.New("MINIO_ACCESS_KEY and MINIO_SECRET_KEY are required")
	}
	if c.Bucket == "" {
		return errors.New("MINIO_BUCKET is required")
	}
	return nil
}

// Publish uploads a produced dataset directory. The manifest must be readable so
// a half-written output tree is never published.
func Publish(ctx context.Context, cfg PublishConfig, log *zap.Logger) (int, error) {
	if log == nil {
		log = zap.NewNop()
	}
	manifestPath := cfg.ManifestPath
	if manifestPath == "" {
		manifestPath = filepath.Join(cfg.Dir, "labels.csv")
	}
	rows, err := manifest.ReadCSV(manifestPath)
	if err != nil {
		return 0, fmt.Errorf("manifest: %w", err)
	}
	log.Info("publishing dataset", zap.String("dir", cfg.Dir), zap.Int("rows", len(rows)), zap.String("bucket", cfg.Bucket))

	store, err := minio.New(minio.Config{
		Endpoint:  cfg.Endpoint,
		AccessKey: cfg.AccessKey,
		SecretKey: cfg.SecretKey,
		UseSSL:    cfg.UseSSL,
		Bucket:    cfg.Bucket,
	})
	if err != nil {
		return 0, err
	}
	if err := store.EnsureBucket(ctx); err != nil {
		return 0, err
	}
	n, err := usecase.Publish(ctx, store, cfg.Dir, cfg.Prefix, log)
	if err != nil {
		return n, err
	}
	log.Info("published", zap.Int("objects", n))
	return n, nil
}
