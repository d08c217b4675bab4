package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jwo-cv/merlcut/internal/logger"
	"github.com/jwo-cv/merlcut/internal/pipeline"
)

func newPublishCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "publish <dir>",
		Short: "Upload a produced dataset directory to an S3-compatible bucket",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := pipeline.LoadPublishConfig()
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			cfg.Dir = args[0]

			f := cmd.Flags()
			if f.Changed("manifest") {
				cfg.ManifestPath, _ = f.GetString("manifest")
			}
			if f.Changed("bucket") {
				cfg.Bucket, _ = f.GetString("bucket")
			}
			if f.Changed("prefix") {
				cfg.Prefix, _ = f.GetString("prefix")
			}
			if f.Changed("endpoint") {
				cfg.Endpoint, _ = f.GetString("endpoint")
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("config: %w", err)
			}

			level, _ := f.GetString("log-level")
			log, err := logger.New(level, cmd.OutOrStdout())
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			defer func() { _ = log.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			_, err = pipeline.Publish(ctx, cfg, log)
			return err
		},
	}

	cmd.Flags().String("manifest", "", "Manifest CSV path (default <dir>/labels.csv)")
	cmd.Flags().String("bucket", "merlcut", "Target bucket")
	cmd.Flags().String("prefix", "", "Object key prefix")
	cmd.Flags().String("endpoint", "localhost:9000", "S3 endpoint host:port")
	cmd.Flags().String("log-level", "info", "Log level: debug, info, warn, error")
	return cmd
}
