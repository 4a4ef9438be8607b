package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"gwi.com/botchat/internal/artifacts"
	"gwi.com/botchat/internal/config"
	"gwi.com/botchat/internal/logger"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "botchat: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "botchat",
		Short:         "Multi-bot chat server",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runServe,
	}
	root.AddCommand(newServeCmd(), newMigrateCmd(), newExportCmd())
	return root
}

// loadConfig reads the environment and initialises the process logger from it.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger.Init(cfg.LogLevel, cfg.LogFormat)
	return cfg, nil
}

func newArtifactStore(ctx context.Context, cfg *config.Config) (artifacts.Store, error) {
	if cfg.ExportBackend == config.ExportS3 {
		return artifacts.NewS3Store(ctx, logger.L, artifacts.S3Options{
			Region:    cfg.AWSRegion,
			AccessKey: cfg.AWSAccessKey,
			SecretKey: cfg.AWSSecretKey,
			Bucket:    cfg.ExportBucket,
		})
	}
	return artifacts.NewLocalStore(cfg.UploadFolder), nil
}
