// Package main 建表并确保向量集合存在，部署时在服务启动前执行一次
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"agent-smith-api/internal/config"
	"agent-smith-api/internal/wire"
	"agent-smith-api/pkg/logger"
)

func main() {
	var (
		timeout     time.Duration
		skipVectors bool
	)
	cmd := &cobra.Command{
		Use:          "bootstrap",
		Short:        "Migrate the relational schema and ensure the findings collection",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_ = godotenv.Load()
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger.Init(cfg.Observability.Logging.Level, cfg.Observability.Logging.Format)

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			if err := run(ctx, cfg, skipVectors); err != nil {
				logger.Error(ctx, "bootstrap failed", err)
				return err
			}
			logger.Info(ctx, "bootstrap completed")
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "overall bootstrap timeout")
	cmd.Flags().BoolVar(&skipVectors, "skip-vectors", false, "do not touch the Milvus findings collection")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, skipVectors bool) error {
	deps, cleanup, err := wire.InitializeBootstrap(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initialize data layer: %w", err)
	}
	defer cleanup()

	logger.Info(ctx, "migrating relational schema")
	if err := deps.PgClient.AutoMigrate(ctx); err != nil {
		return err
	}

	switch {
	case skipVectors:
		logger.Info(ctx, "skipping findings collection", "reason", "flag")
	case deps.FindingsRepo == nil:
		logger.Info(ctx, "skipping findings collection", "reason", "milvus disabled")
	default:
		logger.Info(ctx, "ensuring findings collection")
		if err := deps.FindingsRepo.EnsureFindingsCollection(ctx); err != nil {
			return fmt.Errorf("ensure findings collection: %w", err)
		}
	}
	return nil
}
