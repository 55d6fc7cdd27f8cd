// Package main 命令行入口，直接在进程内运行调查与问答，不依赖数据库和队列
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"agent-smith-api/internal/config"
	einoobs "agent-smith-api/internal/observability/eino"
	"agent-smith-api/internal/wire"
	"agent-smith-api/pkg/logger"
)

var (
	configDir string
	logLevel  string

	cli *wire.CLI
)

var rootCmd = &cobra.Command{
	Use:           "agent-cli",
	Short:         "Run investigations and assistant queries from the terminal",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()

		var (
			cfg *config.Config
			err error
		)
		if configDir != "" {
			cfg, err = config.LoadFrom(configDir)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		level := cfg.Observability.Logging.Level
		if logLevel != "" {
			level = logLevel
		}
		// 日志写 stderr，stdout 只输出结果
		logger.InitWithWriter(os.Stderr, level, "text")
		einoobs.Init()

		cli = wire.BuildCLI(cfg)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "directory containing config.yaml (default $APP_CONFIG_DIR or ./configs)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override the configured log level")

	rootCmd.AddCommand(investigateCmd, askCmd, webCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
