package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/prometheusai/promptstore/internal/metrics"
	"github.com/prometheusai/promptstore/pkg/config"
	"github.com/prometheusai/promptstore/pkg/logger"
)

var (
	cfg    *config.Config
	dbPath string
)

var rootCmd = &cobra.Command{
	Use:   "promptstore",
	Short: "Storage core for the prompt library",
	Long: `promptstore manages the prompt library's SQLite database: it applies
pending schema migrations and validates a live database against the
expected structure and latency requirements.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if err := logger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		if dbPath == "" {
			dbPath = cfg.Database.Path
		}
		metrics.Register()
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "path to the SQLite database (defaults to config)")
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(validateCmd)
}
