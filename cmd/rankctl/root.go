package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/okian/rankpredictor/internal/adapters/repository"
	"github.com/okian/rankpredictor/internal/config"
	"github.com/okian/rankpredictor/pkg/logger"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:           "rankctl",
	Short:         "Offline tooling for the rank predictor",
	Long:          "rankctl trains rank models, generates synthetic data, seeds the SQLite store and renders batch reports.",
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		return setup(cmd)
	},
}

// Execute runs the command tree.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Path to SQLite database file (overrides RANKPRED_DB_PATH)")
	rootCmd.PersistentFlags().String("model", "", "Path to the model snapshot (overrides RANKPRED_MODEL_PATH)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "", "Log format: text or json")

	rootCmd.AddCommand(trainCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(loadtestCmd)
}

// setup loads the configuration, applies flag overrides and initializes logging.
func setup(cmd *cobra.Command) error {
	c, err := config.Load()
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if v, _ := flags.GetString("db"); v != "" {
		c.DBPath = v
	}
	if v, _ := flags.GetString("model"); v != "" {
		c.ModelPath = v
	}
	if v, _ := flags.GetString("log-level"); v != "" {
		c.LogLevel = v
	}
	if v, _ := flags.GetString("log-format"); v != "" {
		c.LogFormat = v
	}

	if err := logger.Init(logger.WithFormat(c.LogFormat), logger.WithOutput(cmd.ErrOrStderr())); err != nil {
		return err
	}
	if err := logger.SetLevelString(c.LogLevel); err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	cfg = c
	return nil
}

// openStore opens the configured database.
func openStore(ctx context.Context) (*repository.SQLiteStore, error) {
	if cfg.DBPath == "" {
		return nil, fmt.Errorf("no database configured; pass --db or set RANKPRED_DB_PATH")
	}
	return repository.Open(ctx, cfg.DBPath, repository.WithLogger(logger.Named("repository")))
}
