package main

import (
	"fmt"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/rankpredictor/internal/loadtest"
)

var loadtestCmd = &cobra.Command{
	Use:   "loadtest",
	Short: "Drive a running server with synthetic students and verify the responses",
	RunE: func(cmd *cobra.Command, _ []string) error {
		flags := cmd.Flags()
		conf := &loadtest.Config{}
		conf.BaseURL, _ = flags.GetString("url")
		conf.Students, _ = flags.GetInt("students")
		conf.Workers, _ = flags.GetInt("workers")
		conf.Timeout, _ = flags.GetDuration("timeout")
		conf.Seed, _ = flags.GetUint64("seed")
		conf.Verbose, _ = flags.GetBool("verbose")

		stats, err := loadtest.Run(cmd.Context(), conf)
		if stats != nil {
			fmt.Fprintf(cmd.OutOrStdout(), "%d students, %d attempts, %d predictions, %d reports, %d failed in %s\n",
				stats.StudentsCreated, stats.AttemptsSubmitted, stats.PredictionsMade,
				stats.ReportsFetched, stats.Failed, stats.Duration.Round(time.Millisecond))
		}
		return err
	},
}

func init() {
	loadtestCmd.Flags().String("url", "http://localhost:9080", "Base URL of the service")
	loadtestCmd.Flags().Int("students", 100, "Synthetic students to drive")
	loadtestCmd.Flags().Int("workers", runtime.NumCPU()*2, "Concurrent workers")
	loadtestCmd.Flags().Duration("timeout", 30*time.Second, "HTTP request timeout")
	loadtestCmd.Flags().Uint64("seed", 1, "Generator seed")
	loadtestCmd.Flags().Bool("verbose", false, "Log every student")
}
