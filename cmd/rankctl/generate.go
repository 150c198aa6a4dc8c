package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/okian/rankpredictor/internal/domain/rankmodel"
	"github.com/okian/rankpredictor/internal/trainingdata"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Write a synthetic training set as CSV",
	RunE: func(cmd *cobra.Command, _ []string) error {
		samples, _ := cmd.Flags().GetInt("samples")
		seed, _ := cmd.Flags().GetUint64("seed")
		out, _ := cmd.Flags().GetString("out")

		ds, err := trainingdata.New(trainingdata.WithSeed(seed)).Dataset(cmd.Context(), samples)
		if err != nil {
			return err
		}
		return writeDataset(cmd.OutOrStdout(), out, ds)
	},
}

func init() {
	generateCmd.Flags().Int("samples", 400, "Number of synthetic students")
	generateCmd.Flags().Uint64("seed", 42, "Generator seed")
	generateCmd.Flags().StringP("out", "o", "-", "Output file, - for stdout")
}

func writeDataset(stdout io.Writer, path string, ds *rankmodel.Dataset) error {
	if path == "-" || path == "" {
		return ds.WriteCSV(stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := ds.WriteCSV(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
