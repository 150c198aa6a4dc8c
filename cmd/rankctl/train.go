package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	service "github.com/okian/rankpredictor/internal/app"
	"github.com/okian/rankpredictor/internal/domain/rankmodel"
	"github.com/okian/rankpredictor/internal/trainingdata"
	"github.com/okian/rankpredictor/pkg/logger"
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train a rank model and save the snapshot",
	Long:  "Train reads a CSV training set (feature columns plus a rank column) or generates a synthetic one, selects the best estimator on a holdout split and writes the model snapshot.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		data, _ := cmd.Flags().GetString("data")
		samples, _ := cmd.Flags().GetInt("samples")
		seed, _ := cmd.Flags().GetUint64("seed")

		ds, err := loadDataset(cmd, data, samples, seed)
		if err != nil {
			return err
		}

		svc := service.New(service.WithLogger(logger.Named("service")))
		info, scores, err := svc.Retrain(cmd.Context(), ds)
		if err != nil {
			return err
		}
		if err := svc.Model().Load().SaveFile(cfg.ModelPath); err != nil {
			return err
		}

		printScores(cmd.OutOrStdout(), scores)
		fmt.Fprintf(cmd.OutOrStdout(), "\nselected %s%v (holdout MAE %.1f, %d rows) -> %s\n",
			info.Family, info.Params, info.HoldoutMAE, info.Rows, cfg.ModelPath)
		return nil
	},
}

func init() {
	trainCmd.Flags().String("data", "", "CSV training set; empty generates a synthetic one")
	trainCmd.Flags().Int("samples", 400, "Synthetic students when --data is empty")
	trainCmd.Flags().Uint64("seed", 42, "Generator seed when --data is empty")
}

func loadDataset(cmd *cobra.Command, path string, samples int, seed uint64) (*rankmodel.Dataset, error) {
	if path == "" {
		return trainingdata.New(trainingdata.WithSeed(seed)).Dataset(cmd.Context(), samples)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()
	return rankmodel.ReadCSV(f)
}

func printScores(w io.Writer, scores []rankmodel.CandidateScore) {
	sorted := append([]rankmodel.CandidateScore(nil), scores...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].MAE < sorted[j].MAE })

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CANDIDATE\tHOLDOUT MAE")
	for _, s := range sorted {
		fmt.Fprintf(tw, "%s\t%.1f\n", s.Candidate, s.MAE)
	}
	_ = tw.Flush()
}
