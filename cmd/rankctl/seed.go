package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/okian/rankpredictor/internal/adapters/cutoffs"
	"github.com/okian/rankpredictor/internal/adapters/repository"
	"github.com/okian/rankpredictor/internal/domain/college"
	"github.com/okian/rankpredictor/internal/trainingdata"
	"github.com/okian/rankpredictor/pkg/logger"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Fill the store with synthetic students, cutoffs and prior-year results",
	RunE: func(cmd *cobra.Command, _ []string) error {
		flags := cmd.Flags()
		users, _ := flags.GetInt("users")
		attempts, _ := flags.GetInt("attempts")
		seed, _ := flags.GetUint64("seed")
		year, _ := flags.GetInt("year")
		results, _ := flags.GetInt("results")
		cutoffsFile, _ := flags.GetString("cutoffs")

		ctx := cmd.Context()
		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = st.Close() }()

		g := trainingdata.New(trainingdata.WithSeed(seed), trainingdata.WithAttempts(attempts))
		created, saved := 0, 0
		for _, s := range g.Students(users) {
			if _, err := st.User(ctx, s.ID); err == nil {
				continue
			} else if !errors.Is(err, repository.ErrNotFound) {
				return err
			}
			if _, err := st.CreateUser(ctx, repository.User{ID: s.ID, Name: s.Name}); err != nil {
				return err
			}
			created++
			for _, a := range s.Attempts {
				if _, err := st.SaveAttempt(ctx, s.ID, a); err != nil {
					return fmt.Errorf("student %s: %w", s.ID, err)
				}
				saved++
			}
		}

		table, err := loadCutoffs(cmd.InOrStdin(), cutoffsFile)
		if err != nil {
			return err
		}
		for _, c := range table.Cutoffs() {
			if err := st.UpsertCutoff(ctx, c); err != nil {
				return err
			}
		}

		if results > 0 {
			if err := st.SaveExamResults(ctx, g.ExamResults(year, results)); err != nil {
				return err
			}
		}

		logger.Get().Info(ctx, "store seeded",
			logger.String("db", cfg.DBPath),
			logger.Int("users", created),
			logger.Int("attempts", saved),
			logger.Int("cutoffs", table.Len()),
			logger.Int("results", results),
		)
		fmt.Fprintf(cmd.OutOrStdout(), "seeded %d users, %d attempts, %d cutoffs, %d %d results into %s\n",
			created, saved, table.Len(), results, year, cfg.DBPath)
		return nil
	},
}

func init() {
	seedCmd.Flags().Int("users", 50, "Synthetic students to create")
	seedCmd.Flags().Int("attempts", 6, "Attempts per student")
	seedCmd.Flags().Uint64("seed", 42, "Generator seed")
	seedCmd.Flags().Int("year", 2023, "Year of the prior exam results")
	seedCmd.Flags().Int("results", 400, "Prior-year results to store, 0 to skip")
	seedCmd.Flags().String("cutoffs", "", "YAML cutoff table, - for stdin; empty stores the built-in table")
}

// loadCutoffs reads the cutoff table from path, from in when path is "-",
// or falls back to the static table.
func loadCutoffs(in io.Reader, path string) (*college.Table, error) {
	switch path {
	case "":
		return college.Static(), nil
	case "-":
		b, err := io.ReadAll(in)
		if err != nil {
			return nil, fmt.Errorf("read cutoffs: %w", err)
		}
		return cutoffs.LoadBytes(b)
	default:
		return cutoffs.LoadFile(path)
	}
}
