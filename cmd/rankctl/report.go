package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/cobra"

	"github.com/okian/rankpredictor/internal/adapters/chart"
	service "github.com/okian/rankpredictor/internal/app"
	"github.com/okian/rankpredictor/internal/domain/model"
	"github.com/okian/rankpredictor/internal/domain/rankmodel"
	"github.com/okian/rankpredictor/pkg/logger"
)

var reportCmd = &cobra.Command{
	Use:   "report [user-id...]",
	Short: "Build reports for users through the worker pool",
	Long:  "Report predicts the latest attempt of every named user (all users when none are named), writes one JSON report per user and optionally PNG charts.",
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		outDir, _ := flags.GetString("out")
		charts, _ := flags.GetBool("charts")
		workers, _ := flags.GetInt("workers")

		ctx := cmd.Context()
		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = st.Close() }()

		m, err := rankmodel.LoadFile(cfg.ModelPath)
		if err != nil {
			return fmt.Errorf("load model (run rankctl train first): %w", err)
		}

		ids := args
		if len(ids) == 0 {
			users, err := st.Users(ctx)
			if err != nil {
				return err
			}
			for _, u := range users {
				ids = append(ids, u.ID)
			}
		}

		if outDir != "" {
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return fmt.Errorf("create %s: %w", outDir, err)
			}
		}
		w := &reportWriter{dir: outDir, charts: charts, threshold: cfg.WeakThreshold, stdout: cmd.OutOrStdout()}

		if workers <= 0 {
			workers = cfg.WorkerCount
		}
		svc := service.New(
			service.WithLogger(logger.Named("service")),
			service.WithStore(st),
			service.WithModel(rankmodel.NewHolder(m)),
			service.WithHistoryWindow(cfg.HistoryWindow),
			service.WithWeakThreshold(cfg.WeakThreshold),
			service.WithWorkerCount(workers),
			service.WithQueueSize(max(len(ids), 1)),
			service.WithReportSink(w.write),
		)
		if err := svc.Start(ctx); err != nil {
			return err
		}
		for _, id := range ids {
			if err := svc.EnqueueReport(ctx, id); err != nil {
				_ = svc.Stop(context.Background())
				return err
			}
		}
		if err := svc.Stop(ctx); err != nil {
			return err
		}

		fmt.Fprintf(cmd.ErrOrStderr(), "%d reports, %d failed\n", w.ok, w.failed)
		if w.failed > 0 {
			return fmt.Errorf("%d of %d reports failed", w.failed, len(ids))
		}
		return nil
	},
}

func init() {
	reportCmd.Flags().StringP("out", "o", "", "Directory for <user>.json files; empty prints JSON lines to stdout")
	reportCmd.Flags().Bool("charts", false, "Also write <user>-topics.png and <user>-history.png (needs --out)")
	reportCmd.Flags().Int("workers", 0, "Report workers; 0 uses the configured worker_count")
}

// reportWriter is the sink of the batch run. Workers call write concurrently.
type reportWriter struct {
	dir       string
	charts    bool
	threshold float64
	stdout    io.Writer

	mu         sync.Mutex
	ok, failed int
}

func (w *reportWriter) write(ctx context.Context, userID string, r *service.Report, err error) {
	if err == nil {
		err = w.persist(userID, r)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if err != nil {
		w.failed++
		logger.Get().Error(ctx, "report failed", logger.String("user", userID), logger.Error(err))
		return
	}
	w.ok++
	if w.dir == "" {
		_ = json.NewEncoder(w.stdout).Encode(r)
	}
}

func (w *reportWriter) persist(userID string, r *service.Report) error {
	if w.dir == "" {
		return nil
	}
	b, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	if err := os.WriteFile(filepath.Join(w.dir, userID+".json"), b, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	if !w.charts {
		return nil
	}
	if r.Analysis != nil {
		if err := writeChart(filepath.Join(w.dir, userID+"-topics.png"), func(f io.Writer) error {
			return chart.TopicPerformance(f, r.Analysis.TopicPerformance, chart.WithThreshold(w.threshold), chart.WithTitle(r.User.Name))
		}); err != nil {
			return err
		}
	}
	scores := append(model.Scores(r.History), r.Attempt.TotalScore)
	return writeChart(filepath.Join(w.dir, userID+"-history.png"), func(f io.Writer) error {
		return chart.ScoreHistory(f, scores, chart.WithTitle(r.User.Name))
	})
}

func writeChart(path string, draw func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := draw(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
