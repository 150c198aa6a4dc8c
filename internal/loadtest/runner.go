package loadtest

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/okian/rankpredictor/internal/trainingdata"
	"github.com/okian/rankpredictor/pkg/logger"
)

// Run creates every student through the API, stores its attempts, predicts
// its rank with persistence, looks up its colleges and fetches its report
// page. It fails when the service is unhealthy or a response breaks the
// prediction bounds.
func Run(ctx context.Context, config *Config) (*Stats, error) {
	stats := &Stats{StartTime: time.Now()}
	log := logger.Get().Named("loadtest")

	log.Info(ctx, "starting load test",
		logger.String("baseURL", config.BaseURL),
		logger.Int("students", config.Students),
		logger.Int("workers", config.Workers),
		logger.Duration("timeout", config.Timeout),
	)

	client := newHTTPClient(config.BaseURL, config.Timeout)
	if err := checkServiceHealth(ctx, client); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	students := trainingdata.New(trainingdata.WithSeed(config.Seed)).Students(config.Students)
	results := make([]studentResult, len(students))

	work := make(chan int, config.Workers*2)
	var wg sync.WaitGroup
	for w := 0; w < max(config.Workers, 1); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range work {
				results[i] = runStudent(ctx, client, students[i])
				if config.Verbose {
					log.Info(ctx, "student done",
						logger.String("user", results[i].UserID),
						logger.Int("rank", results[i].Rank),
						logger.Any("error", results[i].Err),
					)
				}
			}
		}()
	}
	go func() {
		defer close(work)
		for i := range students {
			select {
			case <-ctx.Done():
				return
			case work <- i:
			}
		}
	}()
	wg.Wait()

	for _, r := range results {
		if r.UserID != "" {
			stats.StudentsCreated++
		}
		stats.AttemptsSubmitted += r.Attempts
		if r.Rank > 0 {
			stats.PredictionsMade++
		}
		if r.Report {
			stats.ReportsFetched++
		}
		if r.Err != nil {
			stats.Failed++
			log.Warn(ctx, "student failed", logger.String("user", r.UserID), logger.Error(r.Err))
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats)

	if err := ctx.Err(); err != nil {
		return stats, fmt.Errorf("load test cancelled: %w", err)
	}
	if err := verifyResults(results); err != nil {
		return stats, fmt.Errorf("result verification failed: %w", err)
	}
	return stats, nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, client *httpClient) error {
	status, _, err := client.get(ctx, "/healthz")
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("service health check failed with status: %d", status)
	}
	return nil
}

func runStudent(ctx context.Context, client *httpClient, s trainingdata.Student) studentResult {
	var res studentResult

	var user struct {
		ID string `json:"id"`
	}
	if _, err := client.postJSON(ctx, "/users", map[string]string{"name": s.Name}, &user); err != nil {
		res.Err = err
		return res
	}
	res.UserID = user.ID

	for _, a := range s.Attempts {
		if _, err := client.postJSON(ctx, "/users/"+url.PathEscape(user.ID)+"/attempts", a, nil); err != nil {
			res.Err = err
			return res
		}
		res.Attempts++
	}

	var pred struct {
		PredictedRank int     `json:"predicted_rank"`
		Confidence    float64 `json:"confidence"`
	}
	body := map[string]any{"attempt": s.Latest(), "history": s.History(), "user_id": user.ID}
	if _, err := client.postJSON(ctx, "/predict/rank", body, &pred); err != nil {
		res.Err = err
		return res
	}
	res.Rank, res.Confidence = pred.PredictedRank, pred.Confidence

	var colleges struct {
		EligibleColleges []string `json:"eligible_colleges"`
	}
	if _, err := client.postJSON(ctx, "/predict/college?predicted_rank="+strconv.Itoa(pred.PredictedRank), nil, &colleges); err != nil {
		res.Err = err
		return res
	}
	res.Colleges = colleges.EligibleColleges

	status, _, err := client.get(ctx, "/report/"+url.PathEscape(user.ID))
	switch {
	case err != nil:
		res.Err = err
	case status != http.StatusOK:
		res.Err = fmt.Errorf("GET /report: status %d", status)
	default:
		res.Report = true
	}
	return res
}

// displayFinalStats logs the final run statistics.
func displayFinalStats(ctx context.Context, stats *Stats) {
	var perSecond float64
	if stats.Duration > 0 {
		perSecond = float64(stats.PredictionsMade) / stats.Duration.Seconds()
	}
	logger.Get().Info(ctx, "final statistics",
		logger.Int("studentsCreated", stats.StudentsCreated),
		logger.Int("attemptsSubmitted", stats.AttemptsSubmitted),
		logger.Int("predictionsMade", stats.PredictionsMade),
		logger.Int("reportsFetched", stats.ReportsFetched),
		logger.Int("failed", stats.Failed),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("predictionsPerSecond", perSecond),
	)
}
