package service

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/rankpredictor/internal/domain/college"
	"github.com/okian/rankpredictor/internal/domain/features"
	"github.com/okian/rankpredictor/internal/domain/model"
	"github.com/okian/rankpredictor/internal/domain/rankmodel"
	"github.com/okian/rankpredictor/internal/domain/trend"
	"github.com/okian/rankpredictor/pkg/logger"
	"github.com/okian/rankpredictor/pkg/metrics"
	"gonum.org/v1/gonum/stat"
)

// TrendSummary is the history trend with the scores it was computed on.
type TrendSummary struct {
	trend.Trend
	RecentScores []float64 `json:"recent_scores"`
}

// Analysis is the human-readable performance breakdown of an attempt.
type Analysis struct {
	TopicPerformance      map[string]float64 `json:"topic_performance"`
	DifficultyPerformance map[string]float64 `json:"difficulty_performance"`
	Trend                 TrendSummary       `json:"trend"`
	WeakAreas             []string           `json:"weak_areas"`
	AverageScore          float64            `json:"average_score"`
}

// Prediction is a rank prediction together with the colleges it qualifies for.
type Prediction struct {
	model.RankPrediction
	EligibleColleges []string `json:"eligible_colleges"`
}

// Analyze breaks the attempt down by topic and difficulty and reads the trend
// of the history window. The window needs at least two records.
func (s *Service) Analyze(ctx context.Context, attempt model.QuizAttempt, history []model.HistoricalRecord) (_ *Analysis, err error) {
	defer s.observeError(ctx, "analyze", &err)

	if err = attempt.Validate(); err != nil {
		return nil, err
	}
	if err = model.ValidateHistory(history); err != nil {
		return nil, err
	}
	window := model.Window(history, s.historyWindow)
	if len(window) < 2 {
		return nil, fmt.Errorf("trend needs at least 2 records, got %d: %w", len(window), model.ErrInsufficientHistory)
	}

	scores := model.Scores(window)
	tr, err := trend.Analyze(scores)
	if err != nil {
		return nil, err
	}

	a := &Analysis{
		TopicPerformance:      make(map[string]float64),
		DifficultyPerformance: make(map[string]float64),
		Trend:                 TrendSummary{Trend: tr, RecentScores: scores},
		WeakAreas:             []string{},
		AverageScore:          stat.Mean(scores, nil),
	}
	for _, ts := range features.ByTopic(attempt.Responses) {
		acc, err := ts.Accuracy()
		if err != nil {
			return nil, err
		}
		pct := acc * 100
		a.TopicPerformance[ts.Topic] = pct
		if pct < s.weakThreshold {
			a.WeakAreas = append(a.WeakAreas, ts.Topic)
		}
	}
	for _, ds := range features.ByDifficulty(attempt.Responses) {
		if ds.Topic == "" {
			continue
		}
		acc, err := ds.Accuracy()
		if err != nil {
			return nil, err
		}
		a.DifficultyPerformance[ds.Topic] = acc * 100
	}

	metrics.RecordAnalysis()
	return a, nil
}

// Features extracts the feature vector for the attempt and its history window.
func (s *Service) Features(attempt model.QuizAttempt, history []model.HistoricalRecord) (model.FeatureVector, error) {
	return features.Extract(attempt, model.Window(history, s.historyWindow))
}

// PredictRank estimates the exam rank from the attempt and its history window.
func (s *Service) PredictRank(ctx context.Context, attempt model.QuizAttempt, history []model.HistoricalRecord) (_ model.RankPrediction, err error) {
	defer s.observeError(ctx, "predict_rank", &err)

	start := time.Now()
	fv, err := s.Features(attempt, history)
	if err != nil {
		return model.RankPrediction{}, err
	}
	pred, err := s.model.Predict(fv)
	if err != nil {
		return model.RankPrediction{}, err
	}

	metrics.RecordPrediction(pred.ModelFamily, pred.PredictedRank, pred.Confidence,
		float64(time.Since(start).Microseconds())/1000)
	s.logger.Debug(ctx, "rank predicted",
		logger.Int("rank", pred.PredictedRank),
		logger.Float64("confidence", pred.Confidence),
		logger.String("family", pred.ModelFamily),
	)
	return pred, nil
}

// PredictColleges lists the colleges rank qualifies for. An empty query
// category uses the configured default.
func (s *Service) PredictColleges(ctx context.Context, rank int, q college.Query) (_ []string, err error) {
	defer s.observeError(ctx, "predict_colleges", &err)

	if rank < 1 {
		return nil, fmt.Errorf("predicted_rank must be at least 1, got %d: %w", rank, model.ErrInvalidInput)
	}
	if q.Category == "" {
		q.Category = s.defaultCategory
	}
	if q.Year < 0 {
		return nil, fmt.Errorf("year must not be negative: %w", model.ErrInvalidInput)
	}

	eligible := college.Eligible(rank, s.cutoffs, q)
	metrics.RecordCollegeLookup(len(eligible))
	return eligible, nil
}

// Predict runs the full pipeline: features, rank, then colleges.
func (s *Service) Predict(ctx context.Context, attempt model.QuizAttempt, history []model.HistoricalRecord, q college.Query) (*Prediction, error) {
	pred, err := s.PredictRank(ctx, attempt, history)
	if err != nil {
		return nil, err
	}
	eligible, err := s.PredictColleges(ctx, pred.PredictedRank, q)
	if err != nil {
		return nil, err
	}
	return &Prediction{RankPrediction: pred, EligibleColleges: eligible}, nil
}

// Retrain fits a new model on ds and swaps it in. Requests in flight keep the
// model they loaded.
func (s *Service) Retrain(ctx context.Context, ds *rankmodel.Dataset, opts ...rankmodel.TrainOption) (rankmodel.Info, []rankmodel.CandidateScore, error) {
	start := time.Now()
	m, scores, err := rankmodel.Train(ctx, ds, opts...)
	if err != nil {
		metrics.RecordTraining("error", time.Since(start))
		s.logger.Error(ctx, "training failed", logger.Error(err))
		return rankmodel.Info{}, scores, err
	}
	metrics.RecordTraining("ok", time.Since(start))
	s.Install(ctx, m)
	return m.Info(), scores, nil
}

// Install swaps m in as the serving model.
func (s *Service) Install(ctx context.Context, m *rankmodel.Model) {
	s.model.Swap(m)
	info := m.Info()
	metrics.UpdateServingModel(info.HoldoutMAE, len(info.Features), info.Rows, info.TrainedAt)
	s.logger.Info(ctx, "model installed",
		logger.String("family", info.Family),
		logger.Any("params", info.Params),
		logger.Float64("holdout_mae", info.HoldoutMAE),
		logger.Int("rows", info.Rows),
	)
}

// ModelInfo describes the serving model.
func (s *Service) ModelInfo() (rankmodel.Info, error) {
	m := s.model.Load()
	if m == nil {
		return rankmodel.Info{}, model.ErrNotFitted
	}
	return m.Info(), nil
}

func (s *Service) observeError(ctx context.Context, op string, err *error) {
	if *err == nil {
		return
	}
	kind := ErrorKind(*err)
	metrics.RecordPredictionError(kind)
	s.logger.Debug(ctx, "pipeline call failed",
		logger.String("op", op),
		logger.String("kind", kind),
		logger.Error(*err),
	)
}
