package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/rankpredictor/internal/adapters/repository"
	"github.com/okian/rankpredictor/internal/domain/college"
	"github.com/okian/rankpredictor/internal/domain/model"
	"github.com/okian/rankpredictor/internal/domain/rankmodel"
	"github.com/okian/rankpredictor/pkg/logger"
	"github.com/okian/rankpredictor/pkg/metrics"
)

// Report is everything known about a user's latest attempt.
type Report struct {
	User         repository.User               `json:"user"`
	SubmissionID int64                         `json:"submission_id"`
	Attempt      model.QuizAttempt             `json:"attempt"`
	History      []model.HistoricalRecord      `json:"history"`
	Analysis     *Analysis                     `json:"analysis,omitempty"`
	Prediction   Prediction                    `json:"prediction"`
	BaselineRank int                           `json:"baseline_rank,omitempty"`
	PredictionID string                        `json:"prediction_id"`
	Past         []repository.PredictionRecord `json:"past_predictions,omitempty"`
	GeneratedAt  time.Time                     `json:"generated_at"`
}

// RecordPrediction persists pred for userID.
func (s *Service) RecordPrediction(ctx context.Context, userID string, submissionID int64, pred model.RankPrediction) (repository.PredictionRecord, error) {
	if s.store == nil {
		return repository.PredictionRecord{}, ErrNoStore
	}
	rec, err := s.store.SavePrediction(ctx, repository.PredictionRecord{
		UserID:        userID,
		SubmissionID:  submissionID,
		PredictedRank: pred.PredictedRank,
		Confidence:    pred.Confidence,
		ModelFamily:   pred.ModelFamily,
		FeaturesUsed:  pred.Features,
	})
	if err != nil {
		return repository.PredictionRecord{}, fmt.Errorf("record prediction: %w", err)
	}
	metrics.RecordPredictionPersisted()
	return rec, nil
}

// Report builds the report of userID from the store: the latest attempt is
// analyzed and predicted against the attempts before it, the prior-year
// score curve gives a baseline rank, and the prediction is persisted.
func (s *Service) Report(ctx context.Context, userID string) (_ *Report, err error) {
	defer s.observeError(ctx, "report", &err)

	if s.store == nil {
		return nil, ErrNoStore
	}
	user, err := s.store.User(ctx, userID)
	if err != nil {
		return nil, err
	}
	latest, err := s.store.LatestAttempt(ctx, userID)
	if err != nil {
		return nil, err
	}
	history, err := s.store.History(ctx, userID, latest.ID, s.historyWindow)
	if err != nil {
		return nil, err
	}

	r := &Report{
		User:         user,
		SubmissionID: latest.ID,
		Attempt:      latest.Attempt,
		History:      history,
		GeneratedAt:  s.now().UTC(),
	}

	// A single prior attempt still predicts; only the trend needs two.
	analysis, err := s.Analyze(ctx, latest.Attempt, history)
	switch {
	case err == nil:
		r.Analysis = analysis
	case !errors.Is(err, model.ErrInsufficientHistory):
		return nil, err
	}

	pred, err := s.Predict(ctx, latest.Attempt, history, college.Query{})
	if err != nil {
		return nil, err
	}
	r.Prediction = *pred

	if r.BaselineRank, err = s.baseline(ctx, latest.Attempt.TotalScore); err != nil {
		return nil, err
	}

	r.Past, err = s.store.Predictions(ctx, userID)
	if err != nil {
		return nil, err
	}
	rec, err := s.RecordPrediction(ctx, userID, latest.ID, pred.RankPrediction)
	if err != nil {
		return nil, err
	}
	r.PredictionID = rec.ID

	s.logger.Info(ctx, "report built",
		logger.String("user", userID),
		logger.Int("rank", pred.PredictedRank),
		logger.Int("baseline", r.BaselineRank),
	)
	return r, nil
}

// baseline maps score through the latest prior-year curve. Zero means no
// curve could be fitted.
func (s *Service) baseline(ctx context.Context, score float64) (int, error) {
	results, err := s.store.PriorYearResults(ctx, 0)
	if errors.Is(err, repository.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	curve, err := rankmodel.FitScoreRank(results)
	if err != nil {
		s.logger.Warn(ctx, "no baseline curve", logger.Int("results", len(results)), logger.Error(err))
		return 0, nil
	}
	return curve.Rank(score), nil
}
