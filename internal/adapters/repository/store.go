// Package repository persists users, quiz submissions, predictions, college
// cutoffs and prior-year exam results.
package repository

import (
	"context"
	"time"

	"github.com/okian/rankpredictor/internal/domain/college"
	"github.com/okian/rankpredictor/internal/domain/model"
	"github.com/okian/rankpredictor/internal/domain/rankmodel"
)

// User is a student profile.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Submission is a stored quiz attempt.
type Submission struct {
	ID      int64             `json:"id"`
	UserID  string            `json:"user_id"`
	Attempt model.QuizAttempt `json:"attempt"`
}

// PredictionRecord is a persisted rank prediction.
type PredictionRecord struct {
	ID            string              `json:"id"`
	UserID        string              `json:"user_id"`
	SubmissionID  int64               `json:"submission_id,omitempty"`
	PredictedRank int                 `json:"predicted_rank"`
	Confidence    float64             `json:"confidence"`
	ModelFamily   string              `json:"model_family"`
	FeaturesUsed  model.FeatureVector `json:"features_used"`
	CreatedAt     time.Time           `json:"created_at"`
}

// Store provides read/write access to the persisted pipeline inputs and outputs.
type Store interface {
	// CreateUser inserts u, assigning an id when empty.
	CreateUser(ctx context.Context, u User) (User, error)
	// User returns ErrNotFound for an unknown id.
	User(ctx context.Context, id string) (User, error)
	// Users lists all users ordered by creation.
	Users(ctx context.Context) ([]User, error)

	// SaveAttempt stores a validated attempt for an existing user.
	SaveAttempt(ctx context.Context, userID string, a model.QuizAttempt) (int64, error)
	// LatestAttempt returns the most recent submission of a user.
	LatestAttempt(ctx context.Context, userID string) (Submission, error)
	// History returns up to limit submissions preceding before, oldest first.
	History(ctx context.Context, userID string, before int64, limit int) ([]model.HistoricalRecord, error)

	// SavePrediction stores p, assigning an id and timestamp.
	SavePrediction(ctx context.Context, p PredictionRecord) (PredictionRecord, error)
	// Predictions lists the predictions of a user, newest first.
	Predictions(ctx context.Context, userID string) ([]PredictionRecord, error)

	// UpsertCutoff inserts or replaces one cutoff row.
	UpsertCutoff(ctx context.Context, c college.Cutoff) error
	// CutoffTable returns every stored cutoff.
	CutoffTable(ctx context.Context) (*college.Table, error)

	// SaveExamResults appends prior-year results.
	SaveExamResults(ctx context.Context, results []rankmodel.ExamResult) error
	// PriorYearResults returns the results of year, or of the latest year when year is 0.
	PriorYearResults(ctx context.Context, year int) ([]rankmodel.ExamResult, error)

	Close() error
}
