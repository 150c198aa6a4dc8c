// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// QuizResponse is one answered question. Fields mirror the submission schema.
type QuizResponse struct {
	QuestionID       int    `json:"question_id"`
	SelectedOptionID int    `json:"selected_option_id"`
	CorrectOptionID  int    `json:"correct_option_id"`
	Topic            string `json:"topic"`
	Subtopic         string `json:"subtopic,omitempty"`
	Difficulty       string `json:"difficulty"`
	TimeTaken        int    `json:"time_taken"` // seconds
}

// Correct reports whether the selected option matches the correct one.
func (r QuizResponse) Correct() bool {
	return r.SelectedOptionID == r.CorrectOptionID
}

// QuizAttempt is one completed quiz.
type QuizAttempt struct {
	TotalScore float64        `json:"total_score"`
	TotalTime  int            `json:"total_time"` // seconds
	QuizDate   time.Time      `json:"quiz_date,omitempty"`
	Responses  []QuizResponse `json:"responses"`
}

// Validate checks the attempt for malformed records.
func (a QuizAttempt) Validate() error {
	if len(a.Responses) == 0 {
		return fmt.Errorf("attempt has no responses: %w", ErrInvalidInput)
	}
	if math.IsNaN(a.TotalScore) || math.IsInf(a.TotalScore, 0) || a.TotalScore < 0 {
		return fmt.Errorf("total_score must be a finite non-negative number: %w", ErrInvalidInput)
	}
	if a.TotalTime < 0 {
		return fmt.Errorf("total_time must not be negative: %w", ErrInvalidInput)
	}
	for i, r := range a.Responses {
		if strings.TrimSpace(r.Topic) == "" {
			return fmt.Errorf("response %d: missing topic: %w", i, ErrInvalidInput)
		}
		if r.TimeTaken < 0 {
			return fmt.Errorf("response %d: time_taken must not be negative: %w", i, ErrInvalidInput)
		}
	}
	return nil
}

// Summary reduces the attempt to the record kept in a user's history.
func (a QuizAttempt) Summary() HistoricalRecord {
	return HistoricalRecord{TotalScore: a.TotalScore, TotalTime: a.TotalTime}
}

// HistoricalRecord summarizes a prior attempt. Responses are not retained.
type HistoricalRecord struct {
	TotalScore float64 `json:"total_score"`
	TotalTime  int     `json:"total_time"`
}

// ValidateHistory checks every record of a history window.
func ValidateHistory(history []HistoricalRecord) error {
	for i, h := range history {
		if math.IsNaN(h.TotalScore) || math.IsInf(h.TotalScore, 0) {
			return fmt.Errorf("history %d: total_score must be finite: %w", i, ErrInvalidInput)
		}
		if h.TotalTime < 0 {
			return fmt.Errorf("history %d: total_time must not be negative: %w", i, ErrInvalidInput)
		}
	}
	return nil
}

// Window returns the last n records of history. n <= 0 keeps everything.
func Window(history []HistoricalRecord, n int) []HistoricalRecord {
	if n <= 0 || len(history) <= n {
		return history
	}
	return history[len(history)-n:]
}

// Scores extracts total scores in order.
func Scores(history []HistoricalRecord) []float64 {
	out := make([]float64, len(history))
	for i, h := range history {
		out[i] = h.TotalScore
	}
	return out
}

// Times extracts total times in order.
func Times(history []HistoricalRecord) []float64 {
	out := make([]float64, len(history))
	for i, h := range history {
		out[i] = float64(h.TotalTime)
	}
	return out
}
