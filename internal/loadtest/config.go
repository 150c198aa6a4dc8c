// Package loadtest drives a running rank predictor server with synthetic
// students and verifies the responses.
package loadtest

import "time"

// Config holds configuration for a load test run.
type Config struct {
	BaseURL  string        // Base URL of the service
	Students int           // Number of synthetic students
	Workers  int           // Number of concurrent workers
	Timeout  time.Duration // HTTP request timeout
	Seed     uint64        // Generator seed
	Verbose  bool          // Log every student
}

// Stats holds run statistics.
type Stats struct {
	StudentsCreated   int
	AttemptsSubmitted int
	PredictionsMade   int
	ReportsFetched    int
	Failed            int
	StartTime         time.Time
	EndTime           time.Time
	Duration          time.Duration
}

// studentResult is what one student's round trip produced.
type studentResult struct {
	UserID     string
	Rank       int
	Confidence float64
	Colleges   []string
	Attempts   int
	Report     bool
	Err        error
}
