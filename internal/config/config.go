// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() initializer to build a Config with defaults.
// - Load layers a YAML file and environment variables over the defaults.
// - External errors are wrapped with this package's sentinel kinds.
package config

import (
	"runtime"
)

// Defaults shared with the CLI.
const (
	DefaultHistoryWindow    = 5
	DefaultWeakThreshold    = 60.0
	DefaultBootstrapSamples = 400
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects text or json log lines.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// DBPath is the SQLite database file. Empty disables persistence.
	DBPath string `koanf:"db_path"`

	// ModelPath is the trained model snapshot. When the file is missing the
	// server trains a bootstrap model on synthetic data.
	ModelPath string `koanf:"model_path"`

	// CutoffsFile optionally replaces the built-in college cutoff table.
	CutoffsFile string `koanf:"cutoffs_file"`

	// HistoryWindow bounds how many recent attempts feed the features.
	HistoryWindow int `koanf:"history_window"`

	// WeakThreshold is the topic accuracy percentage below which a topic is weak.
	WeakThreshold float64 `koanf:"weak_threshold"`

	// DefaultCategory is used when a college query names none.
	DefaultCategory string `koanf:"default_category"`

	// BootstrapSamples sizes the synthetic training set.
	BootstrapSamples int `koanf:"bootstrap_samples"`

	// WorkerCount sets the number of batch report workers.
	WorkerCount int `koanf:"worker_count"`

	// QueueSize bounds the batch report queue.
	QueueSize int `koanf:"queue_size"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:         "info",
		LogFormat:        "text",
		Addr:             ":9080",
		DBPath:           "rankpredictor.db",
		ModelPath:        "model.json",
		HistoryWindow:    DefaultHistoryWindow,
		WeakThreshold:    DefaultWeakThreshold,
		DefaultCategory:  "general",
		BootstrapSamples: DefaultBootstrapSamples,
		WorkerCount:      runtime.NumCPU(),
		QueueSize:        1024,
	}
}
