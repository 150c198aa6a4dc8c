package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/okian/rankpredictor/internal/domain/college"
)

// Environment variables read by Load.
const (
	EnvConfigFile = "RANKPRED_CONFIG"
	EnvPrefix     = "RANKPRED_"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if RANKPRED_CONFIG is set
//  3. env (prefix RANKPRED_)
func Load() (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv(EnvConfigFile); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// RANKPRED_DB_PATH -> db_path; underscores are kept to match the koanf tags.
	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports the first invalid field.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.HistoryWindow < 1:
		return fmt.Errorf("%w: history_window must be at least 1, got %d", ErrInvalidConfig, c.HistoryWindow)
	case c.WeakThreshold < 0 || c.WeakThreshold > 100:
		return fmt.Errorf("%w: weak_threshold must be within [0, 100], got %v", ErrInvalidConfig, c.WeakThreshold)
	case c.BootstrapSamples < 0:
		return fmt.Errorf("%w: bootstrap_samples must not be negative", ErrInvalidConfig)
	}
	if _, err := college.ParseCategory(c.DefaultCategory); err != nil {
		return fmt.Errorf("%w: default_category: %w", ErrInvalidConfig, err)
	}
	return nil
}
