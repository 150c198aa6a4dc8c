package rankmodel

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"
)

// snapshot is the on-disk form of a Model.
type snapshot struct {
	Family     string             `json:"family"`
	Params     map[string]float64 `json:"params"`
	Features   []string           `json:"features"`
	Scaler     Scaler             `json:"scaler"`
	HoldoutMAE float64            `json:"holdout_mae"`
	Rows       int                `json:"rows"`
	TrainedAt  time.Time          `json:"trained_at"`
	Estimator  json.RawMessage    `json:"estimator"`
}

// Save writes m as JSON.
func (m *Model) Save(w io.Writer) error {
	raw, err := json.Marshal(m.est)
	if err != nil {
		return fmt.Errorf("encode estimator: %w", err)
	}
	enc := json.NewEncoder(w)
	return enc.Encode(snapshot{
		Family:     m.est.Family(),
		Params:     m.params,
		Features:   m.features,
		Scaler:     m.scaler,
		HoldoutMAE: m.holdoutMAE,
		Rows:       m.rows,
		TrainedAt:  m.trainedAt,
		Estimator:  raw,
	})
}

// Load reads a model written by Save.
func Load(r io.Reader) (*Model, error) {
	var s snapshot
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if len(s.Features) == 0 || len(s.Scaler.Mean) != len(s.Features) || len(s.Scaler.Std) != len(s.Features) {
		return nil, fmt.Errorf("scaler does not match %d features: %w", len(s.Features), ErrCorruptSnapshot)
	}
	est, err := decodeEstimator(s.Family, s.Estimator, len(s.Features))
	if err != nil {
		return nil, err
	}
	return newModel(s.Features, s.Scaler, est, s.Params, s.HoldoutMAE, s.Rows, s.TrainedAt), nil
}

// SaveFile writes m to path, replacing any existing file.
func (m *Model) SaveFile(path string) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create %s: %w", tmp, err)
	}
	if err := m.Save(f); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp, err)
	}
	return os.Rename(tmp, path)
}

// LoadFile reads a model from path.
func LoadFile(path string) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()
	return Load(f)
}
