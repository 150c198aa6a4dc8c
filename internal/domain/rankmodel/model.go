// Package rankmodel fits and queries the regression model that maps a feature
// vector to a predicted exam rank.
package rankmodel

import (
	"math"
	"sort"
	"time"

	"github.com/okian/rankpredictor/internal/domain/model"
)

// Prediction bounds.
const (
	MinConfidence       = 0.5
	MaxConfidence       = 0.95
	ImportanceThreshold = 0.05

	baseConfidence    = 0.9
	dispersionPenalty = 0.1
	maxRank           = math.MaxInt32
)

// Model is an immutable fitted estimator plus the scaler it was trained with.
type Model struct {
	features   []string
	scaler     Scaler
	est        Estimator
	importance map[string]float64
	params     map[string]float64
	holdoutMAE float64
	rows       int
	trainedAt  time.Time
}

// Info describes a fitted model.
type Info struct {
	Family     string             `json:"family"`
	Params     map[string]float64 `json:"params"`
	Features   []string           `json:"features"`
	HoldoutMAE float64            `json:"holdout_mae"`
	Rows       int                `json:"rows"`
	TrainedAt  time.Time          `json:"trained_at"`
}

func newModel(features []string, scaler Scaler, est Estimator, params map[string]float64, mae float64, rows int, at time.Time) *Model {
	m := &Model{
		features:   append([]string(nil), features...),
		scaler:     scaler,
		est:        est,
		params:     params,
		holdoutMAE: mae,
		rows:       rows,
		trainedAt:  at,
	}
	if imp := est.Importance(); imp != nil {
		m.importance = normalize(features, imp)
	}
	return m
}

// Info returns a description of the model.
func (m *Model) Info() Info {
	return Info{
		Family:     m.est.Family(),
		Params:     copyMap(m.params),
		Features:   append([]string(nil), m.features...),
		HoldoutMAE: m.holdoutMAE,
		Rows:       m.rows,
		TrainedAt:  m.trainedAt,
	}
}

// Importance returns the normalized importance per feature, or nil.
func (m *Model) Importance() map[string]float64 {
	return copyMap(m.importance)
}

// Predict estimates the rank for fv. Features the model was not trained on
// are ignored; trained features missing from fv take the training mean.
func (m *Model) Predict(fv model.FeatureVector) model.RankPrediction {
	row := make([]float64, len(m.features))
	for i, name := range m.features {
		v, ok := fv[name]
		if !ok {
			v = m.scaler.Mean[i]
		}
		row[i] = v
	}
	scaled := m.scaler.Transform(row)

	return model.RankPrediction{
		PredictedRank:     toRank(m.est.Predict(scaled)),
		Confidence:        confidence(scaled),
		FeatureImportance: m.Importance(),
		ImprovementAreas:  m.improvementAreas(fv),
		Features:          fv,
		ModelFamily:       m.est.Family(),
	}
}

func (m *Model) improvementAreas(fv model.FeatureVector) []model.ImprovementArea {
	areas := []model.ImprovementArea{}
	for name, imp := range m.importance {
		topic, ok := model.AccuracyTopic(name)
		if !ok || imp <= ImportanceThreshold {
			continue
		}
		v, ok := fv[name]
		if !ok {
			continue
		}
		areas = append(areas, model.ImprovementArea{Topic: topic, Importance: imp, CurrentValue: v})
	}
	sort.Slice(areas, func(i, j int) bool {
		if areas[i].Importance != areas[j].Importance {
			return areas[i].Importance > areas[j].Importance
		}
		return areas[i].Topic < areas[j].Topic
	})
	return areas
}

// toRank rounds a raw estimate to a 1-based rank.
func toRank(raw float64) int {
	if math.IsNaN(raw) {
		return 1
	}
	r := math.Round(raw)
	switch {
	case r < 1:
		return 1
	case r > maxRank:
		return maxRank
	}
	return int(r)
}

// confidence shrinks as the standardized input spreads out.
func confidence(scaled []float64) float64 {
	var mean float64
	for _, v := range scaled {
		mean += v / float64(len(scaled))
	}
	var ss float64
	for _, v := range scaled {
		ss += (v - mean) * (v - mean)
	}
	std := math.Sqrt(ss / float64(len(scaled)))
	c := baseConfidence - std*dispersionPenalty
	if math.IsNaN(c) {
		return MinConfidence
	}
	return math.Max(MinConfidence, math.Min(MaxConfidence, c))
}

func normalize(features []string, weights []float64) map[string]float64 {
	var total float64
	for _, w := range weights {
		total += w
	}
	out := make(map[string]float64, len(features))
	for j, name := range features {
		if total > 0 {
			out[name] = weights[j] / total
		} else {
			out[name] = 0
		}
	}
	return out
}

func copyMap(in map[string]float64) map[string]float64 {
	if in == nil {
		return nil
	}
	out := make(map[string]float64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
