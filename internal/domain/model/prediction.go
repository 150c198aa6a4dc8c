package model

import (
	"sort"
	"strings"
)

// Feature name suffixes and fixed keys produced by feature extraction.
const (
	SuffixAccuracy = "_accuracy"
	SuffixAvgTime  = "_avg_time"
	SuffixTimeStd  = "_time_std"

	FeatureAvgScore        = "avg_score"
	FeatureScoreTrend      = "score_trend"
	FeatureScoreStd        = "score_std"
	FeatureAvgTime         = "avg_time"
	FeatureTimeTrend       = "time_trend"
	FeatureTimeEfficiency  = "time_efficiency"
	FeatureConsistency     = "consistency"
	FeatureImprovementRate = "improvement_rate"
)

// FeatureVector maps feature names to values.
type FeatureVector map[string]float64

// Names returns the feature names in lexical order.
func (f FeatureVector) Names() []string {
	names := make([]string, 0, len(f))
	for k := range f {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// AccuracyTopic returns the topic of an accuracy feature name.
func AccuracyTopic(name string) (string, bool) {
	if !strings.HasSuffix(name, SuffixAccuracy) {
		return "", false
	}
	return strings.TrimSuffix(name, SuffixAccuracy), true
}

// ImprovementArea is a topic whose accuracy weighs heavily on the predicted rank.
type ImprovementArea struct {
	Topic        string  `json:"topic"`
	Importance   float64 `json:"importance"`
	CurrentValue float64 `json:"current_value"`
}

// RankPrediction is the outcome of one prediction call.
type RankPrediction struct {
	PredictedRank     int                `json:"predicted_rank"`
	Confidence        float64            `json:"confidence"`
	FeatureImportance map[string]float64 `json:"feature_importance,omitempty"`
	ImprovementAreas  []ImprovementArea  `json:"improvement_areas"`
	Features          FeatureVector      `json:"-"`
	ModelFamily       string             `json:"model_family,omitempty"`
}
