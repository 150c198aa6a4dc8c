// Package features derives the named feature vector used for rank prediction
// from a quiz attempt and its history window.
package features

import (
	"fmt"
	"math"

	"github.com/okian/rankpredictor/internal/domain/model"
	"github.com/okian/rankpredictor/internal/domain/trend"
	"gonum.org/v1/gonum/stat"
)

// TopicStats aggregates the responses of one topic.
type TopicStats struct {
	Topic   string
	Correct int
	Total   int
	Times   []float64
}

// Accuracy returns correct/total.
func (s TopicStats) Accuracy() (float64, error) {
	if s.Total == 0 {
		return 0, fmt.Errorf("topic %q has no responses: %w", s.Topic, model.ErrDivisionByZero)
	}
	return float64(s.Correct) / float64(s.Total), nil
}

// GroupBy groups responses by key in first-seen order.
func GroupBy(responses []model.QuizResponse, key func(model.QuizResponse) string) []TopicStats {
	index := make(map[string]int)
	var out []TopicStats
	for _, r := range responses {
		k := key(r)
		i, ok := index[k]
		if !ok {
			i = len(out)
			index[k] = i
			out = append(out, TopicStats{Topic: k})
		}
		out[i].Total++
		if r.Correct() {
			out[i].Correct++
		}
		out[i].Times = append(out[i].Times, float64(r.TimeTaken))
	}
	return out
}

// ByTopic groups responses by topic label.
func ByTopic(responses []model.QuizResponse) []TopicStats {
	return GroupBy(responses, func(r model.QuizResponse) string { return r.Topic })
}

// ByDifficulty groups responses by difficulty label.
func ByDifficulty(responses []model.QuizResponse) []TopicStats {
	return GroupBy(responses, func(r model.QuizResponse) string { return r.Difficulty })
}

// Topic computes the accuracy, avg_time and time_std triple for every topic.
func Topic(responses []model.QuizResponse) (model.FeatureVector, error) {
	fv := make(model.FeatureVector)
	for _, s := range ByTopic(responses) {
		acc, err := s.Accuracy()
		if err != nil {
			return nil, err
		}
		fv[s.Topic+model.SuffixAccuracy] = acc
		fv[s.Topic+model.SuffixAvgTime] = stat.Mean(s.Times, nil)
		fv[s.Topic+model.SuffixTimeStd] = popStd(s.Times)
	}
	return fv, nil
}

// Temporal computes the history features. One record yields zero trend and
// zero deviation; an empty history is an error.
func Temporal(history []model.HistoricalRecord) (model.FeatureVector, error) {
	if len(history) == 0 {
		return nil, fmt.Errorf("temporal features need at least one record: %w", model.ErrInsufficientHistory)
	}
	scores := model.Scores(history)
	times := model.Times(history)

	eff, err := timeEfficiency(history)
	if err != nil {
		return nil, err
	}
	return model.FeatureVector{
		model.FeatureAvgScore:       stat.Mean(scores, nil),
		model.FeatureScoreTrend:     slopeOrZero(scores),
		model.FeatureScoreStd:       popStd(scores),
		model.FeatureAvgTime:        stat.Mean(times, nil),
		model.FeatureTimeTrend:      slopeOrZero(times),
		model.FeatureTimeEfficiency: eff,
	}, nil
}

// Extract builds the full feature vector for an attempt and its history.
func Extract(attempt model.QuizAttempt, history []model.HistoricalRecord) (model.FeatureVector, error) {
	if err := attempt.Validate(); err != nil {
		return nil, err
	}
	if err := model.ValidateHistory(history); err != nil {
		return nil, err
	}
	fv, err := Topic(attempt.Responses)
	if err != nil {
		return nil, err
	}
	temporal, err := Temporal(history)
	if err != nil {
		return nil, err
	}
	for k, v := range temporal {
		fv[k] = v
	}

	avg := fv[model.FeatureAvgScore]
	fv[model.FeatureConsistency] = 1
	fv[model.FeatureImprovementRate] = 0
	if avg != 0 {
		fv[model.FeatureConsistency] = clamp(1-fv[model.FeatureScoreStd]/avg, 0, 1)
		fv[model.FeatureImprovementRate] = fv[model.FeatureScoreTrend] / avg
	}
	return fv, nil
}

// timeEfficiency is mean(score/time), skipping records with zero time.
func timeEfficiency(history []model.HistoricalRecord) (float64, error) {
	var sum float64
	var n int
	for _, h := range history {
		if h.TotalTime == 0 {
			continue
		}
		sum += h.TotalScore / float64(h.TotalTime)
		n++
	}
	if n == 0 {
		return 0, fmt.Errorf("every history record has zero total_time: %w", model.ErrDivisionByZero)
	}
	return sum / float64(n), nil
}

func slopeOrZero(seq []float64) float64 {
	s, err := trend.Slope(seq)
	if err != nil {
		return 0
	}
	return s
}

func popStd(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	return math.Sqrt(stat.PopVariance(xs, nil))
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
