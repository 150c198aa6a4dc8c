package rankmodel

import (
	"encoding/json"
	"fmt"
)

// Estimator families.
const (
	FamilyRidge = "ridge"
	FamilyBoost = "boost"
	FamilyKNN   = "knn"
)

// Estimator is a fitted regressor over standardized rows.
type Estimator interface {
	Family() string
	Predict(row []float64) float64
	// Importance returns one weight per column, or nil when the family
	// does not expose feature importance.
	Importance() []float64
}

// Candidate is one point of the model-selection grid.
type Candidate struct {
	Family string
	Params map[string]float64
}

func (c Candidate) String() string {
	return fmt.Sprintf("%s%v", c.Family, c.Params)
}

// fit trains the candidate on standardized rows.
func (c Candidate) fit(rows [][]float64, y []float64) (Estimator, error) {
	switch c.Family {
	case FamilyRidge:
		return fitRidge(rows, y, c.Params["alpha"])
	case FamilyBoost:
		return fitBoost(rows, y, int(c.Params["rounds"]), c.Params["learning_rate"]), nil
	case FamilyKNN:
		return fitKNN(rows, y, int(c.Params["k"])), nil
	default:
		return nil, fmt.Errorf("%q: %w", c.Family, ErrUnknownFamily)
	}
}

// DefaultCandidates is the grid searched by Train.
func DefaultCandidates() []Candidate {
	var out []Candidate
	for _, alpha := range []float64{0.1, 1, 10} {
		out = append(out, Candidate{Family: FamilyRidge, Params: map[string]float64{"alpha": alpha}})
	}
	for _, rounds := range []float64{100, 200} {
		for _, lr := range []float64{0.05, 0.1} {
			out = append(out, Candidate{Family: FamilyBoost, Params: map[string]float64{"rounds": rounds, "learning_rate": lr}})
		}
	}
	for _, k := range []float64{3, 5, 10} {
		out = append(out, Candidate{Family: FamilyKNN, Params: map[string]float64{"k": k}})
	}
	return out
}

// shaped is implemented by every estimator so a decoded snapshot can be
// checked against the width of the rows it will be asked to predict.
type shaped interface {
	Estimator
	checkShape(width int) error
}

func decodeEstimator(family string, raw json.RawMessage, width int) (Estimator, error) {
	var est shaped
	switch family {
	case FamilyRidge:
		est = &ridge{}
	case FamilyBoost:
		est = &boost{}
	case FamilyKNN:
		est = &knn{}
	default:
		return nil, fmt.Errorf("%q: %w", family, ErrUnknownFamily)
	}
	if err := json.Unmarshal(raw, est); err != nil {
		return nil, fmt.Errorf("decode %s estimator: %w", family, err)
	}
	if err := est.checkShape(width); err != nil {
		return nil, fmt.Errorf("%s estimator: %w: %w", family, err, ErrCorruptSnapshot)
	}
	return est, nil
}
