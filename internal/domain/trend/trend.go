// Package trend fits least-squares lines over numeric sequences.
package trend

import (
	"fmt"
	"math"

	"github.com/okian/rankpredictor/internal/domain/model"
	"gonum.org/v1/gonum/stat"
)

// Direction labels.
const (
	Improving = "improving"
	Declining = "declining"
)

const minPoints = 2

// Trend is the classified slope of a sequence.
type Trend struct {
	Direction string  `json:"trend"`
	Rate      float64 `json:"rate"`
}

// Slope returns the least-squares slope of seq against its index 0..n-1.
func Slope(seq []float64) (float64, error) {
	if len(seq) < minPoints {
		return 0, fmt.Errorf("slope needs %d points, got %d: %w", minPoints, len(seq), model.ErrInsufficientData)
	}
	xs := make([]float64, len(seq))
	for i := range xs {
		xs[i] = float64(i)
	}
	_, beta := stat.LinearRegression(xs, seq, nil, false)
	return beta, nil
}

// Analyze classifies the slope of seq. A zero slope counts as declining.
func Analyze(seq []float64) (Trend, error) {
	slope, err := Slope(seq)
	if err != nil {
		return Trend{}, err
	}
	t := Trend{Direction: Declining, Rate: math.Abs(slope)}
	if slope > 0 {
		t.Direction = Improving
	}
	return t, nil
}
