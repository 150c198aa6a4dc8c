package rankmodel

import (
	"fmt"

	"github.com/okian/rankpredictor/internal/domain/model"
	"gonum.org/v1/gonum/mat"
)

const curveDegree = 2

// ExamResult is one row of a prior year's published results.
type ExamResult struct {
	Year  int     `json:"year"`
	Rank  int     `json:"rank"`
	Score float64 `json:"score"`
}

// ScoreRankCurve maps an exam score to a rank through a quadratic fitted on
// prior-year results.
type ScoreRankCurve struct {
	Coeffs [curveDegree + 1]float64 `json:"coeffs"`
}

// FitScoreRank fits rank = c0 + c1*score + c2*score^2 by least squares.
func FitScoreRank(results []ExamResult) (ScoreRankCurve, error) {
	if len(results) <= curveDegree {
		return ScoreRankCurve{}, fmt.Errorf("need more than %d results, got %d: %w", curveDegree, len(results), model.ErrInsufficientData)
	}
	a := mat.NewDense(len(results), curveDegree+1, nil)
	b := mat.NewDense(len(results), 1, nil)
	for i, r := range results {
		p := 1.0
		for d := 0; d <= curveDegree; d++ {
			a.Set(i, d, p)
			p *= r.Score
		}
		b.Set(i, 0, float64(r.Rank))
	}
	var x mat.Dense
	if err := x.Solve(a, b); err != nil {
		return ScoreRankCurve{}, fmt.Errorf("fit score-rank curve: %w", err)
	}
	var c ScoreRankCurve
	for d := 0; d <= curveDegree; d++ {
		c.Coeffs[d] = x.At(d, 0)
	}
	return c, nil
}

// Rank evaluates the curve at score and returns a 1-based rank.
func (c ScoreRankCurve) Rank(score float64) int {
	var out, p float64 = 0, 1
	for _, k := range c.Coeffs {
		out += k * p
		p *= score
	}
	return toRank(out)
}
