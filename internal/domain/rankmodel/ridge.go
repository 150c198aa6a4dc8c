package rankmodel

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// ridge is an L2-regularized linear model solved in closed form.
type ridge struct {
	Intercept float64   `json:"intercept"`
	Coef      []float64 `json:"coef"`
}

func (m *ridge) checkShape(width int) error {
	if len(m.Coef) != width {
		return fmt.Errorf("%d coefficients for %d features", len(m.Coef), width)
	}
	return nil
}

func fitRidge(rows [][]float64, y []float64, alpha float64) (*ridge, error) {
	n, p := len(rows), len(rows[0])
	if alpha <= 0 {
		alpha = 1
	}

	// Center columns and target so the intercept stays unpenalized.
	means := make([]float64, p)
	for _, r := range rows {
		for j, v := range r {
			means[j] += v / float64(n)
		}
	}
	var yMean float64
	for _, v := range y {
		yMean += v / float64(n)
	}

	x := mat.NewDense(n, p, nil)
	yc := mat.NewVecDense(n, nil)
	for i, r := range rows {
		for j, v := range r {
			x.Set(i, j, v-means[j])
		}
		yc.SetVec(i, y[i]-yMean)
	}

	var gram mat.Dense
	gram.Mul(x.T(), x)
	for j := 0; j < p; j++ {
		gram.Set(j, j, gram.At(j, j)+alpha)
	}
	var xty mat.VecDense
	xty.MulVec(x.T(), yc)

	var w mat.VecDense
	if err := w.SolveVec(&gram, &xty); err != nil {
		return nil, fmt.Errorf("solve ridge system: %w", err)
	}

	m := &ridge{Coef: make([]float64, p), Intercept: yMean}
	for j := 0; j < p; j++ {
		m.Coef[j] = w.AtVec(j)
		m.Intercept -= m.Coef[j] * means[j]
	}
	return m, nil
}

func (m *ridge) Family() string { return FamilyRidge }

func (m *ridge) Predict(row []float64) float64 {
	out := m.Intercept
	for j, c := range m.Coef {
		out += c * row[j]
	}
	return out
}

// Importance uses coefficient magnitudes; inputs are standardized, so they
// are comparable across columns.
func (m *ridge) Importance() []float64 {
	out := make([]float64, len(m.Coef))
	for j, c := range m.Coef {
		out[j] = math.Abs(c)
	}
	return out
}
