package rankmodel

import (
	"fmt"
	"sort"
)

// stump is a depth-one regression tree. Leaf values already include the
// learning rate.
type stump struct {
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold"`
	Left      float64 `json:"left"`
	Right     float64 `json:"right"`
}

// boost is a gradient-boosted ensemble of stumps under squared loss.
type boost struct {
	Base   float64   `json:"base"`
	Stumps []stump   `json:"stumps"`
	Gain   []float64 `json:"gain"`
}

func (m *boost) checkShape(width int) error {
	if len(m.Gain) != width {
		return fmt.Errorf("%d gains for %d features", len(m.Gain), width)
	}
	for i, st := range m.Stumps {
		if st.Feature < 0 || st.Feature >= width {
			return fmt.Errorf("stump %d splits on column %d of %d", i, st.Feature, width)
		}
	}
	return nil
}

func fitBoost(rows [][]float64, y []float64, rounds int, lr float64) *boost {
	n, p := len(rows), len(rows[0])
	if rounds <= 0 {
		rounds = 100
	}
	if lr <= 0 || lr > 1 {
		lr = 0.1
	}

	m := &boost{Gain: make([]float64, p)}
	for _, v := range y {
		m.Base += v / float64(n)
	}
	pred := make([]float64, n)
	for i := range pred {
		pred[i] = m.Base
	}

	order := make([][]int, p)
	for j := 0; j < p; j++ {
		idx := make([]int, n)
		for i := range idx {
			idx[i] = i
		}
		sort.SliceStable(idx, func(a, b int) bool { return rows[idx[a]][j] < rows[idx[b]][j] })
		order[j] = idx
	}

	resid := make([]float64, n)
	for r := 0; r < rounds; r++ {
		var total float64
		for i := range resid {
			resid[i] = y[i] - pred[i]
			total += resid[i]
		}
		best, gain, ok := bestSplit(rows, resid, order, total)
		if !ok {
			break
		}
		best.Left *= lr
		best.Right *= lr
		m.Stumps = append(m.Stumps, best)
		m.Gain[best.Feature] += gain
		for i, row := range rows {
			pred[i] += best.apply(row)
		}
	}
	return m
}

// bestSplit finds the stump with the largest squared-error reduction.
func bestSplit(rows [][]float64, resid []float64, order [][]int, total float64) (stump, float64, bool) {
	n := len(resid)
	var best stump
	bestGain := 0.0
	found := false
	base := total * total / float64(n)
	for j, idx := range order {
		var left float64
		for k := 0; k < n-1; k++ {
			left += resid[idx[k]]
			lo, hi := rows[idx[k]][j], rows[idx[k+1]][j]
			if lo == hi {
				continue
			}
			nl, nr := float64(k+1), float64(n-k-1)
			right := total - left
			gain := left*left/nl + right*right/nr - base
			if gain > bestGain {
				bestGain = gain
				found = true
				best = stump{Feature: j, Threshold: (lo + hi) / 2, Left: left / nl, Right: right / nr}
			}
		}
	}
	return best, bestGain, found
}

func (s stump) apply(row []float64) float64 {
	if row[s.Feature] <= s.Threshold {
		return s.Left
	}
	return s.Right
}

func (m *boost) Family() string { return FamilyBoost }

func (m *boost) Predict(row []float64) float64 {
	out := m.Base
	for _, s := range m.Stumps {
		out += s.apply(row)
	}
	return out
}

func (m *boost) Importance() []float64 {
	out := make([]float64, len(m.Gain))
	copy(out, m.Gain)
	return out
}
