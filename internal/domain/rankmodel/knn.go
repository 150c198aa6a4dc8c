package rankmodel

import (
	"fmt"
	"sort"
)

// knn averages the targets of the k closest training rows.
type knn struct {
	K       int         `json:"k"`
	Rows    [][]float64 `json:"rows"`
	Targets []float64   `json:"targets"`
}

func fitKNN(rows [][]float64, y []float64, k int) *knn {
	if k <= 0 {
		k = 5
	}
	if k > len(rows) {
		k = len(rows)
	}
	m := &knn{K: k, Rows: make([][]float64, len(rows)), Targets: make([]float64, len(y))}
	for i, r := range rows {
		m.Rows[i] = append([]float64(nil), r...)
	}
	copy(m.Targets, y)
	return m
}

func (m *knn) Family() string { return FamilyKNN }

func (m *knn) Predict(row []float64) float64 {
	type neighbour struct {
		dist   float64
		target float64
	}
	ns := make([]neighbour, len(m.Rows))
	for i, r := range m.Rows {
		var d float64
		for j, v := range r {
			diff := v - row[j]
			d += diff * diff
		}
		ns[i] = neighbour{dist: d, target: m.Targets[i]}
	}
	sort.SliceStable(ns, func(a, b int) bool { return ns[a].dist < ns[b].dist })
	var sum float64
	for _, n := range ns[:m.K] {
		sum += n.target
	}
	return sum / float64(m.K)
}

func (m *knn) checkShape(width int) error {
	if m.K < 1 || m.K > len(m.Rows) {
		return fmt.Errorf("k %d outside [1, %d]", m.K, len(m.Rows))
	}
	if len(m.Targets) != len(m.Rows) {
		return fmt.Errorf("%d targets for %d rows", len(m.Targets), len(m.Rows))
	}
	for i, r := range m.Rows {
		if len(r) != width {
			return fmt.Errorf("row %d has %d columns, want %d", i, len(r), width)
		}
	}
	return nil
}

// Importance is not defined for neighbour averaging.
func (m *knn) Importance() []float64 { return nil }
