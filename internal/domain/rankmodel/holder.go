package rankmodel

import (
	"sync/atomic"

	"github.com/okian/rankpredictor/internal/domain/model"
)

// Holder publishes the current fitted model. Readers always see a complete
// model; writers replace it wholesale.
type Holder struct {
	current atomic.Pointer[Model]
}

// NewHolder returns a holder seeded with m, which may be nil.
func NewHolder(m *Model) *Holder {
	h := &Holder{}
	if m != nil {
		h.current.Store(m)
	}
	return h
}

// Load returns the current model, or nil before the first Swap.
func (h *Holder) Load() *Model {
	return h.current.Load()
}

// Swap installs m and returns the model it replaced.
func (h *Holder) Swap(m *Model) *Model {
	return h.current.Swap(m)
}

// Predict runs the current model.
func (h *Holder) Predict(fv model.FeatureVector) (model.RankPrediction, error) {
	m := h.Load()
	if m == nil {
		return model.RankPrediction{}, model.ErrNotFitted
	}
	return m.Predict(fv), nil
}
