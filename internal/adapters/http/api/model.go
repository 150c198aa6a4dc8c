package api

import (
	"net/http"
)

// ModelHandler exposes the serving model.
type ModelHandler struct {
	pipeline Pipeline
}

// NewModelHandler creates a new model handler.
func NewModelHandler(p Pipeline) *ModelHandler {
	return &ModelHandler{pipeline: p}
}

// HandleModelInfo handles GET /model requests.
func (h *ModelHandler) HandleModelInfo(w http.ResponseWriter, _ *http.Request) {
	info, err := h.pipeline.ModelInfo()
	if err != nil {
		writeFailure(w, Wrap("api.model_info", err))
		return
	}
	writeJSON(w, http.StatusOK, info)
}
