package api

import (
	"net/http"
)

// AnalyzeHandler handles performance analysis requests.
type AnalyzeHandler struct {
	pipeline Pipeline
}

// NewAnalyzeHandler creates a new analyze handler.
func NewAnalyzeHandler(p Pipeline) *AnalyzeHandler {
	return &AnalyzeHandler{pipeline: p}
}

// HandleAnalyze handles POST /analyze/performance requests.
func (h *AnalyzeHandler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	const op = "api.analyze"
	var req pipelineRequest
	if err := decodeJSON(w, r, op, &req); err != nil {
		writeFailure(w, err)
		return
	}
	analysis, err := h.pipeline.Analyze(r.Context(), req.Attempt, req.History)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, analysis)
}
