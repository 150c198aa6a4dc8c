package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/okian/rankpredictor/internal/domain/college"
	"github.com/okian/rankpredictor/internal/domain/model"
)

// PredictHandler handles rank and college prediction requests.
type PredictHandler struct {
	pipeline Pipeline
}

// NewPredictHandler creates a new predict handler.
func NewPredictHandler(p Pipeline) *PredictHandler {
	return &PredictHandler{pipeline: p}
}

type rankResponse struct {
	model.RankPrediction
	PredictionID string `json:"prediction_id,omitempty"`
}

type collegeResponse struct {
	EligibleColleges []string `json:"eligible_colleges"`
}

// HandlePredictRank handles POST /predict/rank requests. A user_id in the
// body persists the prediction for that user.
func (h *PredictHandler) HandlePredictRank(w http.ResponseWriter, r *http.Request) {
	const op = "api.predict_rank"
	var req pipelineRequest
	if err := decodeJSON(w, r, op, &req); err != nil {
		writeFailure(w, err)
		return
	}

	if req.UserID != "" {
		st := h.pipeline.Store()
		if st == nil {
			writeFailure(w, NewKind(op, ErrStoreUnavailable))
			return
		}
		if _, err := st.User(r.Context(), req.UserID); err != nil {
			writeFailure(w, Wrap(op, err))
			return
		}
	}

	pred, err := h.pipeline.PredictRank(r.Context(), req.Attempt, req.History)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	resp := rankResponse{RankPrediction: pred}
	if req.UserID != "" {
		rec, err := h.pipeline.RecordPrediction(r.Context(), req.UserID, 0, pred)
		if err != nil {
			writeFailure(w, Wrap(op, err))
			return
		}
		resp.PredictionID = rec.ID
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandlePredictCollege handles POST /predict/college?predicted_rank=&category=&year= requests.
func (h *PredictHandler) HandlePredictCollege(w http.ResponseWriter, r *http.Request) {
	const op = "api.predict_college"
	params := r.URL.Query()

	rank, err := strconv.Atoi(params.Get("predicted_rank"))
	if err != nil {
		writeFailure(w, WrapKind(op, ErrBadRequest, fmt.Errorf("predicted_rank must be an integer: %w", err)))
		return
	}
	var q college.Query
	if raw := params.Get("category"); raw != "" {
		if q.Category, err = college.ParseCategory(raw); err != nil {
			writeFailure(w, Wrap(op, err))
			return
		}
	}
	if raw := params.Get("year"); raw != "" {
		if q.Year, err = strconv.Atoi(raw); err != nil {
			writeFailure(w, WrapKind(op, ErrBadRequest, fmt.Errorf("year must be an integer: %w", err)))
			return
		}
	}

	eligible, err := h.pipeline.PredictColleges(r.Context(), rank, q)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, collegeResponse{EligibleColleges: eligible})
}
