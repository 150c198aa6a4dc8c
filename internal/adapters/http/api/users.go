package api

import (
	"net/http"
	"strings"

	"github.com/okian/rankpredictor/internal/adapters/repository"
	"github.com/okian/rankpredictor/internal/domain/model"
)

// UsersHandler handles user and attempt persistence requests.
type UsersHandler struct {
	pipeline Pipeline
}

// NewUsersHandler creates a new users handler.
func NewUsersHandler(p Pipeline) *UsersHandler {
	return &UsersHandler{pipeline: p}
}

type createUserRequest struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

type attemptResponse struct {
	SubmissionID int64  `json:"submission_id"`
	UserID       string `json:"user_id"`
}

// HandleCreateUser handles POST /users requests.
func (h *UsersHandler) HandleCreateUser(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_user"
	st := h.pipeline.Store()
	if st == nil {
		writeFailure(w, NewKind(op, ErrStoreUnavailable))
		return
	}
	var req createUserRequest
	if err := decodeJSON(w, r, op, &req); err != nil {
		writeFailure(w, err)
		return
	}
	u, err := st.CreateUser(r.Context(), repository.User{Name: req.Name, Email: strings.TrimSpace(req.Email)})
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

// HandleCreateAttempt handles POST /users/{id}/attempts requests.
func (h *UsersHandler) HandleCreateAttempt(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_attempt"
	st := h.pipeline.Store()
	if st == nil {
		writeFailure(w, NewKind(op, ErrStoreUnavailable))
		return
	}
	userID := r.PathValue("id")
	var attempt model.QuizAttempt
	if err := decodeJSON(w, r, op, &attempt); err != nil {
		writeFailure(w, err)
		return
	}
	id, err := st.SaveAttempt(r.Context(), userID, attempt)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusCreated, attemptResponse{SubmissionID: id, UserID: userID})
}
