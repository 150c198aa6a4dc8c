// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/okian/rankpredictor/internal/adapters/repository"
	service "github.com/okian/rankpredictor/internal/app"
	"github.com/okian/rankpredictor/internal/domain/college"
	"github.com/okian/rankpredictor/internal/domain/model"
	"github.com/okian/rankpredictor/internal/domain/rankmodel"
	"github.com/okian/rankpredictor/pkg/logger"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// Pipeline is the facade the handlers call into.
type Pipeline interface {
	Analyze(ctx context.Context, attempt model.QuizAttempt, history []model.HistoricalRecord) (*service.Analysis, error)
	PredictRank(ctx context.Context, attempt model.QuizAttempt, history []model.HistoricalRecord) (model.RankPrediction, error)
	PredictColleges(ctx context.Context, rank int, q college.Query) ([]string, error)
	RecordPrediction(ctx context.Context, userID string, submissionID int64, pred model.RankPrediction) (repository.PredictionRecord, error)
	ModelInfo() (rankmodel.Info, error)
	Store() repository.Store
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler  *HealthHandler
	analyzeHandler *AnalyzeHandler
	predictHandler *PredictHandler
	usersHandler   *UsersHandler
	modelHandler   *ModelHandler
	logger         logger.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger used for request logging.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(p Pipeline, opts ...Option) *Server {
	s := &Server{
		healthHandler:  NewHealthHandler(),
		analyzeHandler: NewAnalyzeHandler(p),
		predictHandler: NewPredictHandler(p),
		usersHandler:   NewUsersHandler(p),
		modelHandler:   NewModelHandler(p),
		logger:         logger.Get().Named("api"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	wrap := func(h http.HandlerFunc, endpoint string) http.Handler {
		return RequestID(s.logger, MetricsMiddleware(Recover(s.logger, h), endpoint))
	}

	mux.Handle("GET /healthz", wrap(s.healthHandler.HandleHealth, "healthz"))
	mux.Handle("GET /model", wrap(s.modelHandler.HandleModelInfo, "model"))
	mux.Handle("POST /analyze/performance", wrap(s.analyzeHandler.HandleAnalyze, "analyze"))
	mux.Handle("POST /predict/rank", wrap(s.predictHandler.HandlePredictRank, "predict_rank"))
	mux.Handle("POST /predict/college", wrap(s.predictHandler.HandlePredictCollege, "predict_college"))
	mux.Handle("POST /users", wrap(s.usersHandler.HandleCreateUser, "create_user"))
	mux.Handle("POST /users/{id}/attempts", wrap(s.usersHandler.HandleCreateAttempt, "create_attempt"))
}

// pipelineRequest is the body shared by the analysis and prediction routes.
type pipelineRequest struct {
	Attempt model.QuizAttempt        `json:"attempt"`
	History []model.HistoricalRecord `json:"history"`
	UserID  string                   `json:"user_id,omitempty"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func decodeJSON(w http.ResponseWriter, r *http.Request, op string, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return WrapKind(op, ErrBadRequest, fmt.Errorf("decode body: %w", err))
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeFailure maps err onto a status code and error code.
func writeFailure(w http.ResponseWriter, err error) {
	status, code := classify(err)
	writeError(w, status, code, err)
}

func classify(err error) (int, string) {
	if errors.Is(err, ErrBadRequest) {
		return http.StatusBadRequest, "bad_request"
	}
	if errors.Is(err, ErrStoreUnavailable) {
		return http.StatusServiceUnavailable, "store_unavailable"
	}
	switch service.ErrorKind(err) {
	case "invalid_input":
		return http.StatusBadRequest, "bad_request"
	case "insufficient_history":
		return http.StatusUnprocessableEntity, "insufficient_history"
	case "not_fitted":
		return http.StatusServiceUnavailable, "model_not_fitted"
	case "not_found":
		return http.StatusNotFound, "not_found"
	case "no_store":
		return http.StatusServiceUnavailable, "store_unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
