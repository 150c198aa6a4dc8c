package service

import (
	"errors"

	"github.com/okian/rankpredictor/internal/adapters/repository"
	"github.com/okian/rankpredictor/internal/domain/model"
)

// Sentinel kinds for facade errors.
var (
	ErrNoStore    = errors.New("persistence is not configured")
	ErrNotStarted = errors.New("report workers are not running")
)

// ErrorKind classifies err for metrics and transport mapping.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, model.ErrInvalidInput), errors.Is(err, repository.ErrInvalidInput),
		errors.Is(err, model.ErrDivisionByZero):
		return "invalid_input"
	case errors.Is(err, model.ErrInsufficientHistory), errors.Is(err, model.ErrInsufficientData):
		return "insufficient_history"
	case errors.Is(err, model.ErrNotFitted):
		return "not_fitted"
	case errors.Is(err, repository.ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrNoStore):
		return "no_store"
	default:
		return "internal"
	}
}
