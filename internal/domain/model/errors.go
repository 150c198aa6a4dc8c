package model

import "errors"

// Sentinel error kinds shared by the pipeline packages. Callers match them
// with errors.Is to tell domain failures apart from unexpected faults.
var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrInsufficientHistory = errors.New("insufficient history")
	ErrInsufficientData    = errors.New("insufficient data")
	ErrNotFitted           = errors.New("model not fitted")
	ErrDivisionByZero      = errors.New("division by zero")
)
