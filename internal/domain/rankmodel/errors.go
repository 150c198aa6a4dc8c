package rankmodel

import "errors"

// Sentinel kinds for training and persistence errors.
var (
	ErrInvalidDataset  = errors.New("invalid training dataset")
	ErrUnknownFamily   = errors.New("unknown estimator family")
	ErrCorruptSnapshot = errors.New("corrupt model snapshot")
)
