package worker

import "errors"

// ErrJobPanicked marks a job whose processor panicked.
var ErrJobPanicked = errors.New("job panicked")
