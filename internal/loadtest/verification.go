package loadtest

import (
	"errors"
	"fmt"
	"sort"
)

// Prediction bounds every response must respect.
const (
	minConfidence = 0.5
	maxConfidence = 0.95
)

// verifyResults checks every prediction against the published bounds and
// that a better rank never qualifies for fewer colleges.
func verifyResults(results []studentResult) error {
	var ok []studentResult
	var errs []error
	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, r.Err)
			continue
		}
		if r.Rank < 1 {
			errs = append(errs, fmt.Errorf("user %s: rank %d below 1", r.UserID, r.Rank))
		}
		if r.Confidence < minConfidence || r.Confidence > maxConfidence {
			errs = append(errs, fmt.Errorf("user %s: confidence %.3f out of bounds", r.UserID, r.Confidence))
		}
		ok = append(ok, r)
	}
	if len(results) > 0 && len(ok) == 0 {
		errs = append(errs, errors.New("no student completed"))
	}

	sort.SliceStable(ok, func(i, j int) bool { return ok[i].Rank < ok[j].Rank })
	for i := 1; i < len(ok); i++ {
		if len(ok[i].Colleges) > len(ok[i-1].Colleges) {
			errs = append(errs, fmt.Errorf("rank %d qualifies for %d colleges but better rank %d for %d",
				ok[i].Rank, len(ok[i].Colleges), ok[i-1].Rank, len(ok[i-1].Colleges)))
		}
	}
	return errors.Join(errs...)
}
