package rankmodel

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"time"
)

// Default training configuration constants.
const (
	defaultSeed            = 42
	defaultHoldoutFraction = 0.2
	minTrainingRows        = 5
)

// TrainOption applies a configuration option to a training run.
type TrainOption func(*trainer)

// WithCandidates replaces the model-selection grid.
func WithCandidates(candidates ...Candidate) TrainOption {
	return func(t *trainer) {
		if len(candidates) > 0 {
			t.candidates = candidates
		}
	}
}

// WithSeed sets the seed of the holdout shuffle.
func WithSeed(seed uint64) TrainOption {
	return func(t *trainer) { t.seed = seed }
}

// WithHoldoutFraction sets the share of rows held out for scoring candidates.
func WithHoldoutFraction(f float64) TrainOption {
	return func(t *trainer) {
		if f > 0 && f < 1 {
			t.holdout = f
		}
	}
}

// WithClock overrides the training timestamp source.
func WithClock(now func() time.Time) TrainOption {
	return func(t *trainer) {
		if now != nil {
			t.now = now
		}
	}
}

type trainer struct {
	candidates []Candidate
	seed       uint64
	holdout    float64
	now        func() time.Time
}

// CandidateScore is the holdout error of one grid point.
type CandidateScore struct {
	Candidate Candidate
	MAE       float64
}

// Train fits every candidate on a holdout split, keeps the one with the lowest
// mean absolute error and refits it on all rows. Cancellation is checked
// between candidates.
func Train(ctx context.Context, ds *Dataset, opts ...TrainOption) (*Model, []CandidateScore, error) {
	t := &trainer{
		candidates: DefaultCandidates(),
		seed:       defaultSeed,
		holdout:    defaultHoldoutFraction,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}

	if err := ds.Validate(); err != nil {
		return nil, nil, err
	}
	if ds.Len() < minTrainingRows {
		return nil, nil, fmt.Errorf("need at least %d rows, got %d: %w", minTrainingRows, ds.Len(), ErrInvalidDataset)
	}

	scaler := FitScaler(ds.Rows, len(ds.Features))
	scaled := scaler.TransformAll(ds.Rows)
	trainIdx, testIdx := split(ds.Len(), t.holdout, t.seed)
	trainX, trainY := pick(scaled, ds.Ranks, trainIdx)
	testX, testY := pick(scaled, ds.Ranks, testIdx)

	scores := make([]CandidateScore, 0, len(t.candidates))
	bestAt := -1
	for i, c := range t.candidates {
		if err := ctx.Err(); err != nil {
			return nil, scores, fmt.Errorf("training cancelled: %w", err)
		}
		est, err := c.fit(trainX, trainY)
		if err != nil {
			return nil, scores, fmt.Errorf("fit %s: %w", c, err)
		}
		mae := meanAbsoluteError(est, testX, testY)
		scores = append(scores, CandidateScore{Candidate: c, MAE: mae})
		if bestAt < 0 || mae < scores[bestAt].MAE {
			bestAt = i
		}
	}

	best := scores[bestAt]
	est, err := best.Candidate.fit(scaled, ds.Ranks)
	if err != nil {
		return nil, scores, fmt.Errorf("refit %s: %w", best.Candidate, err)
	}
	m := newModel(ds.Features, scaler, est, best.Candidate.Params, best.MAE, ds.Len(), t.now())
	return m, scores, nil
}

// split shuffles row indices deterministically and cuts off the holdout share.
// The training side always keeps at least minTrainingRows-1 rows and the
// holdout at least one; callers guarantee n >= minTrainingRows.
func split(n int, fraction float64, seed uint64) (train, test []int) {
	idx := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)).Perm(n) //nolint:gosec // deterministic split, not security sensitive
	cut := int(math.Round(float64(n) * fraction))
	cut = min(max(cut, 1), n-(minTrainingRows-1))
	return idx[cut:], idx[:cut]
}

func pick(rows [][]float64, y []float64, idx []int) ([][]float64, []float64) {
	xs := make([][]float64, len(idx))
	ys := make([]float64, len(idx))
	for i, j := range idx {
		xs[i] = rows[j]
		ys[i] = y[j]
	}
	return xs, ys
}

func meanAbsoluteError(est Estimator, rows [][]float64, y []float64) float64 {
	var sum float64
	for i, r := range rows {
		sum += math.Abs(est.Predict(r) - y[i])
	}
	mae := sum / float64(len(rows))
	if math.IsNaN(mae) {
		return math.Inf(1)
	}
	return mae
}
