// Package trainingdata generates synthetic students, attempts, prior-year exam
// results and labelled training sets. Output is fully determined by the seed.
package trainingdata

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/okian/rankpredictor/internal/domain/features"
	"github.com/okian/rankpredictor/internal/domain/model"
	"github.com/okian/rankpredictor/internal/domain/rankmodel"
)

// Generation defaults.
const (
	defaultSeed       = 42
	defaultQuestions  = 30
	defaultAttempts   = 6
	defaultPopulation = 200_000
	defaultResults    = 400

	maxExamScore  = 100.0
	examNoise     = 3.5
	abilityMean   = 0.55
	abilitySpread = 0.18
	topicSpread   = 0.08
	attemptNoise  = 0.05
	maxDrift      = 0.015
	minAbility    = 0.02
	maxAbility    = 0.98
	baseSeconds   = 40
	slowSeconds   = 80
)

// DefaultTopics are the subjects the generator spreads questions across.
var DefaultTopics = []string{"Physics", "Chemistry", "Biology"} //nolint:gochecknoglobals // read-only defaults

var difficulties = [...]string{"easy", "medium", "hard"}

// namespace keys the deterministic student ids.
var namespace = uuid.MustParse("5b3a9d56-2f7e-4c1e-9a4f-7d0c2b8e6a11")

// Student is a synthetic user with a latent ability and its attempts, oldest first.
type Student struct {
	ID       string
	Name     string
	Ability  float64
	Attempts []model.QuizAttempt
}

// History returns the summaries of every attempt but the last.
func (s Student) History() []model.HistoricalRecord {
	if len(s.Attempts) < 2 {
		return nil
	}
	out := make([]model.HistoricalRecord, 0, len(s.Attempts)-1)
	for _, a := range s.Attempts[:len(s.Attempts)-1] {
		out = append(out, a.Summary())
	}
	return out
}

// Latest returns the last attempt.
func (s Student) Latest() model.QuizAttempt {
	return s.Attempts[len(s.Attempts)-1]
}

// Generator produces synthetic data.
type Generator struct {
	seed       uint64
	topics     []string
	questions  int
	attempts   int
	population int
	start      time.Time
}

// Option applies a configuration option to the Generator.
type Option func(*Generator)

// WithSeed sets the random seed.
func WithSeed(seed uint64) Option {
	return func(g *Generator) { g.seed = seed }
}

// WithTopics sets the quiz topics.
func WithTopics(topics ...string) Option {
	return func(g *Generator) {
		if len(topics) > 0 {
			g.topics = topics
		}
	}
}

// WithQuestions sets the number of questions per attempt.
func WithQuestions(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.questions = n
		}
	}
}

// WithAttempts sets the number of attempts per student. At least two are
// needed for a history.
func WithAttempts(n int) Option {
	return func(g *Generator) {
		if n > 1 {
			g.attempts = n
		}
	}
}

// WithPopulation sets the size of the exam cohort ranks are drawn from.
func WithPopulation(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.population = n
		}
	}
}

// WithStart sets the date of every student's first attempt.
func WithStart(t time.Time) Option {
	return func(g *Generator) { g.start = t }
}

// New creates a Generator.
func New(opts ...Option) *Generator {
	g := &Generator{
		seed:       defaultSeed,
		topics:     DefaultTopics,
		questions:  defaultQuestions,
		attempts:   defaultAttempts,
		population: defaultPopulation,
		start:      time.Date(2024, time.January, 1, 9, 0, 0, 0, time.UTC),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Generator) rng(stream uint64) *rand.Rand {
	return rand.New(rand.NewPCG(g.seed, stream))
}

// Student generates the i-th student. The same i always yields the same student.
func (g *Generator) Student(i int) Student {
	r := g.rng(uint64(i) + 1)

	ability := clamp(abilityMean+abilitySpread*r.NormFloat64(), minAbility, maxAbility)
	drift := maxDrift * (2*r.Float64() - 1)
	bias := make(map[string]float64, len(g.topics))
	for _, t := range g.topics {
		bias[t] = topicSpread * r.NormFloat64()
	}

	s := Student{
		ID:      uuid.NewSHA1(namespace, []byte(fmt.Sprintf("%d/%d", g.seed, i))).String(),
		Name:    fmt.Sprintf("Student %04d", i+1),
		Ability: ability,
	}
	for k := 0; k < g.attempts; k++ {
		level := clamp(ability+drift*float64(k)+attemptNoise*r.NormFloat64(), minAbility, maxAbility)
		s.Attempts = append(s.Attempts, g.attempt(r, level, bias, g.start.AddDate(0, 0, 7*k)))
	}
	return s
}

// Students generates students 0..n-1.
func (g *Generator) Students(n int) []Student {
	out := make([]Student, n)
	for i := range out {
		out[i] = g.Student(i)
	}
	return out
}

func (g *Generator) attempt(r *rand.Rand, level float64, bias map[string]float64, date time.Time) model.QuizAttempt {
	a := model.QuizAttempt{QuizDate: date}
	correct := 0
	for q := 0; q < g.questions; q++ {
		topic := g.topics[q%len(g.topics)]
		diff := q % len(difficulties)
		p := clamp(level+bias[topic]-0.1*float64(diff-1), minAbility, maxAbility)

		resp := model.QuizResponse{
			QuestionID:       q + 1,
			CorrectOptionID:  1 + r.IntN(4),
			Topic:            topic,
			Subtopic:         fmt.Sprintf("%s %d", topic, 1+q/len(g.topics)%3),
			Difficulty:       difficulties[diff],
			TimeTaken:        baseSeconds + int(float64(slowSeconds)*(1-level)*r.Float64()) + 10*diff,
			SelectedOptionID: 0,
		}
		if r.Float64() < p {
			resp.SelectedOptionID = resp.CorrectOptionID
			correct++
		} else {
			resp.SelectedOptionID = 1 + (resp.CorrectOptionID+r.IntN(3))%4
		}
		a.TotalTime += resp.TimeTaken
		a.Responses = append(a.Responses, resp)
	}
	a.TotalScore = 100 * float64(correct) / float64(g.questions)
	return a
}

// examScore draws the exam score, in percent like quiz scores, a student of
// the given ability achieves.
func examScore(r *rand.Rand, ability float64) float64 {
	return clamp(maxExamScore*ability+examNoise*r.NormFloat64(), 0, maxExamScore)
}

// ExamResults generates n results of a prior exam year. Ranks spread the
// cohort over the configured population, best score first.
func (g *Generator) ExamResults(year, n int) []rankmodel.ExamResult {
	r := g.rng(math.MaxUint32 + uint64(year))

	scores := make([]float64, n)
	for i := range scores {
		ability := clamp(abilityMean+abilitySpread*r.NormFloat64(), minAbility, maxAbility)
		scores[i] = examScore(r, ability)
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(scores)))

	out := make([]rankmodel.ExamResult, n)
	for i, s := range scores {
		rank := int(math.Round((float64(i) + 0.5) / float64(n) * float64(g.population)))
		out[i] = rankmodel.ExamResult{Year: year, Score: math.Round(s*10) / 10, Rank: max(rank, 1)}
	}
	return out
}

// Dataset builds a labelled training set from n students: features come from
// each student's latest attempt and history, the label from the exam score
// the student's final level earns on the prior-year curve.
func (g *Generator) Dataset(ctx context.Context, n int) (*rankmodel.Dataset, error) {
	curve, err := rankmodel.FitScoreRank(g.ExamResults(g.start.Year()-1, defaultResults))
	if err != nil {
		return nil, fmt.Errorf("fit label curve: %w", err)
	}

	vectors := make([]model.FeatureVector, 0, n)
	ranks := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("dataset generation cancelled: %w", err)
		}
		s := g.Student(i)
		fv, err := features.Extract(s.Latest(), s.History())
		if err != nil {
			return nil, fmt.Errorf("student %d: %w", i, err)
		}
		r := g.rng(math.MaxUint64 - uint64(i))
		vectors = append(vectors, fv)
		ranks = append(ranks, float64(curve.Rank(examScore(r, s.Latest().TotalScore/100))))
	}
	return rankmodel.FromVectors(vectors, ranks)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
