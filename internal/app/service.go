// Package service is the prediction pipeline facade shared by the HTTP API,
// the report page and the batch CLI.
package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/rankpredictor/internal/adapters/mq/queue"
	"github.com/okian/rankpredictor/internal/adapters/mq/worker"
	"github.com/okian/rankpredictor/internal/adapters/repository"
	"github.com/okian/rankpredictor/internal/domain/college"
	"github.com/okian/rankpredictor/internal/domain/rankmodel"
	"github.com/okian/rankpredictor/pkg/logger"
)

// Default facade configuration.
const (
	defaultHistoryWindow = 5
	defaultWeakThreshold = 60.0
	defaultQueueSize     = 1024
)

// ReportSink receives the outcome of every batch report job.
type ReportSink func(ctx context.Context, userID string, r *Report, err error)

// Service wires feature extraction, the swappable rank model, college
// eligibility and the optional store into one stateless facade.
type Service struct {
	model   *rankmodel.Holder
	cutoffs *college.Table
	store   repository.Store

	historyWindow   int
	weakThreshold   float64
	defaultCategory college.Category
	now             func() time.Time

	// Batch reports
	mu          sync.Mutex
	workerCount int
	queueSize   int
	jobTimeout  time.Duration
	sink        ReportSink
	queue       *queue.InMemoryQueue
	pool        *worker.Pool

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithModel sets the model holder. Without it every prediction fails with ErrNotFitted.
func WithModel(h *rankmodel.Holder) Option {
	return func(s *Service) {
		if h != nil {
			s.model = h
		}
	}
}

// WithCutoffs replaces the built-in cutoff table.
func WithCutoffs(t *college.Table) Option {
	return func(s *Service) {
		if t != nil {
			s.cutoffs = t
		}
	}
}

// WithStore enables persistence and reports.
func WithStore(st repository.Store) Option {
	return func(s *Service) {
		if st != nil {
			s.store = st
		}
	}
}

// WithHistoryWindow bounds how many recent attempts feed the features.
func WithHistoryWindow(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.historyWindow = n
		}
	}
}

// WithWeakThreshold sets the accuracy percentage below which a topic is weak.
func WithWeakThreshold(pct float64) Option {
	return func(s *Service) {
		if pct >= 0 && pct <= 100 {
			s.weakThreshold = pct
		}
	}
}

// WithDefaultCategory sets the category used when a query names none.
func WithDefaultCategory(c college.Category) Option {
	return func(s *Service) {
		if c != "" {
			s.defaultCategory = c
		}
	}
}

// WithWorkerCount sets the number of batch report workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the batch report queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithJobTimeout bounds each batch report job.
func WithJobTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.jobTimeout = d
		}
	}
}

// WithReportSink receives batch report outcomes.
func WithReportSink(sink ReportSink) Option {
	return func(s *Service) {
		if sink != nil {
			s.sink = sink
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a Service. The logger must be initialized unless WithLogger is given.
func New(opts ...Option) *Service {
	s := &Service{
		model:           rankmodel.NewHolder(nil),
		cutoffs:         college.Static(),
		historyWindow:   defaultHistoryWindow,
		weakThreshold:   defaultWeakThreshold,
		defaultCategory: college.General,
		now:             time.Now,
		queueSize:       defaultQueueSize,
		sink:            func(context.Context, string, *Report, error) {},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	return s
}

// Model returns the holder the service predicts with.
func (s *Service) Model() *rankmodel.Holder { return s.model }

// Store returns the configured store, or nil.
func (s *Service) Store() repository.Store { return s.store }

// Start launches the batch report workers. It is a no-op when already started.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.store == nil {
		return ErrNoStore
	}
	if s.pool != nil {
		return nil
	}

	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	var wopts []worker.Option
	if s.jobTimeout > 0 {
		wopts = append(wopts, worker.WithJobTimeout(s.jobTimeout))
	}
	s.pool = worker.NewPool(s.workerCount, s.queue, worker.ProcessorFunc(s.processReport), wopts...)
	s.pool.Start(ctx)

	s.logger.Info(ctx, "report workers started",
		logger.Int("workers", s.pool.Size()),
		logger.Int("queueSize", s.queueSize),
	)
	return nil
}

// EnqueueReport schedules a batch report for userID.
func (s *Service) EnqueueReport(ctx context.Context, userID string) error {
	s.mu.Lock()
	q := s.queue
	s.mu.Unlock()

	if q == nil {
		return ErrNotStarted
	}
	return q.Enqueue(ctx, queue.Job{ID: uuid.NewString(), UserID: userID})
}

// Stop drains the queued reports and stops the workers.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	pool := s.pool
	s.pool, s.queue = nil, nil
	s.mu.Unlock()

	if pool == nil {
		return nil
	}
	err := pool.Drain(ctx)
	s.logger.Info(ctx, "report workers stopped", logger.Int("processed", int(pool.Processed())))
	return err
}

func (s *Service) processReport(ctx context.Context, job queue.Job) error {
	r, err := s.Report(ctx, job.UserID)
	s.sink(ctx, job.UserID, r, err)
	return err
}
