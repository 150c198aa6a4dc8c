package worker_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/okian/rankpredictor/internal/adapters/mq/queue"
	"github.com/okian/rankpredictor/internal/adapters/mq/worker"
	"github.com/okian/rankpredictor/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

type recorder struct {
	mu    sync.Mutex
	users []string
	fail  map[string]error
	delay time.Duration
}

func (r *recorder) Process(ctx context.Context, job queue.Job) error {
	if r.delay > 0 {
		select {
		case <-time.After(r.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail[job.UserID]; err != nil {
		return err
	}
	r.users = append(r.users, job.UserID)
	return nil
}

func (r *recorder) seen() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.users)
}

// errLog keeps the error fields of Error entries.
type errLog struct {
	mu   sync.Mutex
	errs []error
}

func (l *errLog) Info(context.Context, string, ...logger.Field)  {}
func (l *errLog) Debug(context.Context, string, ...logger.Field) {}
func (l *errLog) Warn(context.Context, string, ...logger.Field)  {}
func (l *errLog) Fatal(context.Context, string, ...logger.Field) {}
func (l *errLog) Named(string) logger.Logger                     { return l }

func (l *errLog) Error(_ context.Context, _ string, fields ...logger.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, f := range fields {
		if err, ok := f.Value.(error); ok {
			l.errs = append(l.errs, err)
		}
	}
}

func (l *errLog) panicked() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, err := range l.errs {
		if errors.Is(err, worker.ErrJobPanicked) {
			n++
		}
	}
	return n
}

func fill(q *queue.InMemoryQueue, n int) {
	for i := 0; i < n; i++ {
		if err := q.Enqueue(context.Background(), queue.Job{ID: fmt.Sprintf("job-%d", i), UserID: fmt.Sprintf("user-%d", i)}); err != nil {
			panic(err)
		}
	}
}

func TestPool(t *testing.T) {
	convey.Convey("Given a pool over a filled queue", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(100))
		rec := &recorder{fail: map[string]error{"user-3": errors.New("no attempts")}}
		pool := worker.NewPool(4, q, rec)
		ctx := context.Background()

		fill(q, 20)
		pool.Start(ctx)

		convey.Convey("Drain processes every queued job", func() {
			dctx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()

			convey.So(pool.Drain(dctx), convey.ShouldBeNil)
			convey.So(pool.Size(), convey.ShouldEqual, 4)
			convey.So(pool.Processed(), convey.ShouldEqual, int64(20))
			convey.So(rec.seen(), convey.ShouldEqual, 19)
		})
	})

	convey.Convey("Given a processor that panics on one user", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(10))
		rec := &recorder{}
		log := &errLog{}
		proc := worker.ProcessorFunc(func(ctx context.Context, job queue.Job) error {
			if job.UserID == "user-2" {
				var m map[string]int
				m["boom"]++
			}
			return rec.Process(ctx, job)
		})
		pool := worker.NewPool(2, q, proc, worker.WithLogger(log))
		ctx := context.Background()

		fill(q, 6)
		pool.Start(ctx)

		convey.Convey("The panic becomes a job error and the pool keeps going", func() {
			dctx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()

			convey.So(pool.Drain(dctx), convey.ShouldBeNil)
			convey.So(pool.Processed(), convey.ShouldEqual, int64(6))
			convey.So(rec.seen(), convey.ShouldEqual, 5)
			convey.So(log.panicked(), convey.ShouldEqual, 1)
		})
	})

	convey.Convey("Given a pool with a non-positive size", t, func() {
		pool := worker.NewPool(0, queue.NewInMemoryQueue(), &recorder{})

		convey.So(pool.Size(), convey.ShouldBeGreaterThan, 0)
	})

	convey.Convey("Given slow jobs", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(10))
		rec := &recorder{delay: 200 * time.Millisecond}
		pool := worker.NewPool(1, q, rec, worker.WithJobTimeout(50*time.Millisecond))
		ctx := context.Background()

		fill(q, 2)
		pool.Start(ctx)

		convey.Convey("The job timeout cancels each one", func() {
			dctx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()

			convey.So(pool.Drain(dctx), convey.ShouldBeNil)
			convey.So(pool.Processed(), convey.ShouldEqual, int64(2))
			convey.So(rec.seen(), convey.ShouldEqual, 0)
		})
	})

	convey.Convey("Given a running pool", t, func() {
		q := queue.NewInMemoryQueue()
		pool := worker.NewPool(2, q, worker.ProcessorFunc(func(context.Context, queue.Job) error { return nil }))
		pool.Start(context.Background())

		convey.Convey("Shutdown returns without closing the queue", func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()

			convey.So(pool.Shutdown(ctx), convey.ShouldBeNil)
			convey.So(q.Enqueue(context.Background(), queue.Job{ID: "after"}), convey.ShouldBeNil)
		})
	})

	convey.Convey("Given a worker that was never started", t, func() {
		w := worker.NewInMemoryWorker(queue.NewInMemoryQueue(), &recorder{}, worker.WithName("idle"))

		convey.Convey("Shutdown honours the context deadline", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
			defer cancel()

			convey.So(errors.Is(w.Shutdown(ctx), context.DeadlineExceeded), convey.ShouldBeTrue)
		})
	})
}
