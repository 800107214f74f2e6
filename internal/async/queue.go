package async

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/joseph-ayodele/docs-extractor/internal/common"
)

// Job asks the queue to process one pending result.
type Job struct {
	ResultID    string
	SubmittedAt time.Time
}

// ErrQueueClosed is returned by Enqueue after Shutdown.
var ErrQueueClosed = errors.New("queue is shutting down")

// ProcessorQueue feeds jobs to a single worker so results are processed one at
// a time in submission order.
type ProcessorQueue struct {
	proc    ResultProcessor
	logger  *slog.Logger
	timeout time.Duration

	ch      chan Job
	done    chan struct{}
	senders sync.WaitGroup
	wg      sync.WaitGroup
	once    sync.Once

	mu     sync.Mutex
	closed bool
}

type Option func(*ProcessorQueue)

func WithQueueSize(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}

// WithProcessTimeout bounds each document; 0 means no limit.
func WithProcessTimeout(d time.Duration) Option {
	return func(q *ProcessorQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

func NewProcessorQueue(proc ResultProcessor, logger *slog.Logger, opts ...Option) *ProcessorQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &ProcessorQueue{
		proc:   proc,
		logger: logger,
		ch:     make(chan Job, 256),
		done:   make(chan struct{}),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *ProcessorQueue) start() {
	q.once.Do(func() {
		q.wg.Add(1)
		go func() {
			defer q.wg.Done()
			q.logger.Info("queue.worker.started")
			for job := range q.ch {
				ctx, cancel := common.WithTimeout(context.Background(), q.timeout)
				r, err := q.proc.Process(ctx, job.ResultID)
				cancel()
				if err != nil {
					q.logger.Error("queue.process.failed", "id", job.ResultID, "error", err)
					continue
				}
				q.logger.Info("queue.process.ok", "id", job.ResultID, "status", r.Status,
					"wait_ms", time.Since(job.SubmittedAt).Milliseconds())
			}
			q.logger.Info("queue.worker.stopped")
		}()
	})
}

// Enqueue blocks when the buffer is full. A blocked call returns ErrQueueClosed
// once Shutdown starts.
func (q *ProcessorQueue) Enqueue(ctx context.Context, job Job) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		q.logger.Warn("queue.enqueue.closed", "id", job.ResultID)
		return ErrQueueClosed
	}
	q.senders.Add(1)
	q.mu.Unlock()
	defer q.senders.Done()

	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now()
	}
	select {
	case q.ch <- job:
		q.logger.Debug("queue.enqueue", "id", job.ResultID)
		return nil
	default:
	}
	q.logger.Warn("queue.full.backpressure", "id", job.ResultID)
	select {
	case q.ch <- job:
		return nil
	case <-q.done:
		q.logger.Warn("queue.enqueue.closed", "id", job.ResultID)
		return ErrQueueClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops accepting jobs and waits for the queued ones to drain.
func (q *ProcessorQueue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.done)
	q.mu.Unlock()

	drained := make(chan struct{})
	go func() {
		defer close(drained)
		// ch is closed only after every in-flight Enqueue has returned
		q.senders.Wait()
		close(q.ch)
		q.wg.Wait()
	}()

	select {
	case <-ctx.Done():
		q.logger.Warn("queue.shutdown.interrupted")
	case <-drained:
		q.logger.Info("queue.shutdown.drained")
	}
}
