package queue

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultWorkers     = 4
	DefaultBuffer      = 256
	DefaultTaskTimeout = 30 * time.Second
)

// MemoryConfig tunes the in-process queue.
type MemoryConfig struct {
	Workers     int
	Buffer      int
	TaskTimeout time.Duration
	Logger      *zap.Logger
}

// MemoryQueue is a bounded channel drained by a fixed worker pool. Tasks still buffered when
// the process stops are lost.
type MemoryQueue struct {
	tasks       chan Task
	workers     int
	taskTimeout time.Duration
	logger      *zap.Logger

	mu     sync.RWMutex
	closed bool
}

// NewMemoryQueue returns a queue with defaults applied to zero config values.
func NewMemoryQueue(cfg MemoryConfig) *MemoryQueue {
	workers := cfg.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	buffer := cfg.Buffer
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	timeout := cfg.TaskTimeout
	if timeout <= 0 {
		timeout = DefaultTaskTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &MemoryQueue{
		tasks:       make(chan Task, buffer),
		workers:     workers,
		taskTimeout: timeout,
		logger:      logger.With(zap.String("component", "webhook-queue")),
	}
}

// Enqueue never blocks: a full buffer is reported as ErrQueueFull.
func (q *MemoryQueue) Enqueue(_ context.Context, task Task) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}

	select {
	case q.tasks <- task:
		return nil
	default:
		return ErrQueueFull
	}
}

// Run starts the workers and blocks until ctx is cancelled. Tasks already buffered at that
// point are drained before Run returns.
func (q *MemoryQueue) Run(ctx context.Context, handle Handler) error {
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < q.workers; i++ {
		worker := i
		g.Go(func() error {
			q.work(gctx, worker, handle)
			return nil
		})
	}

	<-ctx.Done()
	q.mu.Lock()
	q.closed = true
	close(q.tasks)
	q.mu.Unlock()

	return g.Wait()
}

func (q *MemoryQueue) work(ctx context.Context, worker int, handle Handler) {
	for task := range q.tasks {
		// drain with a fresh context once shutdown started so buffered tasks still get a chance
		base := ctx
		if ctx.Err() != nil {
			base = context.Background()
		}
		runTask(base, q.taskTimeout, q.logger.With(zap.Int("worker", worker)), task, handle)
	}
}

// runTask applies the per-task timeout, recovers panics and logs the outcome.
func runTask(ctx context.Context, timeout time.Duration, logger *zap.Logger, task Task, handle Handler) {
	taskCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	logger = logger.With(
		zap.String("task_id", task.ID.String()),
		zap.String("platform", string(task.Platform)),
		zap.String("transaction_id", task.Notification.TransactionID),
		zap.String("object_id", task.Notification.ObjectID),
	)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("webhook task panicked", zap.Any("panic", r))
		}
	}()

	start := time.Now()
	if err := handle(taskCtx, task); err != nil {
		logger.Warn("webhook task failed", zap.Duration("duration", time.Since(start)), zap.Error(err))
		return
	}
	logger.Debug("webhook task done", zap.Duration("duration", time.Since(start)))
}
