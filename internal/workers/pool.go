package workers

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/openso2/camctl/internal/logger"
)

var ErrPoolStopped = errors.New("worker pool is stopped")

// Pool manages a fixed set of goroutine workers executing shell commands.
type Pool struct {
	taskQueue      chan Task
	resultCh       chan Result
	workers        int
	defaultTimeout time.Duration
	wg             sync.WaitGroup
	ctx            context.Context
	cancel         context.CancelFunc
	logger         *logger.Logger

	mu      sync.RWMutex
	stopped bool
	metrics PoolMetrics
}

// NewPool creates a new worker pool.
func NewPool(workers, bufferSize int, defaultTimeout time.Duration, log *logger.Logger) *Pool {
	if workers < 1 {
		workers = DefaultPoolSize
	}
	if bufferSize < 1 {
		bufferSize = DefaultQueueSize
	}
	if defaultTimeout <= 0 {
		defaultTimeout = DefaultTaskTimeout
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		taskQueue:      make(chan Task, bufferSize),
		resultCh:       make(chan Result, bufferSize),
		workers:        workers,
		defaultTimeout: defaultTimeout,
		ctx:            ctx,
		cancel:         cancel,
		logger:         log,
	}
}

// Start launches all worker goroutines.
func (p *Pool) Start() {
	p.logger.Info("starting worker pool",
		logger.Field{Key: "workers", Value: p.workers},
		logger.Field{Key: "buffer_size", Value: cap(p.taskQueue)})

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Submit sends a task to the worker pool. It blocks if the queue is full.
// Tasks submitted after Stop are dropped.
func (p *Pool) Submit(task Task) {
	if p.isStopped() {
		p.logger.Warn("task dropped, pool is stopped",
			logger.Field{Key: "task_id", Value: task.ID},
			logger.Field{Key: "command", Value: task.Command})
		return
	}

	p.incrementSubmitted()

	p.logger.DebugCtx(p.ctx, "task submitted",
		logger.Field{Key: "task_id", Value: task.ID},
		logger.Field{Key: "command", Value: task.Command})

	select {
	case p.taskQueue <- task:
	case <-p.ctx.Done():
		p.logger.WarnCtx(p.ctx, "task dropped, pool is stopped",
			logger.Field{Key: "task_id", Value: task.ID},
			logger.Field{Key: "command", Value: task.Command})
	}
}

// SubmitWithContext attempts to submit a task, giving up when ctx expires.
func (p *Pool) SubmitWithContext(ctx context.Context, task Task) error {
	if p.isStopped() {
		return ErrPoolStopped
	}

	p.incrementSubmitted()

	select {
	case p.taskQueue <- task:
		return nil
	case <-p.ctx.Done():
		return ErrPoolStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// isStopped reports whether Stop has been called.
func (p *Pool) isStopped() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.stopped
}

// Results returns a read-only channel of task results.
func (p *Pool) Results() <-chan Result {
	return p.resultCh
}

// WorkerCount returns the number of workers.
func (p *Pool) WorkerCount() int {
	return p.workers
}

// Stop shuts the pool down, waiting for queued and in-flight tasks to finish.
// The task queue itself never closes so that late submitters are dropped
// rather than panicking the process.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	p.mu.Unlock()

	p.cancel()
	p.wg.Wait()
	close(p.resultCh)

	metrics := p.Metrics()
	p.logger.Info("worker pool stopped",
		logger.Field{Key: "tasks_submitted", Value: metrics.TasksSubmitted},
		logger.Field{Key: "tasks_completed", Value: metrics.TasksCompleted},
		logger.Field{Key: "tasks_failed", Value: metrics.TasksFailed})
}
