package task

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/PitokDf/express-app-useable/internal/config"
)

// Runner owns a queue and the worker pool that consumes it.
type Runner struct {
	queue  *TaskQueue
	pool   *WorkerPool
	logger *slog.Logger
}

// NewRunner creates a runner sized by cfg. Call Start before submitting.
func NewRunner(cfg config.TaskConfig, logger *slog.Logger) *Runner {
	logger = logger.With("component", "task_runner")
	queue := NewTaskQueue(cfg.QueueSize, logger)
	pool := NewWorkerPool(queue, WorkerPoolConfig{WorkerCount: cfg.WorkerCount}, logger)

	return &Runner{
		queue:  queue,
		pool:   pool,
		logger: logger,
	}
}

// SetErrorHandler installs a callback for failed tasks.
func (r *Runner) SetErrorHandler(handler func(task Task, err error)) {
	r.pool.SetErrorHandler(handler)
}

// Start launches the workers.
func (r *Runner) Start() {
	r.pool.Start()
}

// Submit enqueues a task. It never blocks; a full or closed queue is an error.
func (r *Runner) Submit(_ context.Context, task Task) error {
	if err := r.queue.Enqueue(task); err != nil {
		return fmt.Errorf("failed to submit task %s: %w", task.Type(), err)
	}
	return nil
}

// Shutdown stops accepting tasks and waits for queued ones to finish, or
// for ctx to end.
func (r *Runner) Shutdown(ctx context.Context) error {
	r.queue.Close()
	if err := r.pool.Drain(ctx); err != nil {
		return fmt.Errorf("task runner shutdown: %w", err)
	}
	return nil
}

var _ Submitter = (*Runner)(nil)
