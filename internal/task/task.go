package task

import (
	"context"

	"github.com/google/uuid"
)

// Task type identifiers.
const (
	TypeWelcomeEmail = "welcome_email"
)

// Task is a unit of background work.
type Task interface {
	ID() uuid.UUID
	Type() string
	Execute(ctx context.Context) error
}

// TaskQueueReader gives workers read-only access to queued tasks.
type TaskQueueReader interface {
	GetChannel() <-chan Task
}

// TaskQueueWriter lets producers enqueue tasks.
type TaskQueueWriter interface {
	// Enqueue adds a task without blocking. It fails if the queue is full
	// or closed.
	Enqueue(task Task) error
	Close()
}

// Submitter accepts tasks for asynchronous execution.
type Submitter interface {
	Submit(ctx context.Context, task Task) error
}
