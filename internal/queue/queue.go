// Package queue runs background tasks. With Redis configured tasks go
// through asynq; otherwise the Inline queue runs them in-process.
package queue

import (
	"context"
	"time"
)

// Task is a background job: a stable type string and an opaque payload
type Task struct {
	Type    string
	Payload []byte
}

// Handler processes a Task. A non-nil error asks the backend to retry, so
// handlers must be idempotent.
type Handler func(ctx context.Context, task Task) error

// EnqueueOption controls enqueue behavior. Zero values mean unspecified.
type EnqueueOption struct {
	Queue     string
	ProcessIn time.Duration
	MaxRetry  int
	Timeout   time.Duration
}

// Client enqueues tasks for background processing
type Client interface {
	Enqueue(ctx context.Context, t Task, opts ...EnqueueOption) (id string, err error)
	Close() error
}

// Server runs the workers that handle tasks. Run blocks until ctx is
// canceled.
type Server interface {
	Register(taskType string, h Handler)
	Run(ctx context.Context) error
}
