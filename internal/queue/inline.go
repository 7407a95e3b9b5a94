package queue

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
)

// DefaultQueue is the queue tasks land in unless an option names another
const DefaultQueue = "default"

// Inline is both Client and Server: Enqueue runs the registered handler
// synchronously. It backs deployments without Redis and the tests.
type Inline struct {
	logger *slog.Logger

	mu       sync.RWMutex
	handlers map[string]Handler
	seq      atomic.Int64
}

// NewInline creates an in-process queue
func NewInline(logger *slog.Logger) *Inline {
	return &Inline{logger: logger, handlers: make(map[string]Handler)}
}

var (
	_ Client = (*Inline)(nil)
	_ Server = (*Inline)(nil)
)

func (q *Inline) Register(taskType string, h Handler) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers[taskType] = h
}

// Enqueue runs the handler once. Handler failures are logged, not
// returned: the caller's operation has already committed.
func (q *Inline) Enqueue(ctx context.Context, t Task, opts ...EnqueueOption) (string, error) {
	q.mu.RLock()
	h, ok := q.handlers[t.Type]
	q.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("inline queue: no handler for %q", t.Type)
	}

	id := strconv.FormatInt(q.seq.Add(1), 10)
	if err := h(context.WithoutCancel(ctx), t); err != nil {
		q.logger.Error("task failed", "type", t.Type, "id", id, "error", err)
	}
	return id, nil
}

// Run blocks until ctx is canceled; there are no workers to start
func (q *Inline) Run(ctx context.Context) error {
	<-ctx.Done()
	return nil
}

func (q *Inline) Close() error { return nil }
