package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/fkhayef/forumcore/internal/queue"
)

// TaskDeliver is the queue task type that stores one notification
const TaskDeliver = "notification:deliver"

// Dispatcher hands notifications to the task queue so the request that
// triggered them never waits on delivery
type Dispatcher struct {
	client queue.Client
	logger *slog.Logger
}

// NewDispatcher creates a dispatcher enqueueing on client
func NewDispatcher(client queue.Client, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{client: client, logger: logger}
}

// Notify enqueues d. Failures are logged and returned; callers treat them
// as non-fatal.
func (d *Dispatcher) Notify(ctx context.Context, delivery Delivery) error {
	payload, err := json.Marshal(delivery)
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}

	_, err = d.client.Enqueue(ctx, queue.Task{Type: TaskDeliver, Payload: payload}, queue.EnqueueOption{MaxRetry: 5})
	if err != nil {
		d.logger.Warn("failed to enqueue notification", "recipient_id", delivery.RecipientID, "error", err)
		return err
	}
	return nil
}

// RegisterTasks binds the delivery task to service on server
func RegisterTasks(server queue.Server, service *Service) {
	server.Register(TaskDeliver, func(ctx context.Context, task queue.Task) error {
		var delivery Delivery
		if err := json.Unmarshal(task.Payload, &delivery); err != nil {
			return fmt.Errorf("failed to decode notification: %w", err)
		}
		_, err := service.Deliver(ctx, delivery)
		return err
	})
}
