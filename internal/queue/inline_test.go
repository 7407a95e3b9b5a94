package queue

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
)

func TestInlineRunsRegisteredHandler(t *testing.T) {
	q := NewInline(slog.New(slog.NewTextHandler(io.Discard, nil)))

	var got []string
	q.Register("echo", func(ctx context.Context, task Task) error {
		got = append(got, string(task.Payload))
		return nil
	})

	for _, payload := range []string{"a", "b"} {
		if _, err := q.Enqueue(context.Background(), Task{Type: "echo", Payload: []byte(payload)}); err != nil {
			t.Fatalf("Enqueue: %v", err)
		}
	}
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("handled %v, want [a b]", got)
	}
}

func TestInlineUnknownTask(t *testing.T) {
	q := NewInline(slog.New(slog.NewTextHandler(io.Discard, nil)))
	if _, err := q.Enqueue(context.Background(), Task{Type: "missing"}); err == nil {
		t.Fatal("Enqueue of an unregistered type should fail")
	}
}

func TestInlineSwallowsHandlerErrors(t *testing.T) {
	q := NewInline(slog.New(slog.NewTextHandler(io.Discard, nil)))
	q.Register("boom", func(ctx context.Context, task Task) error {
		return errors.New("boom")
	})
	if _, err := q.Enqueue(context.Background(), Task{Type: "boom"}); err != nil {
		t.Fatalf("Enqueue = %v, want handler error logged only", err)
	}
}

func TestInlineDetachesCancellation(t *testing.T) {
	q := NewInline(slog.New(slog.NewTextHandler(io.Discard, nil)))
	var handlerErr error
	q.Register("ctx", func(ctx context.Context, task Task) error {
		handlerErr = ctx.Err()
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := q.Enqueue(ctx, Task{Type: "ctx"}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if handlerErr != nil {
		t.Fatalf("handler saw %v, want a live context", handlerErr)
	}
}

func TestNewAsynqClientRejectsBadURL(t *testing.T) {
	if _, err := NewAsynqClient("not-a-url://"); err == nil {
		t.Fatal("expected parse error")
	}
}
