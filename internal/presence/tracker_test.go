package presence

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/fkhayef/forumcore/internal/clock"
	"github.com/fkhayef/forumcore/internal/ephemeral"
	"github.com/fkhayef/forumcore/pkg/apperror"
)

var start = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTracker(store ephemeral.Store) (*Tracker, *clock.FakeClock) {
	clk := clock.Fake(start)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewTracker(store, 45*time.Second, clk, logger), clk
}

func TestOnlineCountExpiresWithoutOffline(t *testing.T) {
	tracker, clk := newTracker(ephemeral.NewMemoryStore())
	ctx := context.Background()

	tracker.MarkOnline(ctx, 1, 10)
	clk.Advance(20 * time.Second)
	tracker.MarkOnline(ctx, 1, 11)
	tracker.MarkOnline(ctx, 1, 11)

	if count, _ := tracker.OnlineCount(ctx, 1); count != 2 {
		t.Fatalf("OnlineCount = %d, want 2", count)
	}

	clk.Advance(25 * time.Second)
	if count, _ := tracker.OnlineCount(ctx, 1); count != 1 {
		t.Fatalf("OnlineCount at 45s = %d, want 1 (user 10 expired)", count)
	}

	clk.Advance(20 * time.Second)
	if count, _ := tracker.OnlineCount(ctx, 1); count != 0 {
		t.Fatalf("OnlineCount at 65s = %d, want 0", count)
	}
}

func TestHeartbeatKeepsUserOnline(t *testing.T) {
	tracker, clk := newTracker(ephemeral.NewMemoryStore())
	ctx := context.Background()

	if ok, err := tracker.Heartbeat(ctx, 1, 10); err != nil || ok {
		t.Fatalf("Heartbeat without record = %v, %v; want no-op", ok, err)
	}

	tracker.MarkOnline(ctx, 1, 10)
	for i := 0; i < 4; i++ {
		clk.Advance(30 * time.Second)
		if ok, err := tracker.Heartbeat(ctx, 1, 10); err != nil || !ok {
			t.Fatalf("Heartbeat #%d = %v, %v", i+1, ok, err)
		}
	}
	users, _ := tracker.OnlineUsers(ctx, 1)
	if len(users) != 1 || users[0] != 10 {
		t.Fatalf("OnlineUsers = %v, want [10]", users)
	}
}

func TestHeartbeatAfterExpiryDoesNotRevive(t *testing.T) {
	tests := []struct {
		name  string
		sweep bool
	}{
		{"without sweep", false},
		{"after sweep", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := ephemeral.NewMemoryStore()
			tracker, clk := newTracker(store)
			ctx := context.Background()

			tracker.MarkOnline(ctx, 1, 10)
			clk.Advance(10 * time.Minute)
			if tt.sweep {
				if _, err := tracker.Sweep(ctx); err != nil {
					t.Fatalf("Sweep: %v", err)
				}
			}

			ok, err := tracker.Heartbeat(ctx, 1, 10)
			if err != nil || ok {
				t.Fatalf("Heartbeat after expiry = %v, %v; want false", ok, err)
			}
			if count, _ := tracker.OnlineCount(ctx, 1); count != 0 {
				t.Fatalf("OnlineCount = %d, want 0", count)
			}
		})
	}
}

func TestMarkOfflineIdempotent(t *testing.T) {
	tracker, _ := newTracker(ephemeral.NewMemoryStore())
	ctx := context.Background()

	tracker.MarkOnline(ctx, 1, 10)
	for i := 0; i < 2; i++ {
		if err := tracker.MarkOffline(ctx, 1, 10); err != nil {
			t.Fatalf("MarkOffline #%d: %v", i+1, err)
		}
	}
	if count, _ := tracker.OnlineCount(ctx, 1); count != 0 {
		t.Fatalf("OnlineCount = %d after offline", count)
	}
}

func TestSweepReapsStale(t *testing.T) {
	store := ephemeral.NewMemoryStore()
	tracker, clk := newTracker(store)
	ctx := context.Background()

	tracker.MarkOnline(ctx, 1, 10)
	clk.Advance(40 * time.Second)
	tracker.MarkOnline(ctx, 2, 11)
	clk.Advance(10 * time.Second)

	removed, err := tracker.Sweep(ctx)
	if err != nil || removed != 1 {
		t.Fatalf("Sweep = %d, %v; want 1", removed, err)
	}
	if ok, _ := tracker.Heartbeat(ctx, 1, 10); ok {
		t.Fatal("swept record still refreshable")
	}
}

// flakyStore fails the first n Refresh calls
type flakyStore struct {
	*ephemeral.MemoryStore
	failures int
	calls    int
}

func (s *flakyStore) Refresh(ctx context.Context, forumID, userID int64, at, cutoff time.Time) (bool, error) {
	s.calls++
	if s.calls <= s.failures {
		return false, errors.New("connection reset")
	}
	return s.MemoryStore.Refresh(ctx, forumID, userID, at, cutoff)
}

func TestHeartbeatRetriesOnce(t *testing.T) {
	store := &flakyStore{MemoryStore: ephemeral.NewMemoryStore(), failures: 1}
	tracker, _ := newTracker(store)
	ctx := context.Background()
	tracker.MarkOnline(ctx, 1, 10)

	ok, err := tracker.Heartbeat(ctx, 1, 10)
	if err != nil || !ok || store.calls != 2 {
		t.Fatalf("Heartbeat = %v, %v after %d calls; want success on retry", ok, err, store.calls)
	}

	store.calls, store.failures = 0, 2
	_, err = tracker.Heartbeat(ctx, 1, 10)
	if !apperror.Is(err, apperror.KindTransientUpstream) || store.calls != 2 {
		t.Fatalf("Heartbeat = %v after %d calls; want transient after one retry", err, store.calls)
	}
}
