// Package presence infers who is online in a forum from client
// heartbeats. A user is online iff their last heartbeat is younger than
// the presence TTL; staleness is computed at read time.
package presence

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/fkhayef/forumcore/internal/clock"
	"github.com/fkhayef/forumcore/internal/ephemeral"
	"github.com/fkhayef/forumcore/pkg/apperror"
)

// DefaultTTL matches a 30s client heartbeat with one missed beat of slack
const DefaultTTL = 45 * time.Second

// Tracker records heartbeats. It performs no authorization.
type Tracker struct {
	store  ephemeral.Store
	ttl    time.Duration
	clock  clock.Clock
	logger *slog.Logger
}

// NewTracker creates a tracker over store
func NewTracker(store ephemeral.Store, ttl time.Duration, clk clock.Clock, logger *slog.Logger) *Tracker {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Tracker{store: store, ttl: ttl, clock: clk, logger: logger}
}

func storeError(err error) error {
	if err == nil {
		return nil
	}
	return apperror.Transient("presence store", err)
}

// MarkOnline upserts the user's record. Repeated calls refresh it.
func (t *Tracker) MarkOnline(ctx context.Context, forumID, userID int64) error {
	return storeError(t.store.Touch(ctx, forumID, userID, t.clock.Now()))
}

// Heartbeat refreshes a live record and is a no-op without one. A record
// older than the TTL counts as missing, so a lapsed user has to MarkOnline
// again. It is the only operation retried server-side, once, since it is
// idempotent.
func (t *Tracker) Heartbeat(ctx context.Context, forumID, userID int64) (bool, error) {
	found, err := t.refresh(ctx, forumID, userID)
	if err != nil {
		t.logger.Warn("heartbeat failed, retrying", "forum_id", forumID, "user_id", userID, "error", err)
		found, err = t.refresh(ctx, forumID, userID)
	}
	return found, storeError(err)
}

func (t *Tracker) refresh(ctx context.Context, forumID, userID int64) (bool, error) {
	now := t.clock.Now()
	return t.store.Refresh(ctx, forumID, userID, now, now.Add(-t.ttl))
}

// MarkOffline removes the record; idempotent
func (t *Tracker) MarkOffline(ctx context.Context, forumID, userID int64) error {
	return storeError(t.store.Remove(ctx, forumID, userID))
}

// Evict drops the record of a user who left or was removed
func (t *Tracker) Evict(ctx context.Context, forumID, userID int64) error {
	return t.MarkOffline(ctx, forumID, userID)
}

func (t *Tracker) cutoff() time.Time {
	return t.clock.Now().Add(-t.ttl)
}

// OnlineCount counts records within the TTL
func (t *Tracker) OnlineCount(ctx context.Context, forumID int64) (int, error) {
	count, err := t.store.Count(ctx, forumID, t.cutoff())
	return count, storeError(err)
}

// OnlineUsers lists the online user ids in ascending order
func (t *Tracker) OnlineUsers(ctx context.Context, forumID int64) ([]int64, error) {
	users, err := t.store.Users(ctx, forumID, t.cutoff())
	if err != nil {
		return nil, storeError(err)
	}
	sort.Slice(users, func(i, j int) bool { return users[i] < users[j] })
	return users, nil
}

// Sweep reaps stale records. Reads never depend on it.
func (t *Tracker) Sweep(ctx context.Context) (int, error) {
	removed, err := t.store.Sweep(ctx, t.cutoff())
	return removed, storeError(err)
}

// PurgeForum drops every record of a deleted forum
func (t *Tracker) PurgeForum(ctx context.Context, forumID int64) error {
	return storeError(t.store.DeleteForum(ctx, forumID))
}
