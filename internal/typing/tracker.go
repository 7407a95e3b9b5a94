// Package typing tracks who is composing a message. A signal expires on
// its own after the typing TTL; an explicit stop removes it at once.
// Nothing here survives a restart.
package typing

import (
	"context"
	"sort"
	"time"

	"github.com/fkhayef/forumcore/internal/clock"
	"github.com/fkhayef/forumcore/internal/ephemeral"
	"github.com/fkhayef/forumcore/pkg/apperror"
)

// DefaultTTL covers a 3s client re-signal
const DefaultTTL = 4 * time.Second

// Tracker records typing signals. It performs no authorization.
type Tracker struct {
	store ephemeral.Store
	ttl   time.Duration
	clock clock.Clock
}

// NewTracker creates a tracker over store
func NewTracker(store ephemeral.Store, ttl time.Duration, clk clock.Clock) *Tracker {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Tracker{store: store, ttl: ttl, clock: clk}
}

func storeError(err error) error {
	if err == nil {
		return nil
	}
	return apperror.Transient("typing store", err)
}

// SetTyping starts or refreshes the signal, or clears it when isTyping is
// false
func (t *Tracker) SetTyping(ctx context.Context, forumID, userID int64, isTyping bool) error {
	if !isTyping {
		return storeError(t.store.Remove(ctx, forumID, userID))
	}
	return storeError(t.store.Touch(ctx, forumID, userID, t.clock.Now()))
}

// ListTyping returns the users typing in the forum in ascending id order.
// A non-zero excludeUserID is left out.
func (t *Tracker) ListTyping(ctx context.Context, forumID, excludeUserID int64) ([]int64, error) {
	users, err := t.store.Users(ctx, forumID, t.clock.Now().Add(-t.ttl))
	if err != nil {
		return nil, storeError(err)
	}

	typing := make([]int64, 0, len(users))
	for _, id := range users {
		if id != excludeUserID {
			typing = append(typing, id)
		}
	}
	sort.Slice(typing, func(i, j int) bool { return typing[i] < typing[j] })
	return typing, nil
}

// Evict drops the signal of a user who left or was removed
func (t *Tracker) Evict(ctx context.Context, forumID, userID int64) error {
	return storeError(t.store.Remove(ctx, forumID, userID))
}

// Sweep reaps expired signals
func (t *Tracker) Sweep(ctx context.Context) (int, error) {
	removed, err := t.store.Sweep(ctx, t.clock.Now().Add(-t.ttl))
	return removed, storeError(err)
}

// PurgeForum drops every signal of a deleted forum
func (t *Tracker) PurgeForum(ctx context.Context, forumID int64) error {
	return storeError(t.store.DeleteForum(ctx, forumID))
}
