// Package ephemeral stores per-forum (user, last signal) pairs for the
// presence and typing trackers. Entries are trusted only by timestamp:
// readers pass the cutoff and stale entries are invisible whether or not
// a sweep has reaped them yet.
package ephemeral

import (
	"context"
	"time"
)

// Store is a last-write-wins timestamp table keyed by (forum, user)
type Store interface {
	// Touch upserts the entry
	Touch(ctx context.Context, forumID, userID int64, at time.Time) error
	// Refresh moves an entry newer than cutoff to at and reports whether
	// one existed. A stale entry is left for Sweep and reported missing.
	Refresh(ctx context.Context, forumID, userID int64, at, cutoff time.Time) (bool, error)
	// Remove deletes the entry. Removing a missing entry is not an error.
	Remove(ctx context.Context, forumID, userID int64) error
	// Count returns the number of entries newer than since
	Count(ctx context.Context, forumID int64, since time.Time) (int, error)
	// Users returns the users whose entries are newer than since, in no
	// particular order
	Users(ctx context.Context, forumID int64, since time.Time) ([]int64, error)
	// Sweep removes entries not newer than before across all forums and
	// returns how many were removed
	Sweep(ctx context.Context, before time.Time) (int, error)
	// DeleteForum drops every entry of the forum
	DeleteForum(ctx context.Context, forumID int64) error
}
