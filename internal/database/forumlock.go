package database

import "sync"

// ForumLocks is the in-process counterpart of LockForum. Memory stores
// that share one ForumLocks serialize changes per forum; different forums
// never contend.
type ForumLocks struct {
	mu    sync.Mutex
	locks map[int64]*forumLock
}

type forumLock struct {
	mu   sync.Mutex
	refs int
}

// NewForumLocks creates an empty lock table
func NewForumLocks() *ForumLocks {
	return &ForumLocks{locks: make(map[int64]*forumLock)}
}

// Lock blocks until the forum's lock is held and returns its release func
func (l *ForumLocks) Lock(forumID int64) (unlock func()) {
	l.mu.Lock()
	fl, ok := l.locks[forumID]
	if !ok {
		fl = &forumLock{}
		l.locks[forumID] = fl
	}
	fl.refs++
	l.mu.Unlock()

	fl.mu.Lock()
	return func() {
		fl.mu.Unlock()
		l.mu.Lock()
		fl.refs--
		if fl.refs == 0 {
			delete(l.locks, forumID)
		}
		l.mu.Unlock()
	}
}
