package ephemeral

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps entries in process memory
type MemoryStore struct {
	mu     sync.RWMutex
	forums map[int64]map[int64]time.Time
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{forums: make(map[int64]map[int64]time.Time)}
}

var _ Store = (*MemoryStore)(nil)

func (s *MemoryStore) Touch(ctx context.Context, forumID, userID int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, ok := s.forums[forumID]
	if !ok {
		users = make(map[int64]time.Time)
		s.forums[forumID] = users
	}
	users[userID] = at
	return nil
}

func (s *MemoryStore) Refresh(ctx context.Context, forumID, userID int64, at, cutoff time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users := s.forums[forumID]
	last, ok := users[userID]
	if !ok || !last.After(cutoff) {
		return false, nil
	}
	users[userID] = at
	return true, nil
}

func (s *MemoryStore) Remove(ctx context.Context, forumID, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	users := s.forums[forumID]
	delete(users, userID)
	if len(users) == 0 {
		delete(s.forums, forumID)
	}
	return nil
}

func (s *MemoryStore) Count(ctx context.Context, forumID int64, since time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, at := range s.forums[forumID] {
		if at.After(since) {
			count++
		}
	}
	return count, nil
}

func (s *MemoryStore) Users(ctx context.Context, forumID int64, since time.Time) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var users []int64
	for userID, at := range s.forums[forumID] {
		if at.After(since) {
			users = append(users, userID)
		}
	}
	return users, nil
}

func (s *MemoryStore) Sweep(ctx context.Context, before time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for forumID, users := range s.forums {
		for userID, at := range users {
			if !at.After(before) {
				delete(users, userID)
				removed++
			}
		}
		if len(users) == 0 {
			delete(s.forums, forumID)
		}
	}
	return removed, nil
}

func (s *MemoryStore) DeleteForum(ctx context.Context, forumID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.forums, forumID)
	return nil
}
