package membership

import (
	"context"
	"sync"

	"github.com/fkhayef/forumcore/internal/database"
)

// Store is the persistence contract for member rows
type Store interface {
	// InForum runs fn inside the forum's critical section. Changes made
	// through tx are applied atomically.
	InForum(ctx context.Context, forumID int64, fn func(tx Tx) error) error
	Get(ctx context.Context, forumID, userID int64) (*Member, error)
	List(ctx context.Context, forumID int64, filter Filter) ([]*Member, error)
	CountActive(ctx context.Context, forumID int64) (int, error)
	DeleteForum(ctx context.Context, forumID int64) error
}

// Tx is the view of the store inside a forum critical section. Every
// read made while the section is held goes through it.
type Tx interface {
	// Forum returns the locked forum, or ErrForumNotFound
	Forum(ctx context.Context, forumID int64) (*ForumInfo, error)
	Get(ctx context.Context, forumID, userID int64) (*Member, error)
	CountActive(ctx context.Context, forumID int64) (int, error)
	Save(ctx context.Context, m *Member) error
}

// MemoryStore keeps member rows in process memory
type MemoryStore struct {
	locks  *database.ForumLocks
	forums ForumLookup

	mu      sync.RWMutex
	members map[int64]map[int64]*Member
}

// NewMemoryStore creates an in-memory store. locks is shared with the
// other memory stores so forum critical sections line up; forums backs
// Tx.Forum.
func NewMemoryStore(locks *database.ForumLocks, forums ForumLookup) *MemoryStore {
	return &MemoryStore{locks: locks, forums: forums, members: make(map[int64]map[int64]*Member)}
}

var _ Store = (*MemoryStore)(nil)

// InForum applies fn's writes only when it succeeds
func (s *MemoryStore) InForum(ctx context.Context, forumID int64, fn func(tx Tx) error) error {
	unlock := s.locks.Lock(forumID)
	defer unlock()

	tx := &memoryTx{store: s, pending: make(map[int64]*Member)}
	if err := fn(tx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range tx.pending {
		forum, ok := s.members[m.ForumID]
		if !ok {
			forum = make(map[int64]*Member)
			s.members[m.ForumID] = forum
		}
		forum[m.UserID] = m
	}
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, forumID, userID int64) (*Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.members[forumID][userID]
	if !ok {
		return nil, nil
	}
	copied := *m
	return &copied, nil
}

func (s *MemoryStore) List(ctx context.Context, forumID int64, filter Filter) ([]*Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var members []*Member
	for _, m := range s.members[forumID] {
		if (filter == FilterActive && m.IsActive) || (filter == FilterBanned && m.IsBanned) {
			copied := *m
			members = append(members, &copied)
		}
	}
	return members, nil
}

func (s *MemoryStore) CountActive(ctx context.Context, forumID int64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.countActiveLocked(forumID), nil
}

func (s *MemoryStore) countActiveLocked(forumID int64) int {
	count := 0
	for _, m := range s.members[forumID] {
		if m.IsActive {
			count++
		}
	}
	return count
}

func (s *MemoryStore) DeleteForum(ctx context.Context, forumID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.members, forumID)
	return nil
}

// memoryTx buffers writes until the critical section commits
type memoryTx struct {
	store   *MemoryStore
	pending map[int64]*Member
}

func (tx *memoryTx) Forum(ctx context.Context, forumID int64) (*ForumInfo, error) {
	info, err := tx.store.forums.Lookup(ctx, forumID)
	if err != nil {
		return nil, err
	}
	if info == nil {
		return nil, ErrForumNotFound
	}
	return info, nil
}

func (tx *memoryTx) Get(ctx context.Context, forumID, userID int64) (*Member, error) {
	if m, ok := tx.pending[userID]; ok && m.ForumID == forumID {
		copied := *m
		return &copied, nil
	}
	return tx.store.Get(ctx, forumID, userID)
}

func (tx *memoryTx) CountActive(ctx context.Context, forumID int64) (int, error) {
	tx.store.mu.RLock()
	count := tx.store.countActiveLocked(forumID)
	for _, m := range tx.pending {
		if m.ForumID != forumID {
			continue
		}
		prev, existed := tx.store.members[forumID][m.UserID]
		wasActive := existed && prev.IsActive
		switch {
		case m.IsActive && !wasActive:
			count++
		case !m.IsActive && wasActive:
			count--
		}
	}
	tx.store.mu.RUnlock()
	return count, nil
}

func (tx *memoryTx) Save(ctx context.Context, m *Member) error {
	copied := *m
	tx.pending[m.UserID] = &copied
	return nil
}
