package forum

import (
	"context"
	"sort"
	"sync"

	"github.com/fkhayef/forumcore/internal/database"
)

// Store is the persistence contract for forums
type Store interface {
	Create(ctx context.Context, f *Forum) error
	GetByID(ctx context.Context, id int64) (*Forum, error)
	ListPublic(ctx context.Context, limit, offset int) ([]*Forum, int, error)
	// Update applies fn to the current row inside the forum critical
	// section, passing the active member count read in the same section.
	// It returns nil, nil when the forum does not exist.
	Update(ctx context.Context, id int64, fn func(f *Forum, activeMembers int) error) (*Forum, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

// MemberCounter counts a forum's active members
type MemberCounter interface {
	CountActive(ctx context.Context, forumID int64) (int, error)
}

// MemoryStore keeps forums in process memory
type MemoryStore struct {
	locks   *database.ForumLocks
	members MemberCounter

	mu     sync.RWMutex
	nextID int64
	forums map[int64]*Forum
}

// NewMemoryStore creates an in-memory store sharing the forum locks
func NewMemoryStore(locks *database.ForumLocks) *MemoryStore {
	return &MemoryStore{locks: locks, forums: make(map[int64]*Forum)}
}

var _ Store = (*MemoryStore)(nil)

// CountMembersWith sets the member store Update counts against. The member
// store is built from this one, so it cannot be a constructor argument.
func (s *MemoryStore) CountMembersWith(members MemberCounter) {
	s.members = members
}

func (s *MemoryStore) Create(ctx context.Context, f *Forum) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	f.ID = s.nextID
	copied := *f
	s.forums[f.ID] = &copied
	return nil
}

func (s *MemoryStore) GetByID(ctx context.Context, id int64) (*Forum, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, ok := s.forums[id]
	if !ok {
		return nil, nil
	}
	copied := *f
	return &copied, nil
}

func (s *MemoryStore) ListPublic(ctx context.Context, limit, offset int) ([]*Forum, int, error) {
	s.mu.RLock()
	var forums []*Forum
	for _, f := range s.forums {
		if !f.IsPrivate {
			copied := *f
			forums = append(forums, &copied)
		}
	}
	s.mu.RUnlock()

	// Newest first, matching the SQL ordering
	sort.Slice(forums, func(i, j int) bool { return forums[i].ID > forums[j].ID })

	total := len(forums)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return forums[offset:end], total, nil
}

func (s *MemoryStore) Update(ctx context.Context, id int64, fn func(f *Forum, activeMembers int) error) (*Forum, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	current, err := s.GetByID(ctx, id)
	if err != nil || current == nil {
		return nil, err
	}
	var count int
	if s.members != nil {
		if count, err = s.members.CountActive(ctx, id); err != nil {
			return nil, err
		}
	}
	if err := fn(current, count); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.forums[id]; !ok {
		return nil, nil
	}
	copied := *current
	s.forums[id] = &copied
	return current, nil
}

func (s *MemoryStore) Delete(ctx context.Context, id int64) (bool, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.forums[id]; !ok {
		return false, nil
	}
	delete(s.forums, id)
	return true, nil
}
