package user

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// Store is the persistence contract for the user directory
type Store interface {
	Create(ctx context.Context, req *CreateUserRequest) (*User, error)
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context, limit, offset int) ([]*User, int, error)
	Search(ctx context.Context, query string, limit int) ([]*User, error)
}

// MemoryStore keeps the directory in process memory
type MemoryStore struct {
	mu     sync.RWMutex
	nextID int64
	users  map[int64]*User
	now    func() time.Time
}

// NewMemoryStore creates an empty in-memory directory
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: make(map[int64]*User), now: time.Now}
}

var _ Store = (*MemoryStore)(nil)

func (s *MemoryStore) Create(ctx context.Context, req *CreateUserRequest) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	u := &User{
		ID:        s.nextID,
		Username:  req.Username,
		Email:     req.Email,
		AvatarURL: req.AvatarURL,
		SiteRole:  req.SiteRole,
		CreatedAt: s.now().UTC(),
	}
	s.users[u.ID] = u
	copied := *u
	return &copied, nil
}

func (s *MemoryStore) GetByID(ctx context.Context, id int64) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	copied := *u
	return &copied, nil
}

func (s *MemoryStore) GetByEmail(ctx context.Context, email string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			copied := *u
			return &copied, nil
		}
	}
	return nil, nil
}

func (s *MemoryStore) List(ctx context.Context, limit, offset int) ([]*User, int, error) {
	all := s.sorted(func(*User) bool { return true })
	total := len(all)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (s *MemoryStore) Search(ctx context.Context, query string, limit int) ([]*User, error) {
	query = strings.ToLower(query)
	matches := s.sorted(func(u *User) bool {
		return strings.Contains(strings.ToLower(u.Username), query)
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// sorted returns copies of the matching users ordered by id
func (s *MemoryStore) sorted(match func(*User) bool) []*User {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var users []*User
	for _, u := range s.users {
		if match(u) {
			copied := *u
			users = append(users, &copied)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users
}
