package notification

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Store is the persistence contract for notifications
type Store interface {
	// Create fills in n.ID and n.CreatedAt
	Create(ctx context.Context, n *Notification) error
	GetByID(ctx context.Context, id int64) (*Notification, error)
	// List returns newest first with the total matching f
	List(ctx context.Context, recipientID int64, f Filter) ([]*Notification, int, error)
	MarkAsRead(ctx context.Context, id int64) error
	// MarkAllAsRead is limited to one forum unless forumID is 0
	MarkAllAsRead(ctx context.Context, recipientID, forumID int64) error
	// UnreadByForum keys notices without a forum under 0
	UnreadByForum(ctx context.Context, recipientID int64) (map[int64]int, error)
	DeleteForum(ctx context.Context, forumID int64) error
}

// MemoryStore keeps notifications in process memory
type MemoryStore struct {
	mu            sync.RWMutex
	nextID        int64
	notifications map[int64]*Notification
	now           func() time.Time
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore(now func() time.Time) *MemoryStore {
	return &MemoryStore{notifications: make(map[int64]*Notification), now: now}
}

var _ Store = (*MemoryStore)(nil)

func (s *MemoryStore) Create(ctx context.Context, n *Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	n.ID = s.nextID
	n.CreatedAt = s.now().UTC()
	copied := *n
	s.notifications[n.ID] = &copied
	return nil
}

func (s *MemoryStore) GetByID(ctx context.Context, id int64) (*Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.notifications[id]
	if !ok {
		return nil, nil
	}
	copied := *n
	return &copied, nil
}

func (s *MemoryStore) List(ctx context.Context, recipientID int64, f Filter) ([]*Notification, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*Notification
	for _, n := range s.notifications {
		if n.RecipientID != recipientID || !f.matches(n) {
			continue
		}
		copied := *n
		matched = append(matched, &copied)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID > matched[j].ID })

	total := len(matched)
	if f.Offset >= total {
		return nil, total, nil
	}
	end := f.Offset + f.Limit
	if end > total {
		end = total
	}
	return matched[f.Offset:end], total, nil
}

func (s *MemoryStore) MarkAsRead(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n, ok := s.notifications[id]; ok {
		n.IsRead = true
	}
	return nil
}

func (s *MemoryStore) MarkAllAsRead(ctx context.Context, recipientID, forumID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f := Filter{ForumID: forumID}
	for _, n := range s.notifications {
		if n.RecipientID == recipientID && f.matches(n) {
			n.IsRead = true
		}
	}
	return nil
}

func (s *MemoryStore) UnreadByForum(ctx context.Context, recipientID int64) (map[int64]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[int64]int)
	for _, n := range s.notifications {
		if n.RecipientID != recipientID || n.IsRead {
			continue
		}
		var forumID int64
		if n.ForumID != nil {
			forumID = *n.ForumID
		}
		counts[forumID]++
	}
	return counts, nil
}

func (s *MemoryStore) DeleteForum(ctx context.Context, forumID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, n := range s.notifications {
		if n.ForumID != nil && *n.ForumID == forumID {
			delete(s.notifications, id)
		}
	}
	return nil
}
