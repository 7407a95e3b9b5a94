package message

import (
	"context"
	"sort"
	"sync"

	"github.com/fkhayef/forumcore/internal/database"
)

// Store is the persistence contract for messages
type Store interface {
	// InForum runs fn inside the forum's critical section. Writes made
	// through tx commit together or not at all.
	InForum(ctx context.Context, forumID int64, fn func(tx Tx) error) error
	Get(ctx context.Context, id int64) (*Message, error)
	List(ctx context.Context, q ListQuery) ([]*Message, error)
	Replies(ctx context.Context, parentID int64, limit int) ([]*Message, error)
	Pinned(ctx context.Context, forumID int64) (*Message, error)
	DeleteForum(ctx context.Context, forumID int64) error
}

// Tx is the view of the store inside a forum critical section
type Tx interface {
	Get(ctx context.Context, id int64) (*Message, error)
	Pinned(ctx context.Context, forumID int64) (*Message, error)
	// Insert assigns the next id and stores m
	Insert(ctx context.Context, m *Message) error
	// Update writes content, flags and updated_at
	Update(ctx context.Context, m *Message) error
	AdjustReplyCount(ctx context.Context, id int64, delta int) error
}

// MemoryStore keeps messages in process memory
type MemoryStore struct {
	locks *database.ForumLocks

	mu       sync.RWMutex
	nextID   int64
	messages map[int64]*Message
	byForum  map[int64][]int64 // ascending ids
}

// NewMemoryStore creates an in-memory store sharing the forum locks
func NewMemoryStore(locks *database.ForumLocks) *MemoryStore {
	return &MemoryStore{
		locks:    locks,
		messages: make(map[int64]*Message),
		byForum:  make(map[int64][]int64),
	}
}

var _ Store = (*MemoryStore)(nil)

func (s *MemoryStore) InForum(ctx context.Context, forumID int64, fn func(tx Tx) error) error {
	unlock := s.locks.Lock(forumID)
	defer unlock()

	tx := &memoryTx{store: s, forumID: forumID, pending: make(map[int64]*Message)}
	if err := fn(tx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range tx.inserted {
		s.byForum[forumID] = append(s.byForum[forumID], id)
	}
	for id, m := range tx.pending {
		s.messages[id] = m
	}
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id int64) (*Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.messages[id]
	if !ok {
		return nil, nil
	}
	copied := *m
	return &copied, nil
}

func (s *MemoryStore) List(ctx context.Context, q ListQuery) ([]*Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.byForum[q.ForumID]
	var page []*Message
	if q.Order == OrderDesc {
		end := len(ids)
		if q.Cursor > 0 {
			end = sort.Search(len(ids), func(i int) bool { return ids[i] >= q.Cursor })
		}
		for i := end - 1; i >= 0 && len(page) < q.Limit; i-- {
			copied := *s.messages[ids[i]]
			page = append(page, &copied)
		}
		return page, nil
	}

	start := sort.Search(len(ids), func(i int) bool { return ids[i] > q.Cursor })
	for i := start; i < len(ids) && len(page) < q.Limit; i++ {
		copied := *s.messages[ids[i]]
		page = append(page, &copied)
	}
	return page, nil
}

func (s *MemoryStore) Replies(ctx context.Context, parentID int64, limit int) ([]*Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	parent, ok := s.messages[parentID]
	if !ok {
		return nil, nil
	}
	var replies []*Message
	for _, id := range s.byForum[parent.ForumID] {
		if len(replies) >= limit {
			break
		}
		m := s.messages[id]
		if m.ParentMessageID != nil && *m.ParentMessageID == parentID {
			copied := *m
			replies = append(replies, &copied)
		}
	}
	return replies, nil
}

func (s *MemoryStore) Pinned(ctx context.Context, forumID int64) (*Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, id := range s.byForum[forumID] {
		if m := s.messages[id]; m.IsPinned && !m.IsDeleted {
			copied := *m
			return &copied, nil
		}
	}
	return nil, nil
}

func (s *MemoryStore) DeleteForum(ctx context.Context, forumID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range s.byForum[forumID] {
		delete(s.messages, id)
	}
	delete(s.byForum, forumID)
	return nil
}

// memoryTx buffers writes until the critical section commits
type memoryTx struct {
	store    *MemoryStore
	forumID  int64
	pending  map[int64]*Message
	inserted []int64
}

func (tx *memoryTx) Get(ctx context.Context, id int64) (*Message, error) {
	if m, ok := tx.pending[id]; ok {
		copied := *m
		return &copied, nil
	}
	return tx.store.Get(ctx, id)
}

func (tx *memoryTx) Pinned(ctx context.Context, forumID int64) (*Message, error) {
	for _, m := range tx.pending {
		if m.ForumID == forumID && m.IsPinned && !m.IsDeleted {
			copied := *m
			return &copied, nil
		}
	}

	tx.store.mu.RLock()
	defer tx.store.mu.RUnlock()
	for _, id := range tx.store.byForum[forumID] {
		if _, overridden := tx.pending[id]; overridden {
			continue
		}
		if m := tx.store.messages[id]; m.IsPinned && !m.IsDeleted {
			copied := *m
			return &copied, nil
		}
	}
	return nil, nil
}

func (tx *memoryTx) Insert(ctx context.Context, m *Message) error {
	tx.store.mu.Lock()
	tx.store.nextID++
	m.ID = tx.store.nextID
	tx.store.mu.Unlock()

	copied := *m
	tx.pending[m.ID] = &copied
	tx.inserted = append(tx.inserted, m.ID)
	return nil
}

func (tx *memoryTx) Update(ctx context.Context, m *Message) error {
	current, err := tx.Get(ctx, m.ID)
	if err != nil {
		return err
	}
	if current == nil {
		return ErrMessageNotFound
	}
	current.Content = m.Content
	current.IsPinned = m.IsPinned
	current.IsDeleted = m.IsDeleted
	current.Edited = m.Edited
	current.UpdatedAt = m.UpdatedAt
	tx.pending[m.ID] = current
	return nil
}

func (tx *memoryTx) AdjustReplyCount(ctx context.Context, id int64, delta int) error {
	current, err := tx.Get(ctx, id)
	if err != nil {
		return err
	}
	if current == nil {
		return ErrMessageNotFound
	}
	current.ReplyCount += delta
	if current.ReplyCount < 0 {
		current.ReplyCount = 0
	}
	tx.pending[id] = current
	return nil
}
