package invitation

import (
	"context"
	"sort"
	"sync"

	"github.com/fkhayef/forumcore/internal/database"
)

// Store is the persistence contract for invitations
type Store interface {
	// InForum runs fn inside the forum's critical section
	InForum(ctx context.Context, forumID int64, fn func(tx Tx) error) error
	Get(ctx context.Context, id int64) (*Invitation, error)
	// ListByInvitee returns the user's invitations, newest first
	ListByInvitee(ctx context.Context, inviteeID int64) ([]*Invitation, error)
	PendingInvitees(ctx context.Context, forumID int64) ([]int64, error)
	DeleteForum(ctx context.Context, forumID int64) error
}

// Tx is the view of the store inside a forum critical section
type Tx interface {
	Get(ctx context.Context, id int64) (*Invitation, error)
	Pending(ctx context.Context, forumID, inviteeID int64) (*Invitation, error)
	Insert(ctx context.Context, inv *Invitation) error
	// Respond writes status and responded_at
	Respond(ctx context.Context, inv *Invitation) error
}

// MemoryStore keeps invitations in process memory
type MemoryStore struct {
	locks *database.ForumLocks

	mu          sync.RWMutex
	nextID      int64
	invitations map[int64]*Invitation
}

// NewMemoryStore creates an in-memory store sharing the forum locks
func NewMemoryStore(locks *database.ForumLocks) *MemoryStore {
	return &MemoryStore{locks: locks, invitations: make(map[int64]*Invitation)}
}

var _ Store = (*MemoryStore)(nil)

// InForum applies writes directly; every write is the last step of fn, so
// a failing fn has nothing to roll back
func (s *MemoryStore) InForum(ctx context.Context, forumID int64, fn func(tx Tx) error) error {
	unlock := s.locks.Lock(forumID)
	defer unlock()
	return fn(memoryTx{s})
}

func (s *MemoryStore) Get(ctx context.Context, id int64) (*Invitation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inv, ok := s.invitations[id]
	if !ok {
		return nil, nil
	}
	copied := *inv
	return &copied, nil
}

func (s *MemoryStore) ListByInvitee(ctx context.Context, inviteeID int64) ([]*Invitation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var invitations []*Invitation
	for _, inv := range s.invitations {
		if inv.InviteeID == inviteeID {
			copied := *inv
			invitations = append(invitations, &copied)
		}
	}
	sort.Slice(invitations, func(i, j int) bool { return invitations[i].ID > invitations[j].ID })
	return invitations, nil
}

func (s *MemoryStore) PendingInvitees(ctx context.Context, forumID int64) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var invitees []int64
	for _, inv := range s.invitations {
		if inv.ForumID == forumID && inv.Status == StatusPending {
			invitees = append(invitees, inv.InviteeID)
		}
	}
	return invitees, nil
}

func (s *MemoryStore) DeleteForum(ctx context.Context, forumID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, inv := range s.invitations {
		if inv.ForumID == forumID {
			delete(s.invitations, id)
		}
	}
	return nil
}

type memoryTx struct {
	store *MemoryStore
}

func (tx memoryTx) Get(ctx context.Context, id int64) (*Invitation, error) {
	return tx.store.Get(ctx, id)
}

func (tx memoryTx) Pending(ctx context.Context, forumID, inviteeID int64) (*Invitation, error) {
	tx.store.mu.RLock()
	defer tx.store.mu.RUnlock()

	for _, inv := range tx.store.invitations {
		if inv.ForumID == forumID && inv.InviteeID == inviteeID && inv.Status == StatusPending {
			copied := *inv
			return &copied, nil
		}
	}
	return nil, nil
}

func (tx memoryTx) Insert(ctx context.Context, inv *Invitation) error {
	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()

	tx.store.nextID++
	inv.ID = tx.store.nextID
	copied := *inv
	tx.store.invitations[inv.ID] = &copied
	return nil
}

func (tx memoryTx) Respond(ctx context.Context, inv *Invitation) error {
	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()

	current, ok := tx.store.invitations[inv.ID]
	if !ok {
		return ErrInvitationNotFound
	}
	current.Status = inv.Status
	current.RespondedAt = inv.RespondedAt
	return nil
}
