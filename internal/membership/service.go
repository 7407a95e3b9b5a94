package membership

import (
	"context"
	"log/slog"
	"sort"

	"github.com/fkhayef/forumcore/internal/clock"
	"github.com/fkhayef/forumcore/internal/role"
	"github.com/fkhayef/forumcore/pkg/apperror"
)

// Common errors
var (
	ErrForumNotFound      = apperror.New(apperror.KindNotFound, "forum not found")
	ErrMemberNotFound     = apperror.New(apperror.KindNotFound, "member not found")
	ErrNotMember          = apperror.New(apperror.KindNotMember, "not a member of this forum")
	ErrAlreadyMember      = apperror.New(apperror.KindAlreadyMember, "already a member of this forum")
	ErrBanned             = apperror.New(apperror.KindBanned, "banned from this forum")
	ErrCapacityExceeded   = apperror.New(apperror.KindCapacityExceeded, "forum is full")
	ErrCreatorCannotLeave = apperror.New(apperror.KindCreatorCannotLeave, "the creator cannot leave their forum")
	ErrInvitationRequired = apperror.New(apperror.KindPermissionDenied, "this forum is private; an invitation is required")
	ErrPermissionDenied   = apperror.New(apperror.KindPermissionDenied, "insufficient forum permissions")
	ErrRoleConflict       = apperror.New(apperror.KindConflict, "concurrent role change rejected")
)

// ForumLookup resolves the forum fields membership rules need. It returns
// nil, nil when the forum does not exist.
type ForumLookup interface {
	Lookup(ctx context.Context, forumID int64) (*ForumInfo, error)
}

// Evictor drops the presence or typing state of a user who left
type Evictor interface {
	Evict(ctx context.Context, forumID, userID int64) error
}

// Service owns member rows. It is the only writer of role and ban state.
type Service struct {
	store    Store
	forums   ForumLookup
	clock    clock.Clock
	logger   *slog.Logger
	evictors []Evictor
}

// NewService creates a new membership service. evictors run after a
// member leaves.
func NewService(store Store, forums ForumLookup, clk clock.Clock, logger *slog.Logger, evictors ...Evictor) *Service {
	return &Service{store: store, forums: forums, clock: clk, logger: logger, evictors: evictors}
}

func (s *Service) forum(ctx context.Context, forumID int64) (*ForumInfo, error) {
	info, err := s.forums.Lookup(ctx, forumID)
	if err != nil {
		return nil, err
	}
	if info == nil {
		return nil, ErrForumNotFound
	}
	return info, nil
}

// Access resolves the forum and the caller's row in it
func (s *Service) Access(ctx context.Context, p role.Principal, forumID int64) (*Access, error) {
	info, err := s.forum(ctx, forumID)
	if err != nil {
		return nil, err
	}
	m, err := s.store.Get(ctx, forumID, p.UserID)
	if err != nil {
		return nil, err
	}
	return &Access{Forum: info, Actor: Actor{Principal: p, Member: m}}, nil
}

// RequireReader allows anyone not banned to read a public forum and only
// active members to read a private one. Site admins read everything.
func (s *Service) RequireReader(ctx context.Context, p role.Principal, forumID int64) (*Access, error) {
	access, err := s.Access(ctx, p, forumID)
	if err != nil {
		return nil, err
	}
	if p.IsAdmin() || access.Actor.IsMember() {
		return access, nil
	}
	if access.Actor.IsBanned() {
		return nil, ErrBanned
	}
	if access.Forum.IsPrivate {
		return nil, ErrNotMember
	}
	return access, nil
}

// RequireMember requires an active row. Content is always attributed to a
// member, so site admins get no bypass here.
func (s *Service) RequireMember(ctx context.Context, p role.Principal, forumID int64) (*Access, error) {
	access, err := s.Access(ctx, p, forumID)
	if err != nil {
		return nil, err
	}
	if access.Actor.IsMember() {
		return access, nil
	}
	if access.Actor.IsBanned() {
		return nil, ErrBanned
	}
	return nil, ErrNotMember
}

// Join adds the caller to a public forum. Private forums are joined by
// accepting an invitation; site admins may join directly.
func (s *Service) Join(ctx context.Context, p role.Principal, forumID int64) (*Member, error) {
	return s.join(ctx, forumID, p.UserID, p.IsAdmin())
}

// JoinInvited joins on behalf of a user holding an invitation
func (s *Service) JoinInvited(ctx context.Context, forumID, userID int64) (*Member, error) {
	return s.join(ctx, forumID, userID, true)
}

func (s *Service) join(ctx context.Context, forumID, userID int64, invited bool) (*Member, error) {
	var joined *Member
	err := s.store.InForum(ctx, forumID, func(tx Tx) error {
		info, err := tx.Forum(ctx, forumID)
		if err != nil {
			return err
		}

		existing, err := tx.Get(ctx, forumID, userID)
		if err != nil {
			return err
		}
		if existing != nil && existing.IsActive {
			return ErrAlreadyMember
		}
		if existing != nil && existing.IsBanned {
			return ErrBanned
		}
		if info.IsPrivate && !invited {
			return ErrInvitationRequired
		}

		count, err := tx.CountActive(ctx, forumID)
		if err != nil {
			return err
		}
		if count >= info.MaxMembers {
			return ErrCapacityExceeded
		}

		now := s.clock.Now().UTC()
		joined = &Member{
			ForumID:   forumID,
			UserID:    userID,
			Role:      role.Member,
			IsActive:  true,
			JoinedAt:  now,
			UpdatedAt: now,
		}
		return tx.Save(ctx, joined)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("member joined", "forum_id", forumID, "user_id", userID)
	return joined, nil
}

// Leave deactivates the caller's row
func (s *Service) Leave(ctx context.Context, forumID, userID int64) error {
	err := s.store.InForum(ctx, forumID, func(tx Tx) error {
		m, err := tx.Get(ctx, forumID, userID)
		if err != nil {
			return err
		}
		if m == nil || !m.IsActive {
			return ErrNotMember
		}
		if m.Role == role.Creator {
			return ErrCreatorCannotLeave
		}

		m.IsActive = false
		m.UpdatedAt = s.clock.Now().UTC()
		return tx.Save(ctx, m)
	})
	if err != nil {
		return err
	}

	for _, e := range s.evictors {
		if err := e.Evict(ctx, forumID, userID); err != nil {
			s.logger.Warn("failed to evict departed member", "forum_id", forumID, "user_id", userID, "error", err)
		}
	}

	s.logger.Info("member left", "forum_id", forumID, "user_id", userID)
	return nil
}

// AddCreator inserts the creator row of a freshly created forum
func (s *Service) AddCreator(ctx context.Context, forumID, creatorID int64) error {
	return s.store.InForum(ctx, forumID, func(tx Tx) error {
		now := s.clock.Now().UTC()
		return tx.Save(ctx, &Member{
			ForumID:   forumID,
			UserID:    creatorID,
			Role:      role.Creator,
			IsActive:  true,
			JoinedAt:  now,
			UpdatedAt: now,
		})
	})
}

// ApplyToMember runs fn against the current actor and target rows inside
// the forum critical section and saves the target when fn succeeds. This
// is how role and ban state change.
func (s *Service) ApplyToMember(ctx context.Context, p role.Principal, forumID, targetID int64, fn func(actor Actor, target *Member) error) (*Member, error) {
	var updated *Member
	err := s.store.InForum(ctx, forumID, func(tx Tx) error {
		if _, err := tx.Forum(ctx, forumID); err != nil {
			return err
		}

		actorRow, err := tx.Get(ctx, forumID, p.UserID)
		if err != nil {
			return err
		}
		target, err := tx.Get(ctx, forumID, targetID)
		if err != nil {
			return err
		}
		if target == nil {
			return ErrMemberNotFound
		}

		if err := fn(Actor{Principal: p, Member: actorRow}, target); err != nil {
			return err
		}
		target.UpdatedAt = s.clock.Now().UTC()
		updated = target
		return tx.Save(ctx, target)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Get returns the user's row in the forum, or nil
func (s *Service) Get(ctx context.Context, forumID, userID int64) (*Member, error) {
	return s.store.Get(ctx, forumID, userID)
}

// RoleOf returns the role recorded on the user's row, active or not, and
// an empty role when there is no row
func (s *Service) RoleOf(ctx context.Context, forumID, userID int64) (role.Role, error) {
	m, err := s.store.Get(ctx, forumID, userID)
	if err != nil || m == nil {
		return "", err
	}
	return m.Role, nil
}

// CountActive returns the number of active members
func (s *Service) CountActive(ctx context.Context, forumID int64) (int, error) {
	return s.store.CountActive(ctx, forumID)
}

// Members lists active members, highest role first
func (s *Service) Members(ctx context.Context, p role.Principal, forumID int64) ([]*Member, error) {
	if _, err := s.RequireReader(ctx, p, forumID); err != nil {
		return nil, err
	}
	members, err := s.store.List(ctx, forumID, FilterActive)
	if err != nil {
		return nil, err
	}
	sortMembers(members)
	return members, nil
}

// BannedMembers lists banned rows. Only roles that may ban can see them.
func (s *Service) BannedMembers(ctx context.Context, p role.Principal, forumID int64) ([]*Member, error) {
	access, err := s.Access(ctx, p, forumID)
	if err != nil {
		return nil, err
	}
	if !access.Actor.Can(role.PermBan) {
		return nil, ErrPermissionDenied
	}
	members, err := s.store.List(ctx, forumID, FilterBanned)
	if err != nil {
		return nil, err
	}
	sortMembers(members)
	return members, nil
}

// PurgeForum removes every row of a deleted forum
func (s *Service) PurgeForum(ctx context.Context, forumID int64) error {
	return s.store.DeleteForum(ctx, forumID)
}

func sortMembers(members []*Member) {
	sort.SliceStable(members, func(i, j int) bool {
		a, b := members[i], members[j]
		if a.Role != b.Role {
			return a.Role.Outranks(b.Role)
		}
		if !a.JoinedAt.Equal(b.JoinedAt) {
			return a.JoinedAt.Before(b.JoinedAt)
		}
		return a.UserID < b.UserID
	})
}
