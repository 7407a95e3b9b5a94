package invitation

import (
	"context"
	"errors"
	"log/slog"

	"github.com/fkhayef/forumcore/internal/clock"
	"github.com/fkhayef/forumcore/internal/membership"
	"github.com/fkhayef/forumcore/internal/notification"
	"github.com/fkhayef/forumcore/internal/role"
	"github.com/fkhayef/forumcore/internal/user"
	"github.com/fkhayef/forumcore/pkg/apperror"
)

// Common errors
var (
	ErrForumNotFound      = membership.ErrForumNotFound
	ErrInvitationNotFound = apperror.New(apperror.KindNotFound, "invitation not found")
	ErrAlreadyInvited     = apperror.New(apperror.KindConflict, "user already has a pending invitation to this forum")
	ErrNotPending         = apperror.New(apperror.KindConflict, "invitation has already been answered")
	ErrPermissionDenied   = apperror.New(apperror.KindPermissionDenied, "insufficient forum permissions")
)

// searchWindow is how many directory matches InvitableUsers filters from
const searchWindow = 100

// Directory is the user directory collaborator
type Directory interface {
	GetByID(ctx context.Context, id int64) (*user.User, error)
	Search(ctx context.Context, query string, limit int) ([]*user.User, error)
}

// Members is what invitations need from the membership service
type Members interface {
	RequireMember(ctx context.Context, p role.Principal, forumID int64) (*membership.Access, error)
	Get(ctx context.Context, forumID, userID int64) (*membership.Member, error)
	JoinInvited(ctx context.Context, forumID, userID int64) (*membership.Member, error)
}

// Notifier delivers the invitation to the invitee
type Notifier interface {
	Notify(ctx context.Context, delivery notification.Delivery) error
}

// Service handles invitation business logic
type Service struct {
	store     Store
	members   Members
	forums    membership.ForumLookup
	directory Directory
	notifier  Notifier
	clock     clock.Clock
	logger    *slog.Logger
}

// NewService creates a new invitation service
func NewService(store Store, members Members, forums membership.ForumLookup, directory Directory, notifier Notifier, clk clock.Clock, logger *slog.Logger) *Service {
	return &Service{
		store:     store,
		members:   members,
		forums:    forums,
		directory: directory,
		notifier:  notifier,
		clock:     clk,
		logger:    logger,
	}
}

// Invite creates a pending invitation from an active member
func (s *Service) Invite(ctx context.Context, p role.Principal, forumID, inviteeID int64) (*Invitation, error) {
	access, err := s.members.RequireMember(ctx, p, forumID)
	if err != nil {
		return nil, err
	}
	if !access.Actor.Can(role.PermInvite) {
		return nil, ErrPermissionDenied
	}
	if _, err := s.directory.GetByID(ctx, inviteeID); err != nil {
		return nil, err
	}

	m, err := s.members.Get(ctx, forumID, inviteeID)
	if err != nil {
		return nil, err
	}
	if m != nil && m.IsActive {
		return nil, membership.ErrAlreadyMember
	}
	if m != nil && m.IsBanned {
		return nil, membership.ErrBanned
	}

	inv := &Invitation{
		ForumID:    forumID,
		InviterID:  p.UserID,
		InviteeID:  inviteeID,
		Status:     StatusPending,
		ForumTitle: access.Forum.Title,
	}
	err = s.store.InForum(ctx, forumID, func(tx Tx) error {
		pending, err := tx.Pending(ctx, forumID, inviteeID)
		if err != nil {
			return err
		}
		if pending != nil {
			return ErrAlreadyInvited
		}

		inv.CreatedAt = s.clock.Now().UTC()
		return tx.Insert(ctx, inv)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("invitation created", "forum_id", forumID, "invitation_id", inv.ID, "invitee_id", inviteeID)
	if err := s.notifier.Notify(ctx, notification.Invited(inviteeID, inv.ForumTitle, forumID, inv.ID)); err != nil {
		s.logger.Warn("failed to notify invitee", "invitation_id", inv.ID, "error", err)
	}
	return inv, nil
}

// InvitableUsers lists directory users matching query who are neither
// members, banned, nor already invited
func (s *Service) InvitableUsers(ctx context.Context, p role.Principal, forumID int64, query string, limit int) ([]*user.User, error) {
	if _, err := s.members.RequireMember(ctx, p, forumID); err != nil {
		return nil, err
	}
	if limit < 1 || limit > searchWindow {
		limit = 20
	}

	candidates, err := s.directory.Search(ctx, query, searchWindow)
	if err != nil {
		return nil, err
	}
	pending, err := s.store.PendingInvitees(ctx, forumID)
	if err != nil {
		return nil, err
	}
	invited := make(map[int64]bool, len(pending))
	for _, id := range pending {
		invited[id] = true
	}

	users := make([]*user.User, 0, limit)
	for _, u := range candidates {
		if len(users) == limit {
			break
		}
		if invited[u.ID] {
			continue
		}
		m, err := s.members.Get(ctx, forumID, u.ID)
		if err != nil {
			return nil, err
		}
		if m != nil && (m.IsActive || m.IsBanned) {
			continue
		}
		users = append(users, u)
	}
	return users, nil
}

// Accept joins the forum on the invitee's behalf and closes the
// invitation. Membership rules (ban, capacity) still apply.
func (s *Service) Accept(ctx context.Context, p role.Principal, invitationID int64) (*Invitation, error) {
	inv, err := s.pending(ctx, p, invitationID)
	if err != nil {
		return nil, err
	}

	if _, err := s.members.JoinInvited(ctx, inv.ForumID, p.UserID); err != nil && !errors.Is(err, membership.ErrAlreadyMember) {
		return nil, err
	}

	inv, err = s.respond(ctx, inv, StatusAccepted)
	if err != nil {
		return nil, err
	}
	s.logger.Info("invitation accepted", "forum_id", inv.ForumID, "invitation_id", inv.ID, "user_id", p.UserID)
	return inv, nil
}

// Decline closes the invitation without joining
func (s *Service) Decline(ctx context.Context, p role.Principal, invitationID int64) (*Invitation, error) {
	inv, err := s.pending(ctx, p, invitationID)
	if err != nil {
		return nil, err
	}
	return s.respond(ctx, inv, StatusDeclined)
}

// pending returns the caller's own pending invitation. Other users'
// invitations are reported as missing.
func (s *Service) pending(ctx context.Context, p role.Principal, invitationID int64) (*Invitation, error) {
	inv, err := s.store.Get(ctx, invitationID)
	if err != nil {
		return nil, err
	}
	if inv == nil || inv.InviteeID != p.UserID {
		return nil, ErrInvitationNotFound
	}
	if inv.Status != StatusPending {
		return nil, ErrNotPending
	}
	return inv, nil
}

func (s *Service) respond(ctx context.Context, inv *Invitation, status Status) (*Invitation, error) {
	var answered *Invitation
	err := s.store.InForum(ctx, inv.ForumID, func(tx Tx) error {
		current, err := tx.Get(ctx, inv.ID)
		if err != nil {
			return err
		}
		if current == nil {
			return ErrInvitationNotFound
		}
		if current.Status != StatusPending {
			return ErrNotPending
		}

		now := s.clock.Now().UTC()
		current.Status = status
		current.RespondedAt = &now
		answered = current
		return tx.Respond(ctx, current)
	})
	if err != nil {
		return nil, err
	}
	return answered, nil
}

// Mine lists the caller's invitations, newest first
func (s *Service) Mine(ctx context.Context, p role.Principal) ([]*Invitation, error) {
	invitations, err := s.store.ListByInvitee(ctx, p.UserID)
	if err != nil {
		return nil, err
	}
	for _, inv := range invitations {
		if inv.ForumTitle != "" {
			continue
		}
		if info, err := s.forums.Lookup(ctx, inv.ForumID); err == nil && info != nil {
			inv.ForumTitle = info.Title
		}
	}
	return invitations, nil
}

// PurgeForum drops every invitation of a deleted forum
func (s *Service) PurgeForum(ctx context.Context, forumID int64) error {
	return s.store.DeleteForum(ctx, forumID)
}
