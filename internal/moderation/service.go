package moderation

import (
	"context"
	"log/slog"

	"github.com/fkhayef/forumcore/internal/membership"
	"github.com/fkhayef/forumcore/internal/notification"
	"github.com/fkhayef/forumcore/internal/role"
)

// Members is the membership entry point moderation mutates through
type Members interface {
	ApplyToMember(ctx context.Context, p role.Principal, forumID, targetID int64, fn func(actor membership.Actor, target *membership.Member) error) (*membership.Member, error)
}

// Evictor drops a removed member's ephemeral state (presence, typing)
type Evictor interface {
	Evict(ctx context.Context, forumID, userID int64) error
}

// Notifier delivers notifications to moderated members
type Notifier interface {
	Notify(ctx context.Context, delivery notification.Delivery) error
}

// Service orchestrates moderation actions. It holds no state of its own.
type Service struct {
	members  Members
	forums   membership.ForumLookup
	notifier Notifier
	evictors []Evictor
	logger   *slog.Logger
}

// NewService creates a new moderation service
func NewService(members Members, forums membership.ForumLookup, notifier Notifier, logger *slog.Logger, evictors ...Evictor) *Service {
	return &Service{
		members:  members,
		forums:   forums,
		notifier: notifier,
		evictors: evictors,
		logger:   logger,
	}
}

// Kick deactivates the target; they may join again
func (s *Service) Kick(ctx context.Context, p role.Principal, forumID, targetID int64) (*membership.Member, error) {
	return s.act(ctx, p, forumID, targetID, ActionKick, "")
}

// Ban deactivates the target and blocks rejoining until Unban
func (s *Service) Ban(ctx context.Context, p role.Principal, forumID, targetID int64) (*membership.Member, error) {
	return s.act(ctx, p, forumID, targetID, ActionBan, "")
}

// Unban clears the ban; the user has to join again
func (s *Service) Unban(ctx context.Context, p role.Principal, forumID, targetID int64) (*membership.Member, error) {
	return s.act(ctx, p, forumID, targetID, ActionUnban, "")
}

// AssignRole sets an active member's role
func (s *Service) AssignRole(ctx context.Context, p role.Principal, forumID, targetID int64, newRole role.Role) (*membership.Member, error) {
	return s.act(ctx, p, forumID, targetID, ActionAssignRole, newRole)
}

func (s *Service) act(ctx context.Context, p role.Principal, forumID, targetID int64, action Action, newRole role.Role) (*membership.Member, error) {
	m, err := s.members.ApplyToMember(ctx, p, forumID, targetID, func(actor membership.Actor, target *membership.Member) error {
		if err := Authorize(actor, target, action, newRole); err != nil {
			return err
		}
		Apply(actor, target, action, newRole)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("moderation action",
		"action", action,
		"forum_id", forumID,
		"target_id", targetID,
		"by", p.UserID,
	)
	s.after(ctx, forumID, targetID, action, newRole)
	return m, nil
}

// after runs the side effects of a committed action. Failures are logged;
// the membership change already stands.
func (s *Service) after(ctx context.Context, forumID, targetID int64, action Action, newRole role.Role) {
	if action == ActionKick || action == ActionBan {
		for _, e := range s.evictors {
			if err := e.Evict(ctx, forumID, targetID); err != nil {
				s.logger.Warn("failed to evict member", "forum_id", forumID, "user_id", targetID, "error", err)
			}
		}
	}

	var title string
	if info, err := s.forums.Lookup(ctx, forumID); err == nil && info != nil {
		title = info.Title
	}

	var delivery notification.Delivery
	switch action {
	case ActionKick:
		delivery = notification.Kicked(targetID, title, forumID)
	case ActionBan:
		delivery = notification.Banned(targetID, title, forumID)
	case ActionAssignRole:
		delivery = notification.RoleChanged(targetID, title, forumID, string(newRole))
	default:
		return
	}
	if err := s.notifier.Notify(ctx, delivery); err != nil {
		s.logger.Warn("failed to notify member", "forum_id", forumID, "user_id", targetID, "error", err)
	}
}
