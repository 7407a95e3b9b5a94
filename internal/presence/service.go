package presence

import (
	"context"

	"github.com/fkhayef/forumcore/internal/membership"
	"github.com/fkhayef/forumcore/internal/role"
)

// Gate authorizes presence calls
type Gate interface {
	RequireReader(ctx context.Context, p role.Principal, forumID int64) (*membership.Access, error)
	RequireMember(ctx context.Context, p role.Principal, forumID int64) (*membership.Access, error)
}

// Service puts membership checks in front of the tracker. Only active
// members announce presence; anyone who can read the forum sees it.
type Service struct {
	tracker *Tracker
	gate    Gate
}

// NewService creates a new presence service
func NewService(tracker *Tracker, gate Gate) *Service {
	return &Service{tracker: tracker, gate: gate}
}

func (s *Service) MarkOnline(ctx context.Context, p role.Principal, forumID int64) error {
	if _, err := s.gate.RequireMember(ctx, p, forumID); err != nil {
		return err
	}
	return s.tracker.MarkOnline(ctx, forumID, p.UserID)
}

func (s *Service) Heartbeat(ctx context.Context, p role.Principal, forumID int64) (bool, error) {
	if _, err := s.gate.RequireMember(ctx, p, forumID); err != nil {
		return false, err
	}
	return s.tracker.Heartbeat(ctx, forumID, p.UserID)
}

// MarkOffline needs no membership: a user who just left or was kicked
// may still clear their own record
func (s *Service) MarkOffline(ctx context.Context, p role.Principal, forumID int64) error {
	return s.tracker.MarkOffline(ctx, forumID, p.UserID)
}

func (s *Service) OnlineCount(ctx context.Context, p role.Principal, forumID int64) (int, error) {
	if _, err := s.gate.RequireReader(ctx, p, forumID); err != nil {
		return 0, err
	}
	return s.tracker.OnlineCount(ctx, forumID)
}

func (s *Service) OnlineUsers(ctx context.Context, p role.Principal, forumID int64) ([]int64, error) {
	if _, err := s.gate.RequireReader(ctx, p, forumID); err != nil {
		return nil, err
	}
	return s.tracker.OnlineUsers(ctx, forumID)
}
