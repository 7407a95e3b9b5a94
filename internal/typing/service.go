package typing

import (
	"context"

	"github.com/fkhayef/forumcore/internal/membership"
	"github.com/fkhayef/forumcore/internal/role"
)

// Gate authorizes typing calls
type Gate interface {
	RequireReader(ctx context.Context, p role.Principal, forumID int64) (*membership.Access, error)
	RequireMember(ctx context.Context, p role.Principal, forumID int64) (*membership.Access, error)
}

// Service puts membership checks in front of the tracker
type Service struct {
	tracker *Tracker
	gate    Gate
}

// NewService creates a new typing service
func NewService(tracker *Tracker, gate Gate) *Service {
	return &Service{tracker: tracker, gate: gate}
}

// SetTyping records the caller's signal. Stopping needs no membership.
func (s *Service) SetTyping(ctx context.Context, p role.Principal, forumID int64, isTyping bool) error {
	if isTyping {
		if _, err := s.gate.RequireMember(ctx, p, forumID); err != nil {
			return err
		}
	}
	return s.tracker.SetTyping(ctx, forumID, p.UserID, isTyping)
}

// ListTyping lists everyone typing except the caller
func (s *Service) ListTyping(ctx context.Context, p role.Principal, forumID int64) ([]int64, error) {
	if _, err := s.gate.RequireReader(ctx, p, forumID); err != nil {
		return nil, err
	}
	return s.tracker.ListTyping(ctx, forumID, p.UserID)
}
