package forum

import (
	"context"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/fkhayef/forumcore/internal/clock"
	"github.com/fkhayef/forumcore/internal/membership"
	"github.com/fkhayef/forumcore/internal/role"
	"github.com/fkhayef/forumcore/pkg/apperror"
)

const (
	maxTitleLength       = 120
	maxDescriptionLength = 2000
	maxMembersLimit      = 10000
)

// Membership is what forum lifecycle needs from the membership service
type Membership interface {
	AddCreator(ctx context.Context, forumID, creatorID int64) error
	Access(ctx context.Context, p role.Principal, forumID int64) (*membership.Access, error)
	RequireReader(ctx context.Context, p role.Principal, forumID int64) (*membership.Access, error)
	CountActive(ctx context.Context, forumID int64) (int, error)
}

// Purger drops a deleted forum's state from a store that is not covered
// by the SQL cascade
type Purger interface {
	PurgeForum(ctx context.Context, forumID int64) error
}

// Service handles forum business logic
type Service struct {
	store             Store
	members           Membership
	purgers           []Purger
	defaultMaxMembers int
	clock             clock.Clock
	logger            *slog.Logger
}

// NewService creates a new forum service
func NewService(store Store, members Membership, defaultMaxMembers int, clk clock.Clock, logger *slog.Logger, purgers ...Purger) *Service {
	return &Service{
		store:             store,
		members:           members,
		purgers:           purgers,
		defaultMaxMembers: defaultMaxMembers,
		clock:             clk,
		logger:            logger,
	}
}

// Create creates a forum and adds the caller as its creator
func (s *Service) Create(ctx context.Context, p role.Principal, req *CreateForumRequest) (*Forum, error) {
	title := strings.TrimSpace(req.Title)
	if err := validateTitle(title); err != nil {
		return nil, err
	}
	if utf8.RuneCountInString(req.Description) > maxDescriptionLength {
		return nil, apperror.Validation("description is too long")
	}
	maxMembers := req.MaxMembers
	if maxMembers == 0 {
		maxMembers = s.defaultMaxMembers
	}
	if maxMembers < 1 || maxMembers > maxMembersLimit {
		return nil, apperror.Newf(apperror.KindValidation, "max_members must be between 1 and %d", maxMembersLimit)
	}

	now := s.clock.Now().UTC()
	f := &Forum{
		Title:       title,
		Description: req.Description,
		IsPrivate:   req.IsPrivate,
		MaxMembers:  maxMembers,
		CreatorID:   p.UserID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.Create(ctx, f); err != nil {
		return nil, err
	}

	if err := s.members.AddCreator(ctx, f.ID, p.UserID); err != nil {
		// Undo the forum so no creatorless forum survives
		if _, delErr := s.store.Delete(ctx, f.ID); delErr != nil {
			s.logger.Error("failed to remove forum after creator insert failed",
				"forum_id", f.ID, "error", delErr)
		}
		return nil, err
	}

	f.MemberCount = 1
	s.logger.Info("forum created", "forum_id", f.ID, "creator_id", p.UserID, "private", f.IsPrivate)
	return f, nil
}

// Get returns a forum the caller may read, with its member count and the
// caller's role
func (s *Service) Get(ctx context.Context, p role.Principal, id int64) (*Forum, role.Role, error) {
	access, err := s.members.RequireReader(ctx, p, id)
	if err != nil {
		return nil, "", err
	}

	f, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if f == nil {
		return nil, "", membership.ErrForumNotFound
	}
	if f.MemberCount, err = s.members.CountActive(ctx, id); err != nil {
		return nil, "", err
	}
	return f, access.Actor.Role(), nil
}

// List retrieves public forums with pagination
func (s *Service) List(ctx context.Context, page, perPage int) ([]*Forum, int, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	offset := (page - 1) * perPage
	forums, total, err := s.store.ListPublic(ctx, perPage, offset)
	if err != nil {
		return nil, 0, err
	}
	for _, f := range forums {
		if f.MemberCount, err = s.members.CountActive(ctx, f.ID); err != nil {
			return nil, 0, err
		}
	}
	return forums, total, nil
}

// Update modifies a forum. Only the creator or a site admin may do so, and
// max_members can never drop below the active member count.
func (s *Service) Update(ctx context.Context, p role.Principal, id int64, req *UpdateForumRequest) (*Forum, error) {
	access, err := s.members.Access(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if !access.Actor.Can(role.PermManageForum) {
		return nil, membership.ErrPermissionDenied
	}

	var count int
	updated, err := s.store.Update(ctx, id, func(f *Forum, activeMembers int) error {
		count = activeMembers
		if req.Title != nil {
			title := strings.TrimSpace(*req.Title)
			if err := validateTitle(title); err != nil {
				return err
			}
			f.Title = title
		}
		if req.Description != nil {
			if utf8.RuneCountInString(*req.Description) > maxDescriptionLength {
				return apperror.Validation("description is too long")
			}
			f.Description = *req.Description
		}
		if req.IsPrivate != nil {
			f.IsPrivate = *req.IsPrivate
		}

		if req.MaxMembers != nil {
			if *req.MaxMembers < 1 || *req.MaxMembers > maxMembersLimit {
				return apperror.Newf(apperror.KindValidation, "max_members must be between 1 and %d", maxMembersLimit)
			}
			if *req.MaxMembers < count {
				return apperror.Newf(apperror.KindValidation, "max_members cannot be below the current member count (%d)", count)
			}
			f.MaxMembers = *req.MaxMembers
		}
		f.UpdatedAt = s.clock.Now().UTC()
		return nil
	})
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, membership.ErrForumNotFound
	}

	updated.MemberCount = count
	return updated, nil
}

// Delete removes a forum and everything it owns
func (s *Service) Delete(ctx context.Context, p role.Principal, id int64) error {
	access, err := s.members.Access(ctx, p, id)
	if err != nil {
		return err
	}
	if !access.Actor.Can(role.PermManageForum) {
		return membership.ErrPermissionDenied
	}

	deleted, err := s.store.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return membership.ErrForumNotFound
	}

	for _, purger := range s.purgers {
		if err := purger.PurgeForum(ctx, id); err != nil {
			s.logger.Error("failed to purge forum state", "forum_id", id, "error", err)
		}
	}

	s.logger.Info("forum deleted", "forum_id", id, "deleted_by", p.UserID)
	return nil
}

func validateTitle(title string) error {
	if title == "" {
		return apperror.Validation("title is required")
	}
	if utf8.RuneCountInString(title) > maxTitleLength {
		return apperror.Newf(apperror.KindValidation, "title must be at most %d characters", maxTitleLength)
	}
	return nil
}
