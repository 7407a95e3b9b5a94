package user

import (
	"context"
	"strings"
	"time"

	"github.com/fkhayef/forumcore/internal/role"
	"github.com/fkhayef/forumcore/pkg/apperror"
)

// Common errors
var (
	ErrUserNotFound      = apperror.New(apperror.KindNotFound, "user not found")
	ErrEmailAlreadyInUse = apperror.New(apperror.KindConflict, "email already in use")
)

const directoryName = "user directory"

// Service is the read side of the identity collaborator. Every call is
// bounded by the upstream timeout; store failures surface as transient.
type Service struct {
	repo    Store
	timeout time.Duration
}

// NewService creates a new user service with repository dependency injected
func NewService(repo Store, timeout time.Duration) *Service {
	return &Service{repo: repo, timeout: timeout}
}

// Create registers a directory entry
func (s *Service) Create(ctx context.Context, req *CreateUserRequest) (*User, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if n := len(req.Username); n < 3 || n > 50 {
		return nil, apperror.Validation("username must be between 3 and 50 characters")
	}
	if !strings.Contains(req.Email, "@") {
		return nil, apperror.Validation("email is invalid")
	}
	switch req.SiteRole {
	case "":
		req.SiteRole = role.SiteUser
	case role.SiteUser, role.SiteAdmin:
	default:
		return nil, apperror.Validation("site_role must be user or admin")
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	existing, err := s.repo.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, apperror.FromUpstream(directoryName, err)
	}
	if existing != nil {
		return nil, ErrEmailAlreadyInUse
	}

	user, err := s.repo.Create(ctx, req)
	if err != nil {
		return nil, apperror.FromUpstream(directoryName, err)
	}
	return user, nil
}

// GetByID retrieves a user by their ID
func (s *Service) GetByID(ctx context.Context, id int64) (*User, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.FromUpstream(directoryName, err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// List retrieves all users with pagination
func (s *Service) List(ctx context.Context, page, perPage int) ([]*User, int, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	offset := (page - 1) * perPage
	users, total, err := s.repo.List(ctx, perPage, offset)
	if err != nil {
		return nil, 0, apperror.FromUpstream(directoryName, err)
	}
	return users, total, nil
}

// Search finds users by username fragment
func (s *Service) Search(ctx context.Context, query string, limit int) ([]*User, error) {
	if limit < 1 || limit > 100 {
		limit = 20
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	users, err := s.repo.Search(ctx, strings.TrimSpace(query), limit)
	if err != nil {
		return nil, apperror.FromUpstream(directoryName, err)
	}
	return users, nil
}
