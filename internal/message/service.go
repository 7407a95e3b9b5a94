package message

import (
	"context"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/fkhayef/forumcore/internal/clock"
	"github.com/fkhayef/forumcore/internal/membership"
	"github.com/fkhayef/forumcore/internal/notification"
	"github.com/fkhayef/forumcore/internal/role"
	"github.com/fkhayef/forumcore/pkg/apperror"
)

const (
	DefaultMaxLength = 4000
	DefaultLimit     = 50
	MaxLimit         = 100
)

// Common errors
var (
	ErrForumNotFound    = membership.ErrForumNotFound
	ErrMessageNotFound  = apperror.New(apperror.KindNotFound, "message not found")
	ErrInvalidParent    = apperror.New(apperror.KindInvalidParent, "parent message is missing, deleted or in another forum")
	ErrPinConflict      = apperror.New(apperror.KindConflict, "another message was pinned concurrently")
	ErrPermissionDenied = apperror.New(apperror.KindPermissionDenied, "insufficient forum permissions")
	ErrNotAuthor        = apperror.New(apperror.KindPermissionDenied, "only the author can edit this message")
	ErrNotEditable      = apperror.New(apperror.KindValidation, "only text messages can be edited")
)

// Gate is the slice of the membership service messages are authorized by
type Gate interface {
	Access(ctx context.Context, p role.Principal, forumID int64) (*membership.Access, error)
	RequireReader(ctx context.Context, p role.Principal, forumID int64) (*membership.Access, error)
	RequireMember(ctx context.Context, p role.Principal, forumID int64) (*membership.Access, error)
	RoleOf(ctx context.Context, forumID, userID int64) (role.Role, error)
}

// Notifier tells authors about moderator removals
type Notifier interface {
	Notify(ctx context.Context, delivery notification.Delivery) error
}

// Service handles message business logic
type Service struct {
	store     Store
	gate      Gate
	notifier  Notifier
	maxLength int
	clock     clock.Clock
	logger    *slog.Logger
}

// NewService creates a new message service. A non-positive maxLength
// falls back to DefaultMaxLength.
func NewService(store Store, gate Gate, maxLength int, clk clock.Clock, logger *slog.Logger) *Service {
	if maxLength <= 0 {
		maxLength = DefaultMaxLength
	}
	return &Service{store: store, gate: gate, maxLength: maxLength, clock: clk, logger: logger}
}

// NotifyWith makes Delete notify authors whose message someone else removed
func (s *Service) NotifyWith(n Notifier) {
	s.notifier = n
}

// Post creates a message. The author check runs before the forum critical
// section; the parent check, the id assignment and the parent's counter
// update share it.
func (s *Service) Post(ctx context.Context, p role.Principal, forumID int64, req *CreateMessageRequest) (*Message, error) {
	m := &Message{
		ForumID:         forumID,
		AuthorID:        p.UserID,
		Type:            req.Type,
		Content:         req.Content,
		ProblemID:       req.ProblemID,
		ParentMessageID: req.ParentMessageID,
	}
	if m.Type == "" {
		m.Type = TypeText
	}
	if err := s.validate(m); err != nil {
		return nil, err
	}
	if _, err := s.gate.RequireMember(ctx, p, forumID); err != nil {
		return nil, err
	}

	err := s.store.InForum(ctx, forumID, func(tx Tx) error {
		if m.ParentMessageID != nil {
			parent, err := tx.Get(ctx, *m.ParentMessageID)
			if err != nil {
				return err
			}
			if parent == nil || parent.ForumID != forumID || parent.IsDeleted {
				return ErrInvalidParent
			}
		}

		now := s.clock.Now().UTC()
		m.CreatedAt = now
		m.UpdatedAt = now
		if err := tx.Insert(ctx, m); err != nil {
			return err
		}
		if m.ParentMessageID != nil {
			return tx.AdjustReplyCount(ctx, *m.ParentMessageID, 1)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("message posted", "forum_id", forumID, "message_id", m.ID, "author_id", p.UserID)
	return m, nil
}

func (s *Service) validate(m *Message) error {
	if !m.Type.Valid() {
		return apperror.Validation("type must be one of text, image, problem")
	}
	if utf8.RuneCountInString(m.Content) > s.maxLength {
		return apperror.Newf(apperror.KindValidation, "content exceeds %d characters", s.maxLength)
	}
	if m.Type != TypeProblem && m.ProblemID != nil {
		return apperror.Validation("problem_id is only allowed on problem messages")
	}
	if m.ParentMessageID != nil && *m.ParentMessageID <= 0 {
		return ErrInvalidParent
	}

	switch m.Type {
	case TypeText:
		if strings.TrimSpace(m.Content) == "" {
			return apperror.Validation("content is required")
		}
	case TypeImage:
		if strings.TrimSpace(m.Content) == "" {
			return apperror.Validation("image reference is required")
		}
	case TypeProblem:
		if m.ProblemID == nil || *m.ProblemID <= 0 {
			return apperror.Validation("problem_id is required for problem messages")
		}
	}
	return nil
}

// List returns one page of the forum's messages, tombstones included, and
// the cursor of the next page (zero when the page is the last one)
func (s *Service) List(ctx context.Context, p role.Principal, q ListQuery) ([]*Message, int64, error) {
	if _, err := s.gate.RequireReader(ctx, p, q.ForumID); err != nil {
		return nil, 0, err
	}
	if q.Order != OrderDesc {
		q.Order = OrderAsc
	}
	if q.Cursor < 0 {
		q.Cursor = 0
	}
	if q.Limit <= 0 {
		q.Limit = DefaultLimit
	}
	if q.Limit > MaxLimit {
		q.Limit = MaxLimit
	}

	messages, err := s.store.List(ctx, q)
	if err != nil {
		return nil, 0, err
	}

	var next int64
	if len(messages) == q.Limit {
		next = messages[len(messages)-1].ID
	}
	return messages, next, nil
}

// Get returns a message visible to the caller
func (s *Service) Get(ctx context.Context, p role.Principal, forumID, messageID int64) (*Message, error) {
	if _, err := s.gate.RequireReader(ctx, p, forumID); err != nil {
		return nil, err
	}
	return s.find(ctx, forumID, messageID)
}

func (s *Service) find(ctx context.Context, forumID, messageID int64) (*Message, error) {
	m, err := s.store.Get(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if m == nil || m.ForumID != forumID {
		return nil, ErrMessageNotFound
	}
	return m, nil
}

// ReplyCount reads the denormalised counter
func (s *Service) ReplyCount(ctx context.Context, p role.Principal, forumID, messageID int64) (int, error) {
	m, err := s.Get(ctx, p, forumID, messageID)
	if err != nil {
		return 0, err
	}
	return m.ReplyCount, nil
}

// Replies lists the direct replies of a message in id order
func (s *Service) Replies(ctx context.Context, p role.Principal, forumID, messageID int64, limit int) ([]*Message, error) {
	if _, err := s.Get(ctx, p, forumID, messageID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > MaxLimit {
		limit = MaxLimit
	}
	return s.store.Replies(ctx, messageID, limit)
}

// Pinned returns the forum's pinned message, or nil
func (s *Service) Pinned(ctx context.Context, p role.Principal, forumID int64) (*Message, error) {
	if _, err := s.gate.RequireReader(ctx, p, forumID); err != nil {
		return nil, err
	}
	return s.store.Pinned(ctx, forumID)
}

// Pin makes messageID the forum's only pinned message
func (s *Service) Pin(ctx context.Context, p role.Principal, forumID, messageID int64) (*Message, error) {
	access, err := s.gate.Access(ctx, p, forumID)
	if err != nil {
		return nil, err
	}
	if !access.Actor.Can(role.PermPin) {
		return nil, ErrPermissionDenied
	}

	var pinned *Message
	err = s.store.InForum(ctx, forumID, func(tx Tx) error {
		m, err := tx.Get(ctx, messageID)
		if err != nil {
			return err
		}
		if m == nil || m.ForumID != forumID || m.IsDeleted {
			return ErrMessageNotFound
		}
		if m.IsPinned {
			pinned = m
			return nil
		}

		now := s.clock.Now().UTC()
		current, err := tx.Pinned(ctx, forumID)
		if err != nil {
			return err
		}
		if current != nil {
			current.IsPinned = false
			current.UpdatedAt = now
			if err := tx.Update(ctx, current); err != nil {
				return err
			}
		}

		m.IsPinned = true
		m.UpdatedAt = now
		pinned = m
		return tx.Update(ctx, m)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("message pinned", "forum_id", forumID, "message_id", messageID, "by", p.UserID)
	return pinned, nil
}

// Unpin clears the forum's pin. It succeeds when nothing is pinned.
func (s *Service) Unpin(ctx context.Context, p role.Principal, forumID int64) error {
	access, err := s.gate.Access(ctx, p, forumID)
	if err != nil {
		return err
	}
	if !access.Actor.Can(role.PermUnpin) {
		return ErrPermissionDenied
	}

	return s.store.InForum(ctx, forumID, func(tx Tx) error {
		current, err := tx.Pinned(ctx, forumID)
		if err != nil || current == nil {
			return err
		}
		current.IsPinned = false
		current.UpdatedAt = s.clock.Now().UTC()
		return tx.Update(ctx, current)
	})
}

// Delete soft-deletes a message. Authors delete their own; otherwise the
// caller needs delete_any and must outrank the author. The author never
// changes, so permission is settled before the forum critical section.
func (s *Service) Delete(ctx context.Context, p role.Principal, forumID, messageID int64) error {
	access, err := s.gate.Access(ctx, p, forumID)
	if err != nil {
		return err
	}
	target, err := s.find(ctx, forumID, messageID)
	if err != nil {
		return err
	}
	if !s.canDelete(ctx, access.Actor, target) {
		return ErrPermissionDenied
	}

	removed := false
	err = s.store.InForum(ctx, forumID, func(tx Tx) error {
		m, err := tx.Get(ctx, messageID)
		if err != nil {
			return err
		}
		if m == nil || m.ForumID != forumID {
			return ErrMessageNotFound
		}
		if m.IsDeleted {
			return nil
		}

		removed = true
		m.IsDeleted = true
		m.IsPinned = false
		m.UpdatedAt = s.clock.Now().UTC()
		if err := tx.Update(ctx, m); err != nil {
			return err
		}
		if m.ParentMessageID != nil {
			return tx.AdjustReplyCount(ctx, *m.ParentMessageID, -1)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("message deleted", "forum_id", forumID, "message_id", messageID, "by", p.UserID)
	if removed && target.AuthorID != p.UserID && s.notifier != nil {
		var title string
		if access.Forum != nil {
			title = access.Forum.Title
		}
		if err := s.notifier.Notify(ctx, notification.MessageRemoved(target.AuthorID, title, forumID, messageID)); err != nil {
			s.logger.Warn("failed to notify author", "forum_id", forumID, "message_id", messageID, "error", err)
		}
	}
	return nil
}

func (s *Service) canDelete(ctx context.Context, actor membership.Actor, m *Message) bool {
	if m.AuthorID == actor.Principal.UserID && (actor.IsMember() || actor.Principal.IsAdmin()) {
		return true
	}
	if !actor.Can(role.PermDeleteAny) {
		return false
	}

	authorRole, err := s.gate.RoleOf(ctx, m.ForumID, m.AuthorID)
	if err != nil {
		s.logger.Warn("failed to resolve author role", "forum_id", m.ForumID, "author_id", m.AuthorID, "error", err)
		return false
	}
	if authorRole == "" {
		authorRole = role.Member
	}
	return actor.CanManage(authorRole)
}

// Edit replaces the content of the caller's own text message
func (s *Service) Edit(ctx context.Context, p role.Principal, forumID, messageID int64, content string) (*Message, error) {
	if strings.TrimSpace(content) == "" {
		return nil, apperror.Validation("content is required")
	}
	if utf8.RuneCountInString(content) > s.maxLength {
		return nil, apperror.Newf(apperror.KindValidation, "content exceeds %d characters", s.maxLength)
	}

	if _, err := s.gate.RequireMember(ctx, p, forumID); err != nil {
		return nil, err
	}

	var edited *Message
	err := s.store.InForum(ctx, forumID, func(tx Tx) error {
		m, err := tx.Get(ctx, messageID)
		if err != nil {
			return err
		}
		if m == nil || m.ForumID != forumID || m.IsDeleted {
			return ErrMessageNotFound
		}
		if m.AuthorID != p.UserID {
			return ErrNotAuthor
		}
		if m.Type != TypeText {
			return ErrNotEditable
		}

		m.Content = content
		m.Edited = true
		m.UpdatedAt = s.clock.Now().UTC()
		edited = m
		return tx.Update(ctx, m)
	})
	if err != nil {
		return nil, err
	}
	return edited, nil
}

// PurgeForum drops every message of a deleted forum
func (s *Service) PurgeForum(ctx context.Context, forumID int64) error {
	return s.store.DeleteForum(ctx, forumID)
}
