package notification

import (
	"context"

	"github.com/fkhayef/forumcore/pkg/apperror"
)

// Common errors
var (
	ErrNotificationNotFound = apperror.New(apperror.KindNotFound, "notification not found")
	ErrNotRecipient         = apperror.New(apperror.KindPermissionDenied, "not the recipient of this notification")
)

// Service handles notification business logic
type Service struct {
	store Store
}

// NewService creates a new notification service
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Deliver stores a queued delivery
func (s *Service) Deliver(ctx context.Context, d Delivery) (*Notification, error) {
	n := d.Notification()
	if err := s.store.Create(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

// GetByID retrieves a notification by its ID
func (s *Service) GetByID(ctx context.Context, id int64) (*Notification, error) {
	notification, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if notification == nil {
		return nil, ErrNotificationNotFound
	}
	return notification, nil
}

// List pages through a recipient's notifications. A non-zero forumID keeps
// only that forum's notices.
func (s *Service) List(ctx context.Context, recipientID, forumID int64, page, perPage int, unreadOnly bool) ([]*Notification, int, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	return s.store.List(ctx, recipientID, Filter{
		ForumID:    forumID,
		UnreadOnly: unreadOnly,
		Limit:      perPage,
		Offset:     (page - 1) * perPage,
	})
}

// MarkAsRead marks a notification as read
func (s *Service) MarkAsRead(ctx context.Context, id, userID int64) error {
	notification, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if notification.RecipientID != userID {
		return ErrNotRecipient
	}

	return s.store.MarkAsRead(ctx, id)
}

// MarkAllAsRead marks a user's notifications as read, within one forum
// when forumID is non-zero
func (s *Service) MarkAllAsRead(ctx context.Context, userID, forumID int64) error {
	return s.store.MarkAllAsRead(ctx, userID, forumID)
}

// UnreadCounts returns the user's unread total and its split per forum
func (s *Service) UnreadCounts(ctx context.Context, userID int64) (int, map[int64]int, error) {
	byForum, err := s.store.UnreadByForum(ctx, userID)
	if err != nil {
		return 0, nil, err
	}
	total := 0
	for _, count := range byForum {
		total += count
	}
	return total, byForum, nil
}

// PurgeForum drops every notification of a deleted forum
func (s *Service) PurgeForum(ctx context.Context, forumID int64) error {
	return s.store.DeleteForum(ctx, forumID)
}
