package notification

import (
	"context"
	"database/sql"
	"fmt"
)

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// Repository handles notification persistence in Postgres
type Repository struct {
	db queryer
}

// NewRepository creates a new notification repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

var _ Store = (*Repository)(nil)

const notificationColumns = `id, recipient_id, kind, forum_id, message, is_read, related_entity_type, related_entity_id, created_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanNotification(row rowScanner) (*Notification, error) {
	n := &Notification{}
	var entityType sql.NullString
	err := row.Scan(
		&n.ID,
		&n.RecipientID,
		&n.Kind,
		&n.ForumID,
		&n.Message,
		&n.IsRead,
		&entityType,
		&n.RelatedEntityID,
		&n.CreatedAt,
	)
	if entityType.Valid {
		t := EntityType(entityType.String)
		n.RelatedEntityType = &t
	}
	return n, err
}

// forumFilter appends the forum clause of f as parameter next
func forumFilter(query string, args []interface{}, f Filter) (string, []interface{}) {
	if f.ForumID != 0 {
		args = append(args, f.ForumID)
		query += fmt.Sprintf(` AND forum_id = $%d`, len(args))
	}
	if f.UnreadOnly {
		query += ` AND NOT is_read`
	}
	return query, args
}

// Create inserts n and fills in its ID and creation time
func (r *Repository) Create(ctx context.Context, n *Notification) error {
	query := `
		INSERT INTO notifications (recipient_id, kind, forum_id, message, related_entity_type, related_entity_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`

	var entityType interface{}
	if n.RelatedEntityType != nil {
		entityType = string(*n.RelatedEntityType)
	}
	err := r.db.QueryRowContext(ctx, query,
		n.RecipientID, string(n.Kind), n.ForumID, n.Message, entityType, n.RelatedEntityID,
	).Scan(&n.ID, &n.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

// GetByID retrieves a notification by its ID
func (r *Repository) GetByID(ctx context.Context, id int64) (*Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE id = $1`

	n, err := scanNotification(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get notification: %w", err)
	}
	return n, nil
}

// List retrieves a recipient's notifications, newest first
func (r *Repository) List(ctx context.Context, recipientID int64, f Filter) ([]*Notification, int, error) {
	where, args := forumFilter(` WHERE recipient_id = $1`, []interface{}{recipientID}, f)

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM notifications`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count notifications: %w", err)
	}

	args = append(args, f.Limit, f.Offset)
	query := `SELECT ` + notificationColumns + ` FROM notifications` + where +
		fmt.Sprintf(` ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	var notifications []*Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan notification: %w", err)
		}
		notifications = append(notifications, n)
	}
	return notifications, total, rows.Err()
}

// MarkAsRead marks a notification as read
func (r *Repository) MarkAsRead(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE notifications SET is_read = true WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to mark notification as read: %w", err)
	}
	return nil
}

// MarkAllAsRead marks a recipient's unread notifications as read
func (r *Repository) MarkAllAsRead(ctx context.Context, recipientID, forumID int64) error {
	query, args := forumFilter(`UPDATE notifications SET is_read = true WHERE recipient_id = $1`,
		[]interface{}{recipientID}, Filter{ForumID: forumID, UnreadOnly: true})
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to mark all notifications as read: %w", err)
	}
	return nil
}

// UnreadByForum counts a recipient's unread notifications per forum
func (r *Repository) UnreadByForum(ctx context.Context, recipientID int64) (map[int64]int, error) {
	query := `
		SELECT COALESCE(forum_id, 0), COUNT(*)
		FROM notifications
		WHERE recipient_id = $1 AND NOT is_read
		GROUP BY 1
	`

	rows, err := r.db.QueryContext(ctx, query, recipientID)
	if err != nil {
		return nil, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	defer rows.Close()

	counts := make(map[int64]int)
	for rows.Next() {
		var forumID int64
		var count int
		if err := rows.Scan(&forumID, &count); err != nil {
			return nil, fmt.Errorf("failed to scan unread count: %w", err)
		}
		counts[forumID] = count
	}
	return counts, rows.Err()
}

// DeleteForum removes every notification of a deleted forum
func (r *Repository) DeleteForum(ctx context.Context, forumID int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM notifications WHERE forum_id = $1`, forumID); err != nil {
		return fmt.Errorf("failed to delete forum notifications: %w", err)
	}
	return nil
}
