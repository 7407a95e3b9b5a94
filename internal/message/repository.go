package message

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fkhayef/forumcore/internal/database"
)

// Repository handles message data persistence in Postgres
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new message repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

var _ Store = (*Repository)(nil)

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

const messageColumns = `
	id, forum_id, author_id, content, type, problem_id, parent_message_id,
	reply_count, is_pinned, is_deleted, edited, created_at, updated_at
`

// InForum locks the forum row for the duration of fn
func (r *Repository) InForum(ctx context.Context, forumID int64, fn func(tx Tx) error) error {
	return database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		found, err := database.LockForum(ctx, tx, forumID)
		if err != nil {
			return err
		}
		if !found {
			return ErrForumNotFound
		}
		return fn(&sqlTx{q: tx})
	})
}

func (r *Repository) Get(ctx context.Context, id int64) (*Message, error) {
	return getMessage(ctx, r.db, id)
}

// List returns one page in id order
func (r *Repository) List(ctx context.Context, q ListQuery) ([]*Message, error) {
	var query string
	args := []interface{}{q.ForumID, q.Limit}
	switch {
	case q.Order == OrderDesc && q.Cursor > 0:
		query = `SELECT ` + messageColumns + ` FROM forum_messages WHERE forum_id = $1 AND id < $3 ORDER BY id DESC LIMIT $2`
		args = append(args, q.Cursor)
	case q.Order == OrderDesc:
		query = `SELECT ` + messageColumns + ` FROM forum_messages WHERE forum_id = $1 ORDER BY id DESC LIMIT $2`
	default:
		query = `SELECT ` + messageColumns + ` FROM forum_messages WHERE forum_id = $1 AND id > $3 ORDER BY id ASC LIMIT $2`
		args = append(args, q.Cursor)
	}
	return r.query(ctx, query, args...)
}

func (r *Repository) Replies(ctx context.Context, parentID int64, limit int) ([]*Message, error) {
	query := `SELECT ` + messageColumns + ` FROM forum_messages WHERE parent_message_id = $1 ORDER BY id ASC LIMIT $2`
	return r.query(ctx, query, parentID, limit)
}

func (r *Repository) Pinned(ctx context.Context, forumID int64) (*Message, error) {
	return getPinned(ctx, r.db, forumID)
}

func (r *Repository) DeleteForum(ctx context.Context, forumID int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM forum_messages WHERE forum_id = $1`, forumID); err != nil {
		return fmt.Errorf("failed to delete forum messages: %w", err)
	}
	return nil
}

func (r *Repository) query(ctx context.Context, query string, args ...interface{}) ([]*Message, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	var messages []*Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, m)
	}

	return messages, rows.Err()
}

type sqlTx struct {
	q queryer
}

func (tx *sqlTx) Get(ctx context.Context, id int64) (*Message, error) {
	return getMessage(ctx, tx.q, id)
}

func (tx *sqlTx) Pinned(ctx context.Context, forumID int64) (*Message, error) {
	return getPinned(ctx, tx.q, forumID)
}

func (tx *sqlTx) Insert(ctx context.Context, m *Message) error {
	query := `
		INSERT INTO forum_messages (forum_id, author_id, content, type, problem_id, parent_message_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`
	err := tx.q.QueryRowContext(ctx, query,
		m.ForumID, m.AuthorID, m.Content, m.Type, m.ProblemID, m.ParentMessageID, m.CreatedAt, m.UpdatedAt,
	).Scan(&m.ID)
	if err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}
	return nil
}

func (tx *sqlTx) Update(ctx context.Context, m *Message) error {
	query := `
		UPDATE forum_messages
		SET content = $2, is_pinned = $3, is_deleted = $4, edited = $5, updated_at = $6
		WHERE id = $1
	`
	result, err := tx.q.ExecContext(ctx, query, m.ID, m.Content, m.IsPinned, m.IsDeleted, m.Edited, m.UpdatedAt)
	if err != nil {
		if database.IsUniqueViolation(err, "uq_forum_messages_pinned") {
			return ErrPinConflict
		}
		return fmt.Errorf("failed to update message: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return ErrMessageNotFound
	}
	return nil
}

// AdjustReplyCount never lets the counter go below zero
func (tx *sqlTx) AdjustReplyCount(ctx context.Context, id int64, delta int) error {
	query := `UPDATE forum_messages SET reply_count = GREATEST(reply_count + $2, 0) WHERE id = $1`
	if _, err := tx.q.ExecContext(ctx, query, id, delta); err != nil {
		return fmt.Errorf("failed to update reply count: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMessage(row rowScanner) (*Message, error) {
	m := &Message{}
	err := row.Scan(
		&m.ID,
		&m.ForumID,
		&m.AuthorID,
		&m.Content,
		&m.Type,
		&m.ProblemID,
		&m.ParentMessageID,
		&m.ReplyCount,
		&m.IsPinned,
		&m.IsDeleted,
		&m.Edited,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	return m, err
}

func getMessage(ctx context.Context, q queryer, id int64) (*Message, error) {
	query := `SELECT ` + messageColumns + ` FROM forum_messages WHERE id = $1`
	m, err := scanMessage(q.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get message: %w", err)
	}
	return m, nil
}

func getPinned(ctx context.Context, q queryer, forumID int64) (*Message, error) {
	query := `SELECT ` + messageColumns + ` FROM forum_messages WHERE forum_id = $1 AND is_pinned AND NOT is_deleted`
	m, err := scanMessage(q.QueryRowContext(ctx, query, forumID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get pinned message: %w", err)
	}
	return m, nil
}
