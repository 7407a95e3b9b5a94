package membership

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fkhayef/forumcore/internal/database"
)

// Repository handles member data persistence in Postgres
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new membership repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

var _ Store = (*Repository)(nil)

// queryer is satisfied by both *sql.DB and *sql.Tx
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// InForum locks the forum row for the duration of fn. The locked row is
// what tx.Forum returns, so fn never needs a second connection.
func (r *Repository) InForum(ctx context.Context, forumID int64, fn func(tx Tx) error) error {
	return database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		info, err := lockForum(ctx, tx, forumID)
		if err != nil {
			return err
		}
		return fn(&sqlTx{q: tx, forum: info})
	})
}

func lockForum(ctx context.Context, q queryer, forumID int64) (*ForumInfo, error) {
	query := `
		SELECT id, title, creator_id, is_private, max_members
		FROM forums
		WHERE id = $1
		FOR UPDATE
	`

	info := &ForumInfo{}
	err := q.QueryRowContext(ctx, query, forumID).Scan(
		&info.ID,
		&info.Title,
		&info.CreatorID,
		&info.IsPrivate,
		&info.MaxMembers,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrForumNotFound
		}
		return nil, fmt.Errorf("failed to lock forum: %w", err)
	}
	return info, nil
}

func (r *Repository) Get(ctx context.Context, forumID, userID int64) (*Member, error) {
	return getMember(ctx, r.db, forumID, userID)
}

// List returns the selected rows with usernames from the directory mirror
func (r *Repository) List(ctx context.Context, forumID int64, filter Filter) ([]*Member, error) {
	query := `
		SELECT fm.forum_id, fm.user_id, fm.role, fm.is_active, fm.is_banned, fm.banned_by,
		       fm.joined_at, fm.updated_at, COALESCE(u.username, '')
		FROM forum_members fm
		LEFT JOIN users u ON u.id = fm.user_id
		WHERE fm.forum_id = $1
	`
	if filter == FilterBanned {
		query += ` AND fm.is_banned`
	} else {
		query += ` AND fm.is_active`
	}
	query += ` ORDER BY fm.joined_at, fm.user_id`

	rows, err := r.db.QueryContext(ctx, query, forumID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	var members []*Member
	for rows.Next() {
		m := &Member{}
		if err := rows.Scan(
			&m.ForumID,
			&m.UserID,
			&m.Role,
			&m.IsActive,
			&m.IsBanned,
			&m.BannedBy,
			&m.JoinedAt,
			&m.UpdatedAt,
			&m.Username,
		); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, m)
	}

	return members, rows.Err()
}

func (r *Repository) CountActive(ctx context.Context, forumID int64) (int, error) {
	return countActive(ctx, r.db, forumID)
}

func (r *Repository) DeleteForum(ctx context.Context, forumID int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM forum_members WHERE forum_id = $1`, forumID); err != nil {
		return fmt.Errorf("failed to delete forum members: %w", err)
	}
	return nil
}

type sqlTx struct {
	q     queryer
	forum *ForumInfo
}

func (tx *sqlTx) Forum(ctx context.Context, forumID int64) (*ForumInfo, error) {
	if tx.forum == nil || tx.forum.ID != forumID {
		return nil, ErrForumNotFound
	}
	copied := *tx.forum
	return &copied, nil
}

func (tx *sqlTx) Get(ctx context.Context, forumID, userID int64) (*Member, error) {
	return getMember(ctx, tx.q, forumID, userID)
}

func (tx *sqlTx) CountActive(ctx context.Context, forumID int64) (int, error) {
	return countActive(ctx, tx.q, forumID)
}

// Save upserts the row keyed by (forum_id, user_id)
func (tx *sqlTx) Save(ctx context.Context, m *Member) error {
	query := `
		INSERT INTO forum_members (forum_id, user_id, role, is_active, is_banned, banned_by, joined_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (forum_id, user_id) DO UPDATE
		SET role = EXCLUDED.role,
		    is_active = EXCLUDED.is_active,
		    is_banned = EXCLUDED.is_banned,
		    banned_by = EXCLUDED.banned_by,
		    joined_at = EXCLUDED.joined_at,
		    updated_at = EXCLUDED.updated_at
	`
	_, err := tx.q.ExecContext(ctx, query,
		m.ForumID, m.UserID, m.Role, m.IsActive, m.IsBanned, m.BannedBy, m.JoinedAt, m.UpdatedAt)
	if err != nil {
		if database.IsUniqueViolation(err, "uq_forum_members_creator") {
			return ErrRoleConflict
		}
		return fmt.Errorf("failed to save member: %w", err)
	}
	return nil
}

func getMember(ctx context.Context, q queryer, forumID, userID int64) (*Member, error) {
	query := `
		SELECT forum_id, user_id, role, is_active, is_banned, banned_by, joined_at, updated_at
		FROM forum_members
		WHERE forum_id = $1 AND user_id = $2
	`

	m := &Member{}
	err := q.QueryRowContext(ctx, query, forumID, userID).Scan(
		&m.ForumID,
		&m.UserID,
		&m.Role,
		&m.IsActive,
		&m.IsBanned,
		&m.BannedBy,
		&m.JoinedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get member: %w", err)
	}

	return m, nil
}

func countActive(ctx context.Context, q queryer, forumID int64) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM forum_members WHERE forum_id = $1 AND is_active`
	if err := q.QueryRowContext(ctx, query, forumID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count members: %w", err)
	}
	return count, nil
}
