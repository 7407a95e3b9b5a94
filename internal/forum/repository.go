package forum

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fkhayef/forumcore/internal/database"
)

// Repository handles forum data persistence
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new forum repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

var _ Store = (*Repository)(nil)

const forumColumns = `id, title, description, is_private, max_members, creator_id, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanForum(row rowScanner) (*Forum, error) {
	f := &Forum{}
	err := row.Scan(
		&f.ID,
		&f.Title,
		&f.Description,
		&f.IsPrivate,
		&f.MaxMembers,
		&f.CreatorID,
		&f.CreatedAt,
		&f.UpdatedAt,
	)
	return f, err
}

// Create inserts a new forum and fills in its ID
func (r *Repository) Create(ctx context.Context, f *Forum) error {
	query := `
		INSERT INTO forums (title, description, is_private, max_members, creator_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	err := r.db.QueryRowContext(ctx, query,
		f.Title, f.Description, f.IsPrivate, f.MaxMembers, f.CreatorID, f.CreatedAt, f.UpdatedAt,
	).Scan(&f.ID)
	if err != nil {
		return fmt.Errorf("failed to create forum: %w", err)
	}

	return nil
}

// GetByID retrieves a forum by its ID
func (r *Repository) GetByID(ctx context.Context, id int64) (*Forum, error) {
	query := `SELECT ` + forumColumns + ` FROM forums WHERE id = $1`

	f, err := scanForum(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get forum: %w", err)
	}

	return f, nil
}

// ListPublic retrieves public forums, newest first
func (r *Repository) ListPublic(ctx context.Context, limit, offset int) ([]*Forum, int, error) {
	var total int
	countQuery := `SELECT COUNT(*) FROM forums WHERE NOT is_private`
	if err := r.db.QueryRowContext(ctx, countQuery).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count forums: %w", err)
	}

	query := `
		SELECT ` + forumColumns + `
		FROM forums
		WHERE NOT is_private
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list forums: %w", err)
	}
	defer rows.Close()

	var forums []*Forum
	for rows.Next() {
		f, err := scanForum(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan forum: %w", err)
		}
		forums = append(forums, f)
	}

	return forums, total, rows.Err()
}

// Update locks the forum row, applies fn and writes the result back. The
// member count is read through the same transaction.
func (r *Repository) Update(ctx context.Context, id int64, fn func(f *Forum, activeMembers int) error) (*Forum, error) {
	var updated *Forum
	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		query := `SELECT ` + forumColumns + ` FROM forums WHERE id = $1 FOR UPDATE`
		f, err := scanForum(tx.QueryRowContext(ctx, query, id))
		if err != nil {
			if err == sql.ErrNoRows {
				return nil
			}
			return fmt.Errorf("failed to lock forum: %w", err)
		}

		var count int
		countQuery := `SELECT COUNT(*) FROM forum_members WHERE forum_id = $1 AND is_active`
		if err := tx.QueryRowContext(ctx, countQuery, id).Scan(&count); err != nil {
			return fmt.Errorf("failed to count members: %w", err)
		}

		if err := fn(f, count); err != nil {
			return err
		}

		update := `
			UPDATE forums
			SET title = $2, description = $3, is_private = $4, max_members = $5, updated_at = $6
			WHERE id = $1
		`
		if _, err := tx.ExecContext(ctx, update, id, f.Title, f.Description, f.IsPrivate, f.MaxMembers, f.UpdatedAt); err != nil {
			return fmt.Errorf("failed to update forum: %w", err)
		}
		updated = f
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes a forum. Members, messages and invitations cascade.
func (r *Repository) Delete(ctx context.Context, id int64) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM forums WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete forum: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}
