package invitation

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fkhayef/forumcore/internal/database"
)

// Repository handles invitation data persistence in Postgres
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new invitation repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

var _ Store = (*Repository)(nil)

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

const invitationColumns = `id, forum_id, inviter_id, invitee_id, status, created_at, responded_at`

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

func (r *Repository) Get(ctx context.Context, id int64) (*Invitation, error) {
	return getInvitation(ctx, r.db, `SELECT `+invitationColumns+` FROM forum_invitations WHERE id = $1`, id)
}

// ListByInvitee joins the forum title for display
func (r *Repository) ListByInvitee(ctx context.Context, inviteeID int64) ([]*Invitation, error) {
	query := `
		SELECT i.id, i.forum_id, i.inviter_id, i.invitee_id, i.status, i.created_at, i.responded_at, f.title
		FROM forum_invitations i
		JOIN forums f ON f.id = i.forum_id
		WHERE i.invitee_id = $1
		ORDER BY i.created_at DESC, i.id DESC
	`

	rows, err := r.db.QueryContext(ctx, query, inviteeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list invitations: %w", err)
	}
	defer rows.Close()

	var invitations []*Invitation
	for rows.Next() {
		inv := &Invitation{}
		if err := rows.Scan(
			&inv.ID,
			&inv.ForumID,
			&inv.InviterID,
			&inv.InviteeID,
			&inv.Status,
			&inv.CreatedAt,
			&inv.RespondedAt,
			&inv.ForumTitle,
		); err != nil {
			return nil, fmt.Errorf("failed to scan invitation: %w", err)
		}
		invitations = append(invitations, inv)
	}

	return invitations, rows.Err()
}

func (r *Repository) PendingInvitees(ctx context.Context, forumID int64) ([]int64, error) {
	query := `SELECT invitee_id FROM forum_invitations WHERE forum_id = $1 AND status = 'pending'`
	rows, err := r.db.QueryContext(ctx, query, forumID)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending invitees: %w", err)
	}
	defer rows.Close()

	var invitees []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan invitee: %w", err)
		}
		invitees = append(invitees, id)
	}

	return invitees, rows.Err()
}

func (r *Repository) DeleteForum(ctx context.Context, forumID int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM forum_invitations WHERE forum_id = $1`, forumID); err != nil {
		return fmt.Errorf("failed to delete forum invitations: %w", err)
	}
	return nil
}

type sqlTx struct {
	q queryer
}

func (tx *sqlTx) Get(ctx context.Context, id int64) (*Invitation, error) {
	return getInvitation(ctx, tx.q, `SELECT `+invitationColumns+` FROM forum_invitations WHERE id = $1 FOR UPDATE`, id)
}

func (tx *sqlTx) Pending(ctx context.Context, forumID, inviteeID int64) (*Invitation, error) {
	query := `SELECT ` + invitationColumns + ` FROM forum_invitations WHERE forum_id = $1 AND invitee_id = $2 AND status = 'pending'`
	return getInvitation(ctx, tx.q, query, forumID, inviteeID)
}

func (tx *sqlTx) Insert(ctx context.Context, inv *Invitation) error {
	query := `
		INSERT INTO forum_invitations (forum_id, inviter_id, invitee_id, status, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	err := tx.q.QueryRowContext(ctx, query, inv.ForumID, inv.InviterID, inv.InviteeID, inv.Status, inv.CreatedAt).Scan(&inv.ID)
	if err != nil {
		if database.IsUniqueViolation(err, "uq_forum_invitations_pending") {
			return ErrAlreadyInvited
		}
		return fmt.Errorf("failed to create invitation: %w", err)
	}
	return nil
}

func (tx *sqlTx) Respond(ctx context.Context, inv *Invitation) error {
	query := `UPDATE forum_invitations SET status = $2, responded_at = $3 WHERE id = $1`
	if _, err := tx.q.ExecContext(ctx, query, inv.ID, inv.Status, inv.RespondedAt); err != nil {
		return fmt.Errorf("failed to update invitation: %w", err)
	}
	return nil
}

func getInvitation(ctx context.Context, q queryer, query string, args ...interface{}) (*Invitation, error) {
	inv := &Invitation{}
	err := q.QueryRowContext(ctx, query, args...).Scan(
		&inv.ID,
		&inv.ForumID,
		&inv.InviterID,
		&inv.InviteeID,
		&inv.Status,
		&inv.CreatedAt,
		&inv.RespondedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get invitation: %w", err)
	}
	return inv, nil
}
