package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/fkhayef/forumcore/pkg/apperror"
)

// NewPostgresConnection opens a connection pool and verifies it with a ping
func NewPostgresConnection(databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// WithTx runs fn inside a transaction. The transaction is committed when
// fn returns nil and rolled back otherwise. A context deadline hit while
// waiting for a connection or inside fn comes back as TransientUpstream.
func WithTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return Unavailable(fmt.Errorf("failed to begin transaction: %w", err))
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return Unavailable(err)
	}
	if err := tx.Commit(); err != nil {
		return Unavailable(fmt.Errorf("failed to commit transaction: %w", err))
	}
	return nil
}

// Unavailable classifies an untyped context deadline as TransientUpstream.
// Typed errors and every other failure are returned unchanged.
func Unavailable(err error) error {
	if err == nil || !apperror.IsTimeout(err) {
		return err
	}
	var typed *apperror.Error
	if errors.As(err, &typed) {
		return err
	}
	return apperror.Transient("database", err)
}

// LockForum takes the row lock that serializes every state change inside
// one forum. It reports false when the forum does not exist.
func LockForum(ctx context.Context, tx *sql.Tx, forumID int64) (bool, error) {
	var id int64
	err := tx.QueryRowContext(ctx, `SELECT id FROM forums WHERE id = $1 FOR UPDATE`, forumID).Scan(&id)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("failed to lock forum: %w", err)
	}
	return true, nil
}

// IsUniqueViolation reports whether err is a Postgres unique_violation,
// optionally restricted to the named constraint or index.
func IsUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	if pqErr.Code != "23505" {
		return false
	}
	return constraint == "" || pqErr.Constraint == constraint
}
