package forum

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestRepositoryUpdateCountsInsideTransaction(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	db.SetMaxOpenConns(1)
	defer db.Close()
	repo := NewRepository(db)

	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectQuery(`FROM forums WHERE id = \$1 FOR UPDATE`).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "description", "is_private", "max_members", "creator_id", "created_at", "updated_at"}).
			AddRow(int64(3), "room", "", false, 10, int64(1), created, created))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM forum_members WHERE forum_id = \$1 AND is_active`).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))
	mock.ExpectExec(`UPDATE forums`).
		WithArgs(int64(3), "room", "", false, 4, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	var seen int
	updated, err := repo.Update(ctx, 3, func(f *Forum, activeMembers int) error {
		seen = activeMembers
		f.MaxMembers = activeMembers
		return nil
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if seen != 4 || updated.MaxMembers != 4 {
		t.Fatalf("count seen = %d, max_members = %d", seen, updated.MaxMembers)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestRepositoryUpdateMissingForum(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectCommit()

	updated, err := NewRepository(db).Update(context.Background(), 404, func(f *Forum, activeMembers int) error {
		t.Fatal("fn ran for a missing forum")
		return nil
	})
	if err != nil || updated != nil {
		t.Fatalf("Update = %+v, %v; want nil, nil", updated, err)
	}
}
