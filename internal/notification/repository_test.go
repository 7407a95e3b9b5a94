package notification

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

var rowColumns = []string{"id", "recipient_id", "kind", "forum_id", "message", "is_read", "related_entity_type", "related_entity_id", "created_at"}

func newMockRepository(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewRepository(db), mock
}

func TestRepositoryCreate(t *testing.T) {
	repo, mock := newMockRepository(t)
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`INSERT INTO notifications \(recipient_id, kind, forum_id, message, related_entity_type, related_entity_id\)`).
		WithArgs(int64(7), "message_removed", int64(3), sqlmock.AnyArg(), "MESSAGE", int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(5), created))

	n := MessageRemoved(7, "Graphs", 3, 42).Notification()
	if err := repo.Create(context.Background(), n); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if n.ID != 5 || !n.CreatedAt.Equal(created) {
		t.Fatalf("created = %d at %v", n.ID, n.CreatedAt)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestRepositoryListFilters(t *testing.T) {
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		filter    Filter
		countSQL  string
		countArgs []driver.Value
		listSQL   string
	}{
		{
			name:      "every forum",
			filter:    Filter{Limit: 20},
			countSQL:  `SELECT COUNT\(\*\) FROM notifications WHERE recipient_id = \$1$`,
			countArgs: []driver.Value{int64(1)},
			listSQL:   `WHERE recipient_id = \$1 ORDER BY created_at DESC, id DESC LIMIT \$2 OFFSET \$3`,
		},
		{
			name:      "one forum unread",
			filter:    Filter{ForumID: 3, UnreadOnly: true, Limit: 20},
			countSQL:  `WHERE recipient_id = \$1 AND forum_id = \$2 AND NOT is_read$`,
			countArgs: []driver.Value{int64(1), int64(3)},
			listSQL:   `AND forum_id = \$2 AND NOT is_read ORDER BY created_at DESC, id DESC LIMIT \$3 OFFSET \$4`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newMockRepository(t)
			mock.ExpectQuery(tt.countSQL).WithArgs(tt.countArgs...).
				WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
			mock.ExpectQuery(tt.listSQL).
				WillReturnRows(sqlmock.NewRows(rowColumns).
					AddRow(int64(9), int64(1), "kicked", int64(3), "You have been removed from forum: Graphs", false, "FORUM", int64(3), created))

			list, total, err := repo.List(context.Background(), 1, tt.filter)
			if err != nil || total != 1 || len(list) != 1 {
				t.Fatalf("List = %d items of %d, %v", len(list), total, err)
			}
			n := list[0]
			if n.Kind != KindKicked || n.ForumID == nil || *n.ForumID != 3 {
				t.Fatalf("row = %+v", n)
			}
			if n.RelatedEntityType == nil || *n.RelatedEntityType != EntityForum {
				t.Fatalf("entity type = %v", n.RelatedEntityType)
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Fatal(err)
			}
		})
	}
}

func TestRepositoryGetByIDWithoutForum(t *testing.T) {
	repo, mock := newMockRepository(t)
	mock.ExpectQuery(`SELECT id, recipient_id, kind, forum_id, .* FROM notifications WHERE id = \$1`).
		WithArgs(int64(4)).
		WillReturnRows(sqlmock.NewRows(rowColumns).
			AddRow(int64(4), int64(1), "general", nil, "welcome", true, nil, nil, time.Now()))

	n, err := repo.GetByID(context.Background(), 4)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if n.ForumID != nil || n.RelatedEntityType != nil || n.RelatedEntityID != nil || !n.IsRead {
		t.Fatalf("row = %+v", n)
	}

	mock.ExpectQuery(`FROM notifications WHERE id = \$1`).WithArgs(int64(5)).WillReturnError(sql.ErrNoRows)
	if n, err := repo.GetByID(context.Background(), 5); n != nil || err != nil {
		t.Fatalf("GetByID missing = %+v, %v", n, err)
	}
}

func TestRepositoryForumScopedWrites(t *testing.T) {
	tests := []struct {
		name   string
		expect func(mock sqlmock.Sqlmock)
		run    func(repo *Repository) error
	}{
		{
			name: "read all in one forum",
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`UPDATE notifications SET is_read = true WHERE recipient_id = \$1 AND forum_id = \$2 AND NOT is_read`).
					WithArgs(int64(1), int64(3)).
					WillReturnResult(sqlmock.NewResult(0, 2))
			},
			run: func(repo *Repository) error { return repo.MarkAllAsRead(context.Background(), 1, 3) },
		},
		{
			name: "read all",
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`UPDATE notifications SET is_read = true WHERE recipient_id = \$1 AND NOT is_read$`).
					WithArgs(int64(1)).
					WillReturnResult(sqlmock.NewResult(0, 4))
			},
			run: func(repo *Repository) error { return repo.MarkAllAsRead(context.Background(), 1, 0) },
		},
		{
			name: "purge forum",
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`DELETE FROM notifications WHERE forum_id = \$1`).
					WithArgs(int64(3)).
					WillReturnResult(sqlmock.NewResult(0, 6))
			},
			run: func(repo *Repository) error { return repo.DeleteForum(context.Background(), 3) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newMockRepository(t)
			tt.expect(mock)
			if err := tt.run(repo); err != nil {
				t.Fatalf("run: %v", err)
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Fatal(err)
			}
		})
	}
}

func TestRepositoryUnreadByForum(t *testing.T) {
	repo, mock := newMockRepository(t)
	mock.ExpectQuery(`SELECT COALESCE\(forum_id, 0\), COUNT\(\*\)\s+FROM notifications\s+WHERE recipient_id = \$1 AND NOT is_read\s+GROUP BY 1`).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"forum_id", "count"}).AddRow(int64(0), 1).AddRow(int64(3), 2))

	counts, err := repo.UnreadByForum(context.Background(), 1)
	if err != nil {
		t.Fatalf("UnreadByForum: %v", err)
	}
	if len(counts) != 2 || counts[0] != 1 || counts[3] != 2 {
		t.Fatalf("counts = %v", counts)
	}
}
