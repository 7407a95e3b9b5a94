package notification

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/fkhayef/forumcore/internal/queue"
)

func newTestService() *Service {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return NewService(NewMemoryStore(func() time.Time { return start }))
}

func deliver(t *testing.T, svc *Service, d Delivery) *Notification {
	t.Helper()
	n, err := svc.Deliver(context.Background(), d)
	if err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	return n
}

func TestDispatcherDeliversThroughQueue(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := newTestService()
	q := queue.NewInline(logger)
	RegisterTasks(q, svc)
	dispatcher := NewDispatcher(q, logger)
	ctx := context.Background()

	if err := dispatcher.Notify(ctx, Banned(7, "Go help", 3)); err != nil {
		t.Fatalf("Notify: %v", err)
	}

	list, total, err := svc.List(ctx, 7, 0, 1, 20, false)
	if err != nil || total != 1 {
		t.Fatalf("List = %d, %v; want 1", total, err)
	}
	n := list[0]
	if n.Message != "You have been banned from forum: Go help" || n.Kind != KindBanned {
		t.Fatalf("notification = %q (%s)", n.Message, n.Kind)
	}
	if n.ForumID == nil || *n.ForumID != 3 {
		t.Fatalf("forum = %v, want 3", n.ForumID)
	}
	if n.RelatedEntityType == nil || *n.RelatedEntityType != EntityForum || *n.RelatedEntityID != 3 {
		t.Fatalf("entity = %v/%v", n.RelatedEntityType, n.RelatedEntityID)
	}
}

func TestDeliveryEntities(t *testing.T) {
	tests := []struct {
		name       string
		delivery   Delivery
		kind       Kind
		entityType EntityType
		entityID   int64
	}{
		{"invited", Invited(1, "Graphs", 3, 11), KindInvited, EntityInvitation, 11},
		{"kicked", Kicked(1, "Graphs", 3), KindKicked, EntityForum, 3},
		{"role changed", RoleChanged(1, "Graphs", 3, "moderator"), KindRoleChanged, EntityForum, 3},
		{"message removed", MessageRemoved(1, "Graphs", 3, 42), KindMessageRemoved, EntityMessage, 42},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := deliver(t, newTestService(), tt.delivery)
			if n.Kind != tt.kind {
				t.Fatalf("kind = %s, want %s", n.Kind, tt.kind)
			}
			if n.ForumID == nil || *n.ForumID != 3 {
				t.Fatalf("forum = %v, want 3", n.ForumID)
			}
			if n.RelatedEntityType == nil || *n.RelatedEntityType != tt.entityType || *n.RelatedEntityID != tt.entityID {
				t.Fatalf("entity = %v/%v, want %s/%d", n.RelatedEntityType, n.RelatedEntityID, tt.entityType, tt.entityID)
			}
		})
	}
}

func TestDeliveryWithoutForum(t *testing.T) {
	n := deliver(t, newTestService(), Delivery{RecipientID: 1, Message: "welcome"})
	if n.Kind != KindGeneral || n.ForumID != nil || n.RelatedEntityType != nil {
		t.Fatalf("notification = %+v", n)
	}
}

func TestMarkAsRead(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	first := deliver(t, svc, Kicked(1, "one", 3))
	deliver(t, svc, Banned(1, "two", 4))

	if err := svc.MarkAsRead(ctx, first.ID, 2); !errors.Is(err, ErrNotRecipient) {
		t.Fatalf("MarkAsRead by other = %v, want ErrNotRecipient", err)
	}
	if err := svc.MarkAsRead(ctx, 999, 1); !errors.Is(err, ErrNotificationNotFound) {
		t.Fatalf("MarkAsRead missing = %v, want ErrNotificationNotFound", err)
	}
	if err := svc.MarkAsRead(ctx, first.ID, 1); err != nil {
		t.Fatalf("MarkAsRead: %v", err)
	}

	count, _, _ := svc.UnreadCounts(ctx, 1)
	if count != 1 {
		t.Fatalf("unread = %d, want 1", count)
	}

	unread, total, _ := svc.List(ctx, 1, 0, 1, 20, true)
	if total != 1 || unread[0].Kind != KindBanned {
		t.Fatalf("unread list = %+v", unread)
	}

	if err := svc.MarkAllAsRead(ctx, 1, 0); err != nil {
		t.Fatalf("MarkAllAsRead: %v", err)
	}
	if count, _, _ := svc.UnreadCounts(ctx, 1); count != 0 {
		t.Fatalf("unread after read-all = %d", count)
	}
}

func TestForumScopedQueries(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	deliver(t, svc, Kicked(1, "Graphs", 3))
	deliver(t, svc, RoleChanged(1, "Graphs", 3, "moderator"))
	deliver(t, svc, Banned(1, "Trees", 4))
	deliver(t, svc, Delivery{RecipientID: 1, Message: "welcome"})
	deliver(t, svc, Kicked(2, "Graphs", 3))

	tests := []struct {
		name    string
		forumID int64
		want    int
	}{
		{"every forum", 0, 4},
		{"one forum", 3, 2},
		{"other forum", 4, 1},
		{"no notices", 9, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			list, total, err := svc.List(ctx, 1, tt.forumID, 1, 20, false)
			if err != nil || total != tt.want || len(list) != tt.want {
				t.Fatalf("List = %d items of %d, %v; want %d", len(list), total, err, tt.want)
			}
		})
	}

	total, byForum, err := svc.UnreadCounts(ctx, 1)
	if err != nil || total != 4 || byForum[3] != 2 || byForum[4] != 1 || byForum[0] != 1 {
		t.Fatalf("UnreadCounts = %d %v, %v", total, byForum, err)
	}

	if err := svc.MarkAllAsRead(ctx, 1, 3); err != nil {
		t.Fatalf("MarkAllAsRead: %v", err)
	}
	total, byForum, _ = svc.UnreadCounts(ctx, 1)
	if total != 2 || byForum[3] != 0 || byForum[4] != 1 {
		t.Fatalf("after forum read-all = %d %v", total, byForum)
	}
	if count, _, _ := svc.UnreadCounts(ctx, 2); count != 1 {
		t.Fatalf("other recipient unread = %d, want 1", count)
	}
}

func TestPurgeForum(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	deliver(t, svc, Kicked(1, "Graphs", 3))
	deliver(t, svc, Kicked(2, "Graphs", 3))
	deliver(t, svc, Banned(1, "Trees", 4))
	deliver(t, svc, Delivery{RecipientID: 1, Message: "welcome"})

	if err := svc.PurgeForum(ctx, 3); err != nil {
		t.Fatalf("PurgeForum: %v", err)
	}

	if _, total, _ := svc.List(ctx, 1, 0, 1, 20, false); total != 2 {
		t.Fatalf("recipient 1 total = %d, want 2", total)
	}
	if _, total, _ := svc.List(ctx, 2, 0, 1, 20, false); total != 0 {
		t.Fatalf("recipient 2 total = %d, want 0", total)
	}
}

func TestListPagination(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		deliver(t, svc, Kicked(1, "Graphs", 3))
	}

	page, total, err := svc.List(ctx, 1, 3, 2, 2, false)
	if err != nil || total != 5 || len(page) != 2 {
		t.Fatalf("page 2 = %d items of %d, %v", len(page), total, err)
	}
	if page[0].ID != 3 {
		t.Fatalf("page 2 starts at %d, want 3 (newest first)", page[0].ID)
	}
}
