package forum

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/fkhayef/forumcore/internal/clock"
	"github.com/fkhayef/forumcore/internal/database"
	"github.com/fkhayef/forumcore/internal/membership"
	"github.com/fkhayef/forumcore/internal/role"
	"github.com/fkhayef/forumcore/pkg/apperror"
)

type recordingPurger struct{ purged []int64 }

func (p *recordingPurger) PurgeForum(ctx context.Context, forumID int64) error {
	p.purged = append(p.purged, forumID)
	return nil
}

// failingMembership refuses to add creators
type failingMembership struct{ *membership.Service }

func (failingMembership) AddCreator(ctx context.Context, forumID, creatorID int64) error {
	return errors.New("member store unavailable")
}

type fixture struct {
	store   *MemoryStore
	members *membership.Service
	service *Service
	purger  *recordingPurger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	locks := database.NewForumLocks()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	clk := clock.Fake(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))

	store := NewMemoryStore(locks)
	memberStore := membership.NewMemoryStore(locks, NewLookup(store))
	store.CountMembersWith(memberStore)
	members := membership.NewService(memberStore, NewLookup(store), clk, logger)
	purger := &recordingPurger{}
	return &fixture{
		store:   store,
		members: members,
		service: NewService(store, members, 50, clk, logger, members, purger),
		purger:  purger,
	}
}

func principal(id int64) role.Principal {
	return role.Principal{UserID: id, SiteRole: role.SiteUser}
}

func TestCreateAddsCreator(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	f, err := fx.service.Create(ctx, principal(1), &CreateForumRequest{Title: "  Graph theory  "})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if f.Title != "Graph theory" || f.MaxMembers != 50 || f.CreatorID != 1 {
		t.Fatalf("unexpected forum: %+v", f)
	}

	got, myRole, err := fx.service.Get(ctx, principal(1), f.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.MemberCount != 1 || myRole != role.Creator {
		t.Fatalf("member count %d, role %q", got.MemberCount, myRole)
	}
}

func TestCreateValidation(t *testing.T) {
	fx := newFixture(t)
	bad := []*CreateForumRequest{
		{Title: "   "},
		{Title: "ok", MaxMembers: -1},
		{Title: "ok", MaxMembers: maxMembersLimit + 1},
	}
	for _, req := range bad {
		if _, err := fx.service.Create(context.Background(), principal(1), req); !apperror.Is(err, apperror.KindValidation) {
			t.Errorf("Create(%+v) = %v, want validation error", req, err)
		}
	}
}

func TestCreateCompensatesWhenCreatorInsertFails(t *testing.T) {
	fx := newFixture(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(fx.store, failingMembership{fx.members}, 50, clock.Real(), logger)

	if _, err := svc.Create(context.Background(), principal(1), &CreateForumRequest{Title: "doomed"}); err == nil {
		t.Fatal("expected Create to fail")
	}
	forums, total, err := fx.store.ListPublic(context.Background(), 10, 0)
	if err != nil {
		t.Fatal(err)
	}
	if total != 0 || len(forums) != 0 {
		t.Fatalf("forum survived a failed creator insert: %+v", forums)
	}
}

func TestUpdatePermissionsAndCapacity(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	f, err := fx.service.Create(ctx, principal(1), &CreateForumRequest{Title: "room", MaxMembers: 5})
	if err != nil {
		t.Fatal(err)
	}
	for _, id := range []int64{2, 3} {
		if _, err := fx.members.Join(ctx, principal(id), f.ID); err != nil {
			t.Fatal(err)
		}
	}

	title := "renamed"
	if _, err := fx.service.Update(ctx, principal(2), f.ID, &UpdateForumRequest{Title: &title}); !errors.Is(err, membership.ErrPermissionDenied) {
		t.Fatalf("member Update = %v, want ErrPermissionDenied", err)
	}

	tooSmall := 2
	if _, err := fx.service.Update(ctx, principal(1), f.ID, &UpdateForumRequest{MaxMembers: &tooSmall}); !apperror.Is(err, apperror.KindValidation) {
		t.Fatalf("lowering below count = %v, want validation error", err)
	}

	exact := 3
	updated, err := fx.service.Update(ctx, principal(1), f.ID, &UpdateForumRequest{Title: &title, MaxMembers: &exact})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Title != "renamed" || updated.MaxMembers != 3 || updated.MemberCount != 3 {
		t.Fatalf("unexpected update result: %+v", updated)
	}

	admin := role.Principal{UserID: 99, SiteRole: role.SiteAdmin}
	private := true
	if _, err := fx.service.Update(ctx, admin, f.ID, &UpdateForumRequest{IsPrivate: &private}); err != nil {
		t.Fatalf("admin Update: %v", err)
	}
}

func TestDeleteCascades(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	f, err := fx.service.Create(ctx, principal(1), &CreateForumRequest{Title: "short lived"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fx.members.Join(ctx, principal(2), f.ID); err != nil {
		t.Fatal(err)
	}

	if err := fx.service.Delete(ctx, principal(2), f.ID); !errors.Is(err, membership.ErrPermissionDenied) {
		t.Fatalf("member Delete = %v, want ErrPermissionDenied", err)
	}
	if err := fx.service.Delete(ctx, principal(1), f.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if len(fx.purger.purged) != 1 || fx.purger.purged[0] != f.ID {
		t.Fatalf("purgers not run: %v", fx.purger.purged)
	}
	if m, _ := fx.members.Get(ctx, f.ID, 2); m != nil {
		t.Fatal("member rows survived forum deletion")
	}
	if _, _, err := fx.service.Get(ctx, principal(1), f.ID); !errors.Is(err, membership.ErrForumNotFound) {
		t.Fatalf("Get after Delete = %v, want ErrForumNotFound", err)
	}
}

func TestListShowsPublicForumsOnly(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	for _, req := range []*CreateForumRequest{
		{Title: "public one"},
		{Title: "secret", IsPrivate: true},
		{Title: "public two"},
	} {
		if _, err := fx.service.Create(ctx, principal(1), req); err != nil {
			t.Fatal(err)
		}
	}

	forums, total, err := fx.service.List(ctx, 1, 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 2 || len(forums) != 2 {
		t.Fatalf("total=%d len=%d, want 2", total, len(forums))
	}
	if forums[0].Title != "public two" || forums[0].MemberCount != 1 {
		t.Fatalf("unexpected first forum: %+v", forums[0])
	}
}
