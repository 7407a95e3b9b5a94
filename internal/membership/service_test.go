package membership

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/fkhayef/forumcore/internal/clock"
	"github.com/fkhayef/forumcore/internal/database"
	"github.com/fkhayef/forumcore/internal/role"
)

type staticForums map[int64]*ForumInfo

func (f staticForums) Lookup(ctx context.Context, forumID int64) (*ForumInfo, error) {
	return f[forumID], nil
}

const (
	publicForum  = 1
	privateForum = 2
	tinyForum    = 3
	creatorID    = 100
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	forums := staticForums{
		publicForum:  {ID: publicForum, CreatorID: creatorID, MaxMembers: 50},
		privateForum: {ID: privateForum, CreatorID: creatorID, IsPrivate: true, MaxMembers: 50},
		tinyForum:    {ID: tinyForum, CreatorID: creatorID, MaxMembers: 2},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(NewMemoryStore(database.NewForumLocks(), forums), forums, clock.Fake(time.Unix(1_700_000_000, 0)), logger)

	for id := range forums {
		if err := svc.AddCreator(context.Background(), id, creatorID); err != nil {
			t.Fatalf("AddCreator(%d): %v", id, err)
		}
	}
	return svc
}

func user(id int64) role.Principal {
	return role.Principal{UserID: id, SiteRole: role.SiteUser}
}

func admin(id int64) role.Principal {
	return role.Principal{UserID: id, SiteRole: role.SiteAdmin}
}

func ban(svc *Service, forumID, targetID int64) error {
	_, err := svc.ApplyToMember(context.Background(), user(creatorID), forumID, targetID, func(actor Actor, target *Member) error {
		target.IsActive = false
		target.IsBanned = true
		return nil
	})
	return err
}

func TestJoin(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	m, err := svc.Join(ctx, user(1), publicForum)
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	if m.Role != role.Member || !m.IsActive {
		t.Fatalf("unexpected member row: %+v", m)
	}

	if _, err := svc.Join(ctx, user(1), publicForum); !errors.Is(err, ErrAlreadyMember) {
		t.Fatalf("second Join = %v, want ErrAlreadyMember", err)
	}
	if _, err := svc.Join(ctx, user(1), 999); !errors.Is(err, ErrForumNotFound) {
		t.Fatalf("Join unknown forum = %v, want ErrForumNotFound", err)
	}
}

func TestJoinCapacityExceeded(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Join(ctx, user(1), tinyForum); err != nil {
		t.Fatalf("Join: %v", err)
	}
	if _, err := svc.Join(ctx, user(2), tinyForum); !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("third member Join = %v, want ErrCapacityExceeded", err)
	}

	// A departure frees the slot.
	if err := svc.Leave(ctx, tinyForum, 1); err != nil {
		t.Fatalf("Leave: %v", err)
	}
	if _, err := svc.Join(ctx, user(2), tinyForum); err != nil {
		t.Fatalf("Join after Leave: %v", err)
	}
}

func TestJoinAfterBanAndUnban(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Join(ctx, user(1), publicForum); err != nil {
		t.Fatal(err)
	}
	if err := ban(svc, publicForum, 1); err != nil {
		t.Fatalf("ban: %v", err)
	}
	if _, err := svc.Join(ctx, user(1), publicForum); !errors.Is(err, ErrBanned) {
		t.Fatalf("Join after ban = %v, want ErrBanned", err)
	}

	_, err := svc.ApplyToMember(ctx, user(creatorID), publicForum, 1, func(actor Actor, target *Member) error {
		target.IsBanned = false
		return nil
	})
	if err != nil {
		t.Fatalf("unban: %v", err)
	}
	if _, err := svc.Join(ctx, user(1), publicForum); err != nil {
		t.Fatalf("Join after unban: %v", err)
	}
}

func TestJoinPrivateForum(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Join(ctx, user(1), privateForum); !errors.Is(err, ErrInvitationRequired) {
		t.Fatalf("Join private = %v, want ErrInvitationRequired", err)
	}
	if _, err := svc.JoinInvited(ctx, privateForum, 1); err != nil {
		t.Fatalf("JoinInvited: %v", err)
	}
	if _, err := svc.Join(ctx, admin(2), privateForum); err != nil {
		t.Fatalf("admin Join private: %v", err)
	}
}

func TestLeave(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if err := svc.Leave(ctx, publicForum, 1); !errors.Is(err, ErrNotMember) {
		t.Fatalf("Leave without row = %v, want ErrNotMember", err)
	}
	if err := svc.Leave(ctx, publicForum, creatorID); !errors.Is(err, ErrCreatorCannotLeave) {
		t.Fatalf("creator Leave = %v, want ErrCreatorCannotLeave", err)
	}

	if _, err := svc.Join(ctx, user(1), publicForum); err != nil {
		t.Fatal(err)
	}
	if err := svc.Leave(ctx, publicForum, 1); err != nil {
		t.Fatalf("Leave: %v", err)
	}
	if err := svc.Leave(ctx, publicForum, 1); !errors.Is(err, ErrNotMember) {
		t.Fatalf("second Leave = %v, want ErrNotMember", err)
	}
	if _, err := svc.Join(ctx, user(1), publicForum); err != nil {
		t.Fatalf("rejoin after Leave: %v", err)
	}
}

func TestRequireReader(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.RequireReader(ctx, user(1), publicForum); err != nil {
		t.Fatalf("public forum read: %v", err)
	}
	if _, err := svc.RequireReader(ctx, user(1), privateForum); !errors.Is(err, ErrNotMember) {
		t.Fatalf("private forum read = %v, want ErrNotMember", err)
	}
	if _, err := svc.RequireReader(ctx, admin(9), privateForum); err != nil {
		t.Fatalf("admin private read: %v", err)
	}

	if _, err := svc.Join(ctx, user(1), publicForum); err != nil {
		t.Fatal(err)
	}
	if err := ban(svc, publicForum, 1); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.RequireReader(ctx, user(1), publicForum); !errors.Is(err, ErrBanned) {
		t.Fatalf("banned read = %v, want ErrBanned", err)
	}
	if _, err := svc.RequireMember(ctx, user(1), publicForum); !errors.Is(err, ErrBanned) {
		t.Fatalf("banned RequireMember = %v, want ErrBanned", err)
	}
}

func TestBannedMembersRequiresBanPermission(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Join(ctx, user(1), publicForum); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.BannedMembers(ctx, user(1), publicForum); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("member BannedMembers = %v, want ErrPermissionDenied", err)
	}

	if _, err := svc.Join(ctx, user(2), publicForum); err != nil {
		t.Fatal(err)
	}
	if err := ban(svc, publicForum, 2); err != nil {
		t.Fatal(err)
	}
	banned, err := svc.BannedMembers(ctx, user(creatorID), publicForum)
	if err != nil {
		t.Fatalf("creator BannedMembers: %v", err)
	}
	if len(banned) != 1 || banned[0].UserID != 2 {
		t.Fatalf("banned list = %+v", banned)
	}
}

func TestMembersSortedByRole(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	for _, id := range []int64{1, 2} {
		if _, err := svc.Join(ctx, user(id), publicForum); err != nil {
			t.Fatal(err)
		}
	}
	_, err := svc.ApplyToMember(ctx, user(creatorID), publicForum, 2, func(actor Actor, target *Member) error {
		target.Role = role.Moderator
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	members, err := svc.Members(ctx, user(1), publicForum)
	if err != nil {
		t.Fatalf("Members: %v", err)
	}
	want := []int64{creatorID, 2, 1}
	if len(members) != len(want) {
		t.Fatalf("got %d members, want %d", len(members), len(want))
	}
	for i, id := range want {
		if members[i].UserID != id {
			t.Fatalf("members[%d] = %d, want %d", i, members[i].UserID, id)
		}
	}
}

func TestApplyToMemberRollsBackOnError(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Join(ctx, user(1), publicForum); err != nil {
		t.Fatal(err)
	}
	refused := errors.New("refused")
	_, err := svc.ApplyToMember(ctx, user(creatorID), publicForum, 1, func(actor Actor, target *Member) error {
		target.IsActive = false
		return refused
	})
	if !errors.Is(err, refused) {
		t.Fatalf("ApplyToMember = %v, want refused", err)
	}

	m, err := svc.Get(ctx, publicForum, 1)
	if err != nil {
		t.Fatal(err)
	}
	if !m.IsActive {
		t.Fatal("failed mutation was persisted")
	}

	if _, err := svc.ApplyToMember(ctx, user(creatorID), publicForum, 77, func(Actor, *Member) error { return nil }); !errors.Is(err, ErrMemberNotFound) {
		t.Fatalf("ApplyToMember unknown target = %v, want ErrMemberNotFound", err)
	}
}

type recordingEvictor struct {
	mu      sync.Mutex
	evicted [][2]int64
	err     error
}

func (e *recordingEvictor) Evict(ctx context.Context, forumID, userID int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.evicted = append(e.evicted, [2]int64{forumID, userID})
	return e.err
}

func TestLeaveEvictsEphemeralState(t *testing.T) {
	forums := staticForums{publicForum: {ID: publicForum, CreatorID: creatorID, MaxMembers: 10}}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	presence := &recordingEvictor{}
	typing := &recordingEvictor{err: errors.New("redis down")}
	svc := NewService(NewMemoryStore(database.NewForumLocks(), forums), forums, clock.Real(), logger, presence, typing)
	ctx := context.Background()
	if err := svc.AddCreator(ctx, publicForum, creatorID); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Join(ctx, user(1), publicForum); err != nil {
		t.Fatal(err)
	}

	if err := svc.Leave(ctx, publicForum, creatorID); !errors.Is(err, ErrCreatorCannotLeave) {
		t.Fatalf("creator Leave = %v", err)
	}
	if len(presence.evicted) != 0 {
		t.Fatalf("rejected Leave evicted %v", presence.evicted)
	}

	if err := svc.Leave(ctx, publicForum, 1); err != nil {
		t.Fatalf("Leave: %v", err)
	}
	for name, e := range map[string]*recordingEvictor{"presence": presence, "typing": typing} {
		if len(e.evicted) != 1 || e.evicted[0] != [2]int64{publicForum, 1} {
			t.Errorf("%s evicted = %v, want [[%d 1]]", name, e.evicted, publicForum)
		}
	}
}

// sectionStore marks when a forum critical section is open
type sectionStore struct {
	Store
	open bool
}

func (s *sectionStore) InForum(ctx context.Context, forumID int64, fn func(tx Tx) error) error {
	return s.Store.InForum(ctx, forumID, func(tx Tx) error {
		s.open = true
		defer func() { s.open = false }()
		return fn(tx)
	})
}

// watchedForums counts lookups made while the section is open
type watchedForums struct {
	ForumLookup
	store  *sectionStore
	inside int
}

func (w *watchedForums) Lookup(ctx context.Context, forumID int64) (*ForumInfo, error) {
	if w.store.open {
		w.inside++
	}
	return w.ForumLookup.Lookup(ctx, forumID)
}

func TestSectionReadsGoThroughTx(t *testing.T) {
	forums := staticForums{tinyForum: {ID: tinyForum, CreatorID: creatorID, MaxMembers: 2}}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := &sectionStore{Store: NewMemoryStore(database.NewForumLocks(), forums)}
	watched := &watchedForums{ForumLookup: forums, store: store}
	svc := NewService(store, watched, clock.Real(), logger)
	ctx := context.Background()

	if err := svc.AddCreator(ctx, tinyForum, creatorID); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Join(ctx, user(1), tinyForum); err != nil {
		t.Fatalf("Join: %v", err)
	}
	if _, err := svc.Join(ctx, user(2), tinyForum); !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("Join full = %v, want ErrCapacityExceeded", err)
	}
	if _, err := svc.Join(ctx, user(1), 404); !errors.Is(err, ErrForumNotFound) {
		t.Fatalf("Join missing forum = %v, want ErrForumNotFound", err)
	}
	_, err := svc.ApplyToMember(ctx, user(creatorID), tinyForum, 1, func(actor Actor, target *Member) error {
		target.Role = role.Helper
		return nil
	})
	if err != nil {
		t.Fatalf("ApplyToMember: %v", err)
	}

	if watched.inside != 0 {
		t.Fatalf("%d forum lookups bypassed the section's tx", watched.inside)
	}
}

func TestConcurrentJoinsRespectCapacity(t *testing.T) {
	forums := staticForums{publicForum: {ID: publicForum, CreatorID: creatorID, MaxMembers: 10}}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(NewMemoryStore(database.NewForumLocks(), forums), forums, clock.Real(), logger)
	ctx := context.Background()
	if err := svc.AddCreator(ctx, publicForum, creatorID); err != nil {
		t.Fatal(err)
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		joined   int
		rejected int
	)
	for i := int64(1); i <= 40; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			_, err := svc.Join(ctx, user(id), publicForum)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				joined++
			case errors.Is(err, ErrCapacityExceeded):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if joined != 9 || rejected != 31 {
		t.Fatalf("joined=%d rejected=%d, want 9 and 31", joined, rejected)
	}
	count, err := svc.CountActive(ctx, publicForum)
	if err != nil {
		t.Fatal(err)
	}
	if count != 10 {
		t.Fatalf("active count = %d, want 10", count)
	}
}

func TestActorPermissions(t *testing.T) {
	moderator := Actor{Principal: user(1), Member: &Member{Role: role.Moderator, IsActive: true}}
	inactiveModerator := Actor{Principal: user(1), Member: &Member{Role: role.Moderator}}
	siteAdmin := Actor{Principal: admin(2)}

	if !moderator.Can(role.PermBan) || !moderator.CanManage(role.Helper) {
		t.Error("active moderator should ban helpers")
	}
	if inactiveModerator.Can(role.PermBan) || inactiveModerator.CanManage(role.Member) {
		t.Error("inactive rows carry no permissions")
	}
	if !siteAdmin.Can(role.PermUnpin) || !siteAdmin.CanManage(role.Moderator) {
		t.Error("site admin should bypass forum checks")
	}
	if siteAdmin.CanManage(role.Creator) {
		t.Error("site admin must not manage the creator")
	}
}
