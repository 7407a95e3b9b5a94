package ephemeral

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
)

func newRedisStore(t *testing.T) *RedisStore {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisStore(client, "presence")
}

func stores(t *testing.T) map[string]Store {
	return map[string]Store{
		"memory": NewMemoryStore(),
		"redis":  newRedisStore(t),
	}
}

var base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestTouchCountAndUsers(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store.Touch(ctx, 1, 10, base)
			store.Touch(ctx, 1, 11, base.Add(20*time.Second))
			store.Touch(ctx, 1, 10, base.Add(30*time.Second))
			store.Touch(ctx, 2, 12, base.Add(30*time.Second))

			count, err := store.Count(ctx, 1, base.Add(10*time.Second))
			if err != nil || count != 2 {
				t.Fatalf("Count = %d, %v; want 2", count, err)
			}
			count, _ = store.Count(ctx, 1, base.Add(25*time.Second))
			if count != 1 {
				t.Fatalf("Count after cutoff = %d, want 1", count)
			}
			// the cutoff itself is excluded
			count, _ = store.Count(ctx, 1, base.Add(30*time.Second))
			if count != 0 {
				t.Fatalf("Count at exact cutoff = %d, want 0", count)
			}

			users, err := store.Users(ctx, 1, base)
			if err != nil {
				t.Fatalf("Users: %v", err)
			}
			sort.Slice(users, func(i, j int) bool { return users[i] < users[j] })
			if len(users) != 2 || users[0] != 10 || users[1] != 11 {
				t.Fatalf("Users = %v, want [10 11]", users)
			}
		})
	}
}

func TestRefreshOnlyExisting(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			ok, err := store.Refresh(ctx, 1, 10, base, base.Add(-time.Minute))
			if err != nil || ok {
				t.Fatalf("Refresh without entry = %v, %v", ok, err)
			}
			if count, _ := store.Count(ctx, 1, base.Add(-time.Second)); count != 0 {
				t.Fatal("Refresh created an entry")
			}

			store.Touch(ctx, 1, 10, base)
			ok, err = store.Refresh(ctx, 1, 10, base.Add(time.Minute), base.Add(-time.Second))
			if err != nil || !ok {
				t.Fatalf("Refresh = %v, %v", ok, err)
			}
			if count, _ := store.Count(ctx, 1, base.Add(30*time.Second)); count != 1 {
				t.Fatal("Refresh did not move the timestamp")
			}

			// entries at or before the cutoff are stale and stay put
			ok, err = store.Refresh(ctx, 1, 10, base.Add(20*time.Minute), base.Add(time.Minute))
			if err != nil || ok {
				t.Fatalf("Refresh of stale entry = %v, %v; want false", ok, err)
			}
			if count, _ := store.Count(ctx, 1, base.Add(time.Minute)); count != 0 {
				t.Fatal("stale entry was re-stamped")
			}
		})
	}
}

func TestSweepKeepsIndexForLiveForums(t *testing.T) {
	store := newRedisStore(t)
	ctx := context.Background()

	store.Touch(ctx, 1, 10, base)
	store.Touch(ctx, 2, 20, base.Add(time.Minute))

	removed, err := store.Sweep(ctx, base.Add(time.Second))
	if err != nil || removed != 1 {
		t.Fatalf("Sweep = %d, %v; want 1", removed, err)
	}
	forums, err := store.client.SMembers(ctx, store.indexKey()).Result()
	if err != nil {
		t.Fatalf("SMembers: %v", err)
	}
	if len(forums) != 1 || forums[0] != "2" {
		t.Fatalf("index = %v, want [2]", forums)
	}

	// a Touch after the sweep puts the forum back in the index
	store.Touch(ctx, 1, 11, base.Add(2*time.Minute))
	if removed, err := store.Sweep(ctx, base.Add(90*time.Second)); err != nil || removed != 1 {
		t.Fatalf("second Sweep = %d, %v; want 1", removed, err)
	}
	if count, _ := store.Count(ctx, 1, base.Add(time.Minute)); count != 1 {
		t.Fatalf("forum 1 count = %d, want 1", count)
	}
	forums, _ = store.client.SMembers(ctx, store.indexKey()).Result()
	if len(forums) != 1 || forums[0] != "1" {
		t.Fatalf("index = %v, want [1]", forums)
	}
}

func TestSweepReportsRedisErrors(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	store := NewRedisStore(client, "typing")
	ctx := context.Background()

	store.Touch(ctx, 1, 10, base)
	mr.Close()

	if _, err := store.Sweep(ctx, base.Add(time.Second)); err == nil {
		t.Fatal("Sweep with redis down returned nil error")
	}
}

func TestRemoveIdempotent(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store.Touch(ctx, 1, 10, base)

			for i := 0; i < 2; i++ {
				if err := store.Remove(ctx, 1, 10); err != nil {
					t.Fatalf("Remove #%d: %v", i+1, err)
				}
			}
			if count, _ := store.Count(ctx, 1, base.Add(-time.Hour)); count != 0 {
				t.Fatalf("Count after Remove = %d", count)
			}
		})
	}
}

func TestSweepAndDeleteForum(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store.Touch(ctx, 1, 10, base)
			store.Touch(ctx, 1, 11, base.Add(time.Minute))
			store.Touch(ctx, 2, 12, base)
			store.Touch(ctx, 3, 13, base.Add(time.Minute))

			removed, err := store.Sweep(ctx, base.Add(time.Second))
			if err != nil || removed != 2 {
				t.Fatalf("Sweep = %d, %v; want 2", removed, err)
			}
			if count, _ := store.Count(ctx, 1, base.Add(-time.Hour)); count != 1 {
				t.Fatalf("forum 1 count after sweep = %d, want 1", count)
			}

			if err := store.DeleteForum(ctx, 3); err != nil {
				t.Fatalf("DeleteForum: %v", err)
			}
			if count, _ := store.Count(ctx, 3, base.Add(-time.Hour)); count != 0 {
				t.Fatalf("forum 3 count after delete = %d", count)
			}
		})
	}
}
