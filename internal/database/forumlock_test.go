package database

import (
	"sync"
	"testing"
	"time"
)

func TestForumLocksSerializeSameForum(t *testing.T) {
	locks := NewForumLocks()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		inside  int
		maxSeen int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.Lock(7)
			defer unlock()

			mu.Lock()
			inside++
			if inside > maxSeen {
				maxSeen = inside
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			inside--
			mu.Unlock()
		}()
	}
	wg.Wait()

	if maxSeen != 1 {
		t.Fatalf("%d goroutines held the same forum lock at once", maxSeen)
	}
	if len(locks.locks) != 0 {
		t.Fatalf("lock table not cleaned up: %d entries", len(locks.locks))
	}
}

func TestForumLocksIndependentForums(t *testing.T) {
	locks := NewForumLocks()
	unlockA := locks.Lock(1)
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlock := locks.Lock(2)
		unlock()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on forum 2 blocked behind forum 1")
	}
}
