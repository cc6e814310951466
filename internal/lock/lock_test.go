package lock

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestAcquireRelease(t *testing.T) {
	l := NewMemoryLocker()
	ctx := context.Background()

	ok, err := l.Acquire(ctx, "pi_1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("expected first acquire to succeed")
	}

	// Second acquire on the same key while held must fail.
	ok, err = l.Acquire(ctx, "pi_1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatal("expected acquire on held key to fail")
	}

	// A different key is independent.
	ok, _ = l.Acquire(ctx, "pi_2")
	if !ok {
		t.Fatal("expected acquire on different key to succeed")
	}

	if err := l.Release(ctx, "pi_1"); err != nil {
		t.Fatalf("unexpected error on release: %v", err)
	}
	ok, _ = l.Acquire(ctx, "pi_1")
	if !ok {
		t.Fatal("expected acquire after release to succeed")
	}
}

func TestReleaseUnheldKey(t *testing.T) {
	l := NewMemoryLocker()
	if err := l.Release(context.Background(), "never-held"); err != nil {
		t.Fatalf("release of unheld key should be a no-op, got: %v", err)
	}
}

func TestExpiredLockIsReclaimed(t *testing.T) {
	l := NewMemoryLocker()
	ctx := context.Background()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	l.clock = func() time.Time { return now }

	if ok, _ := l.Acquire(ctx, "pi_stale"); !ok {
		t.Fatal("expected first acquire to succeed")
	}

	// Just under the TTL the holder is still alive.
	now = now.Add(TTL - time.Second)
	if ok, _ := l.Acquire(ctx, "pi_stale"); ok {
		t.Fatal("lock should still be held just under the TTL")
	}

	// At the TTL the lock counts as abandoned and is reclaimed.
	now = now.Add(time.Second)
	if ok, _ := l.Acquire(ctx, "pi_stale"); !ok {
		t.Fatal("expected expired lock to be reclaimed")
	}

	// The reclaim restarts the clock for the new holder.
	now = now.Add(TTL - time.Second)
	if ok, _ := l.Acquire(ctx, "pi_stale"); ok {
		t.Fatal("reclaimed lock should be held for a fresh TTL")
	}
}

func TestConcurrentAcquireExactlyOne(t *testing.T) {
	l := NewMemoryLocker()
	ctx := context.Background()

	const callers = 50
	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := l.Acquire(ctx, "pi_race")
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			if ok {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if winners != 1 {
		t.Fatalf("expected exactly one winner, got %d", winners)
	}
}
