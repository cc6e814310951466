// Package lock provides keyed mutual exclusion over payment-intent
// identifiers.  At most one verification attempt may hold a key at a
// time; a lock older than the TTL is treated as abandoned (its holder
// presumably crashed) and may be reclaimed by the next Acquire.
package lock

import (
	"context"
	"sync"
	"time"
)

// TTL is how long a held lock stays valid before it is considered
// abandoned and reclaimable.
const TTL = 30 * time.Second

// Locker is the mutual-exclusion contract shared by the in-memory and
// Redis implementations.  Acquire returns false when an unexpired lock
// on key is already in progress; otherwise it marks the key in progress
// with the current timestamp and returns true.  Release clears the key
// unconditionally and must be safe to call on every exit path.
type Locker interface {
	Acquire(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

// MemoryLocker is a process-local Locker backed by a map.  It is the
// default for single-instance deployments; multi-instance deployments
// should use RedisLocker so the key space is shared.
type MemoryLocker struct {
	mu    sync.Mutex
	held  map[string]time.Time
	clock func() time.Time
}

// NewMemoryLocker returns an empty in-memory locker.
func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{held: make(map[string]time.Time), clock: time.Now}
}

// Acquire takes the lock for key unless an unexpired holder exists.
// Expired entries are reclaimed in place.
func (l *MemoryLocker) Acquire(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.clock().UTC()
	if at, ok := l.held[key]; ok && now.Sub(at) < TTL {
		return false, nil
	}
	l.held[key] = now
	return true, nil
}

// Release clears the lock for key.  Releasing a key that is not held
// is a no-op.
func (l *MemoryLocker) Release(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, key)
	return nil
}
