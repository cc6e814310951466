package lock

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLocker is a Locker backed by a shared Redis instance, for
// deployments running more than one server process.  SET NX with a
// TTL gives the same acquire/release/reclaim contract as the in-memory
// locker: the key expires on its own if the holder crashes.
type RedisLocker struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisLocker returns a RedisLocker writing keys under the given
// prefix.  The client must be non-nil; callers that fail to reach
// Redis at startup should fall back to NewMemoryLocker.
func NewRedisLocker(rdb *redis.Client, prefix string) *RedisLocker {
	if prefix == "" {
		prefix = "verify-lock"
	}
	return &RedisLocker{rdb: rdb, prefix: prefix}
}

func (l *RedisLocker) key(k string) string { return l.prefix + ":" + k }

// Acquire attempts SET NX with the lock TTL.  Redis itself expires
// abandoned locks, so no explicit reclaim pass is needed.
func (l *RedisLocker) Acquire(ctx context.Context, key string) (bool, error) {
	ok, err := l.rdb.SetNX(ctx, l.key(key), time.Now().UTC().Format(time.RFC3339Nano), TTL).Result()
	if err != nil {
		return false, err
	}
	return ok, nil
}

// Release deletes the key.  Deleting a missing key is a no-op, which
// keeps Release safe on every exit path.
func (l *RedisLocker) Release(ctx context.Context, key string) error {
	return l.rdb.Del(ctx, l.key(key)).Err()
}
