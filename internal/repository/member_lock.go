package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"
)

const (
	memberLockKeyPrefix = "lock:member:"
	lockRetryInterval   = 25 * time.Millisecond
)

// releaseScript deletes the lock only if it still carries our token, so an
// expired holder cannot release a lock somebody else now owns.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisMemberLocker implements domain.MemberLocker across processes with a
// SET NX PX lease per member.
type RedisMemberLocker struct {
	client *redis.Client
}

func NewRedisMemberLocker(client *redis.Client) *RedisMemberLocker {
	return &RedisMemberLocker{client: client}
}

// Lock polls until the lease is acquired or ctx is done. The lease expires
// after ttl even if the holder crashes.
func (l *RedisMemberLocker) Lock(ctx context.Context, memberID string, ttl time.Duration) (func(), error) {
	key := memberLockKeyPrefix + memberID
	token := ulid.Make().String()

	ticker := time.NewTicker(lockRetryInterval)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to acquire member lock: %w", err)
		}
		if ok {
			return func() {
				releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				_ = releaseScript.Run(releaseCtx, l.client, []string{key}, token).Err()
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("member lock %s: %w", memberID, ctx.Err())
		case <-ticker.C:
		}
	}
}

// LocalMemberLocker implements domain.MemberLocker inside one process. It is
// used when Redis is unavailable and in tests.
type LocalMemberLocker struct {
	mu    sync.Mutex
	locks map[string]*memberLock
}

type memberLock struct {
	ch   chan struct{}
	refs int
}

func NewLocalMemberLocker() *LocalMemberLocker {
	return &LocalMemberLocker{locks: make(map[string]*memberLock)}
}

// Lock ignores ttl; the lock is held until unlock is called.
func (l *LocalMemberLocker) Lock(ctx context.Context, memberID string, _ time.Duration) (func(), error) {
	l.mu.Lock()
	lk, ok := l.locks[memberID]
	if !ok {
		lk = &memberLock{ch: make(chan struct{}, 1)}
		l.locks[memberID] = lk
	}
	lk.refs++
	l.mu.Unlock()

	select {
	case lk.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(memberID, lk)
		return nil, fmt.Errorf("member lock %s: %w", memberID, ctx.Err())
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-lk.ch
			l.release(memberID, lk)
		})
	}, nil
}

func (l *LocalMemberLocker) release(memberID string, lk *memberLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	lk.refs--
	if lk.refs == 0 {
		delete(l.locks, memberID)
	}
}
