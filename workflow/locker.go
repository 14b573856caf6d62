package workflow

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/bsm/redislock"
)

var ErrLockNotObtained = errors.New("could not obtain lock")

// Locker serializes work on a key. release must be called exactly once.
type Locker interface {
	Obtain(ctx context.Context, key string) (release func(), err error)
}

// LocalLocker serializes within one process. Waiting honours ctx.
type LocalLocker struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{slots: map[string]chan struct{}{}}
}

func (l *LocalLocker) Obtain(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	slot, ok := l.slots[key]
	if !ok {
		slot = make(chan struct{}, 1)
		l.slots[key] = slot
	}
	l.mu.Unlock()

	select {
	case slot <- struct{}{}:
		var once sync.Once
		return func() { once.Do(func() { <-slot }) }, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %s: %v", ErrLockNotObtained, key, ctx.Err())
	}
}

// RedisLocker serializes across instances with redislock.
type RedisLocker struct {
	client *redislock.Client
	ttl    time.Duration
	retry  redislock.RetryStrategy
}

// NewRedisLocker holds locks for ttl and retries every 50ms for up to ttl.
func NewRedisLocker(client *redislock.Client, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	backoff := 50 * time.Millisecond
	return &RedisLocker{
		client: client,
		ttl:    ttl,
		retry:  redislock.LimitRetry(redislock.LinearBackoff(backoff), int(ttl/backoff)),
	}
}

func (l *RedisLocker) Obtain(ctx context.Context, key string) (func(), error) {
	lock, err := l.client.Obtain(ctx, key, l.ttl, &redislock.Options{RetryStrategy: l.retry})
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, fmt.Errorf("%w: %s", ErrLockNotObtained, key)
	}
	if err != nil {
		return nil, fmt.Errorf("obtain lock %s: %w", key, err)
	}
	return func() {
		// the request context may already be cancelled
		_ = lock.Release(context.Background())
	}, nil
}

func stockLockKey(businessId string, stage int, itemId int) string {
	return fmt.Sprintf("stock:%s:%d:%d", businessId, stage, itemId)
}

func coaLockKey(businessId string, parentAccountId int) string {
	return fmt.Sprintf("coa:%s:%d", businessId, parentAccountId)
}

// obtainAll takes every key in sorted order so that workflows touching the same
// items never wait on each other in a cycle.
func obtainAll(ctx context.Context, locker Locker, keys []string) (func(), error) {
	uniq := make([]string, 0, len(keys))
	seen := map[string]bool{}
	for _, k := range keys {
		if !seen[k] {
			seen[k] = true
			uniq = append(uniq, k)
		}
	}
	sort.Strings(uniq)

	releases := make([]func(), 0, len(uniq))
	releaseAll := func() {
		for i := len(releases) - 1; i >= 0; i-- {
			releases[i]()
		}
	}
	for _, k := range uniq {
		release, err := locker.Obtain(ctx, k)
		if err != nil {
			releaseAll()
			return nil, err
		}
		releases = append(releases, release)
	}
	return releaseAll, nil
}
