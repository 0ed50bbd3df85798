// Package lock serializes audit runs across processes.
package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

// ErrRunInProgress is returned when another audit run holds the lock.
var ErrRunInProgress = errors.New("an audit run is already in progress")

const defaultTTL = 15 * time.Minute

// RunLocker hands out the single audit run slot.
type RunLocker interface {
	Acquire(ctx context.Context, key string) (Releaser, error)
}

// Releaser gives the slot back.
type Releaser interface {
	Release(ctx context.Context) error
}

type redisLocker struct {
	client *redislock.Client
	ttl    time.Duration
}

// NewRedisLocker builds a locker on an existing redis client.
func NewRedisLocker(client *redis.Client, ttl time.Duration) RunLocker {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &redisLocker{client: redislock.New(client), ttl: ttl}
}

func (l *redisLocker) Acquire(ctx context.Context, key string) (Releaser, error) {
	lk, err := l.client.Obtain(ctx, lockKey(key), l.ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, ErrRunInProgress
	}
	if err != nil {
		return nil, fmt.Errorf("error obtaining run lock: %w", err)
	}
	return &redisRelease{lock: lk}, nil
}

type redisRelease struct {
	lock *redislock.Lock
}

func (r *redisRelease) Release(ctx context.Context) error {
	err := r.lock.Release(ctx)
	if errors.Is(err, redislock.ErrLockNotHeld) {
		// expired under us; nothing left to give back
		return nil
	}
	return err
}

// localLocker guards a single process when redis is not configured.
type localLocker struct {
	mu   sync.Mutex
	held map[string]bool
}

func NewLocalLocker() RunLocker {
	return &localLocker{held: make(map[string]bool)}
}

func (l *localLocker) Acquire(ctx context.Context, key string) (Releaser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] {
		return nil, ErrRunInProgress
	}
	l.held[key] = true
	return releaseFunc(func() {
		l.mu.Lock()
		delete(l.held, key)
		l.mu.Unlock()
	}), nil
}

type releaseFunc func()

func (f releaseFunc) Release(context.Context) error {
	f()
	return nil
}

func lockKey(key string) string {
	return "lock:audit:" + key
}
