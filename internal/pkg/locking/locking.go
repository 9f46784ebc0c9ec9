// Package locking wraps redsync behind a lease API: Acquire hands back a
// Lease, Release is a no-op when the lease already expired or was stolen.
// Call sites never see lock tokens.
package locking

import (
	"context"
	"errors"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
)

// ErrNotAcquired is returned when the lock is still held after the bounded
// spin-wait. Callers surface it as retryable.
var ErrNotAcquired = errors.New("lock_not_acquired")

type Locker struct {
	rs         *redsync.Redsync
	ttl        time.Duration
	tries      int
	retryDelay time.Duration
}

// New builds a Locker whose leases live for ttl and whose Acquire spins at
// most tries times with retryDelay between attempts.
func New(client redis.UniversalClient, ttl time.Duration, tries int, retryDelay time.Duration) *Locker {
	pool := goredis.NewPool(client)
	return &Locker{rs: redsync.New(pool), ttl: ttl, tries: tries, retryDelay: retryDelay}
}

func (l *Locker) Acquire(ctx context.Context, key string) (*Lease, error) {
	mutex := l.rs.NewMutex(key,
		redsync.WithExpiry(l.ttl),
		redsync.WithTries(l.tries),
		redsync.WithRetryDelay(l.retryDelay),
	)
	if err := mutex.LockContext(ctx); err != nil {
		return nil, ErrNotAcquired
	}
	return &Lease{mutex: mutex}, nil
}

type Lease struct {
	mutex *redsync.Mutex
}

// Release is safe to defer on every path, including after the TTL ran out.
func (le *Lease) Release(ctx context.Context) {
	if le == nil || le.mutex == nil {
		return
	}
	//nolint:errcheck
	le.mutex.UnlockContext(ctx)
}
