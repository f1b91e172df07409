package payments

import (
	"context"
	"errors"
	"sync"
	"time"
)

var ErrLockBusy = errors.New("lock is held by another request")

// Locker serialises work on one key across requests. The returned release
// func must be called exactly once.
type Locker interface {
	Lock(ctx context.Context, key string, ttl time.Duration) (release func(), err error)
}

// LocalLocker is an in-process Locker for single-instance deployments and tests.
type LocalLocker struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{slots: make(map[string]chan struct{})}
}

func (l *LocalLocker) slot(key string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	ch, ok := l.slots[key]
	if !ok {
		ch = make(chan struct{}, 1)
		l.slots[key] = ch
	}
	return ch
}

// Lock waits for the key until ctx is done. ttl is ignored; the lock lives
// until released.
func (l *LocalLocker) Lock(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	ch := l.slot(key)
	select {
	case ch <- struct{}{}:
	case <-ctx.Done():
		return nil, ErrLockBusy
	}

	var once sync.Once
	return func() {
		once.Do(func() { <-ch })
	}, nil
}
