// Package lock serializes chat commands per hunter.
//
// Storage-level conditional updates are what keep hunter and gate rows
// consistent; this lock only stops one chat from racing itself, such as a
// double-tapped inline button.
package lock

import (
	"context"
	"sync"
)

type entry struct {
	sem  chan struct{}
	refs int
}

// KeyedLock is a set of mutexes keyed by id. Idle entries are released.
type KeyedLock struct {
	mu      sync.Mutex
	entries map[int64]*entry
}

// NewKeyedLock creates an empty KeyedLock.
func NewKeyedLock() *KeyedLock {
	return &KeyedLock{entries: make(map[int64]*entry)}
}

func (l *KeyedLock) acquire(id int64) *entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[id]
	if !ok {
		e = &entry{sem: make(chan struct{}, 1)}
		l.entries[id] = e
	}
	e.refs++
	return e
}

func (l *KeyedLock) release(id int64, e *entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.entries, id)
	}
}

// Lock blocks until id is held or ctx is done.
func (l *KeyedLock) Lock(ctx context.Context, id int64) error {
	e := l.acquire(id)
	select {
	case e.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		l.release(id, e)
		return ErrLockTimeout
	}
}

// TryLock acquires id without blocking and reports whether it succeeded.
func (l *KeyedLock) TryLock(id int64) bool {
	e := l.acquire(id)
	select {
	case e.sem <- struct{}{}:
		return true
	default:
		l.release(id, e)
		return false
	}
}

// Unlock releases id. Unlocking an id that is not held is a no-op.
func (l *KeyedLock) Unlock(id int64) {
	l.mu.Lock()
	e, ok := l.entries[id]
	l.mu.Unlock()
	if !ok {
		return
	}
	select {
	case <-e.sem:
		l.release(id, e)
	default:
	}
}

// WithLock runs fn while holding id.
func (l *KeyedLock) WithLock(ctx context.Context, id int64, fn func() error) error {
	if err := l.Lock(ctx, id); err != nil {
		return err
	}
	defer l.Unlock(id)
	return fn()
}

// size returns the number of tracked ids.
func (l *KeyedLock) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
