// Package lock provides per-key mutual exclusion for ledger writers.
package lock

import (
	"context"
	"sync"
	"time"

	"github.com/rentledger/backend/internal/domain/shared"
)

// LocalLocker serializes holders of the same key within one process.
// It is enough for a single API instance and for tests; replicas need RedisLocker.
type LocalLocker struct {
	mu      sync.Mutex
	slots   map[string]*slot
	maxWait time.Duration
}

type slot struct {
	ch   chan struct{}
	refs int
}

// NewLocalLocker creates a LocalLocker. A caller waits at most maxWait for a held key
// before getting a conflict; zero means wait until the context ends.
func NewLocalLocker(maxWait time.Duration) *LocalLocker {
	return &LocalLocker{
		slots:   make(map[string]*slot),
		maxWait: maxWait,
	}
}

// Lock blocks until key is free, the wait budget runs out, or ctx is done
func (l *LocalLocker) Lock(ctx context.Context, key string) (shared.Lock, error) {
	s := l.acquireSlot(key)

	waitCtx := ctx
	if l.maxWait > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, l.maxWait)
		defer cancel()
	}

	select {
	case s.ch <- struct{}{}:
		return &localLock{locker: l, key: key, slot: s}, nil
	case <-waitCtx.Done():
		l.dropSlot(key, s)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, shared.NewConflictError("resource %s is busy, retry the operation", key)
	}
}

func (l *LocalLocker) acquireSlot(key string) *slot {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.slots[key]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		l.slots[key] = s
	}
	s.refs++
	return s
}

func (l *LocalLocker) dropSlot(key string, s *slot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s.refs--
	if s.refs == 0 {
		delete(l.slots, key)
	}
}

// Held returns the number of keys with a holder or waiter
func (l *LocalLocker) Held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.slots)
}

type localLock struct {
	once   sync.Once
	locker *LocalLocker
	key    string
	slot   *slot
}

func (h *localLock) Release(context.Context) error {
	h.once.Do(func() {
		<-h.slot.ch
		h.locker.dropSlot(h.key, h.slot)
	})
	return nil
}

var _ shared.Locker = (*LocalLocker)(nil)
