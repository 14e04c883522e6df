package cache

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/distrib/backend/internal/application/reporting"
	"github.com/distrib/backend/internal/domain/shared"
)

// InMemoryCycleLocker serializes cycles inside one process. It is correct
// only for single-instance deployments.
type InMemoryCycleLocker struct {
	mu    sync.Mutex
	slots map[string]*slot
	wait  time.Duration
}

type slot struct {
	held chan struct{}
	refs int
}

// NewInMemoryCycleLocker creates a locker that waits at most wait
func NewInMemoryCycleLocker(wait time.Duration) *InMemoryCycleLocker {
	return &InMemoryCycleLocker{slots: make(map[string]*slot), wait: wait}
}

func (l *InMemoryCycleLocker) Lock(ctx context.Context, distributorID uuid.UUID, cycleAnchor time.Time) (func(), error) {
	key := reporting.CycleLockKey(distributorID, cycleAnchor)
	s := l.acquireSlot(key)

	timer := time.NewTimer(l.wait)
	defer timer.Stop()

	select {
	case s.held <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-s.held
				l.releaseSlot(key)
			})
		}, nil
	case <-timer.C:
		l.releaseSlot(key)
		return nil, shared.ErrCycleBusy
	case <-ctx.Done():
		l.releaseSlot(key)
		return nil, ctx.Err()
	}
}

func (l *InMemoryCycleLocker) acquireSlot(key string) *slot {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.slots[key]
	if !ok {
		s = &slot{held: make(chan struct{}, 1)}
		l.slots[key] = s
	}
	s.refs++
	return s
}

func (l *InMemoryCycleLocker) releaseSlot(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if s, ok := l.slots[key]; ok {
		if s.refs--; s.refs == 0 {
			delete(l.slots, key)
		}
	}
}

// size is the number of keys with a holder or waiter
func (l *InMemoryCycleLocker) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.slots)
}

var _ reporting.CycleLocker = (*InMemoryCycleLocker)(nil)
