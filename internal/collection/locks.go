package collection

import (
	"context"
	"sync"
)

// rowLock is a mutex that can be abandoned when the caller's context ends.
type rowLock struct {
	ch   chan struct{}
	refs int // goroutines holding or waiting for ch
}

// rowLocks serializes read-modify-write cycles per parent row. Entries are
// dropped once nobody holds or waits for them, so the map stays bounded by
// the number of rows in flight.
type rowLocks struct {
	mu    sync.Mutex // protects locks itself
	locks map[int64]*rowLock
}

func newRowLocks() *rowLocks {
	return &rowLocks{locks: make(map[int64]*rowLock)}
}

// acquire blocks until the row is free or ctx is done.
func (l *rowLocks) acquire(ctx context.Context, parentID int64) (func(), error) {
	l.mu.Lock()
	lk, ok := l.locks[parentID]
	if !ok {
		lk = &rowLock{ch: make(chan struct{}, 1)}
		l.locks[parentID] = lk
	}
	lk.refs++
	l.mu.Unlock()

	select {
	case lk.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(parentID, lk)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-lk.ch
			l.release(parentID, lk)
		})
	}, nil
}

func (l *rowLocks) release(parentID int64, lk *rowLock) {
	l.mu.Lock()
	defer l.mu.Unlock()

	lk.refs--
	if lk.refs == 0 {
		delete(l.locks, parentID)
	}
}

// size is the number of rows currently tracked.
func (l *rowLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
