package store

import (
	"context"
	"time"

	"github.com/gofrs/flock"

	"github.com/outfitter-dev/blz/internal/blzerr"
)

// writeLock guards a single source directory against concurrent
// add/refresh/remove operations. Readers (search, get) do not take this
// lock: llms.json is only ever replaced via writeAtomic's rename, so a
// concurrent reader either sees the old complete file or the new complete
// file, never a partial one.
type writeLock struct {
	fl *flock.Flock
}

func newWriteLock(path string) *writeLock {
	return &writeLock{fl: flock.New(path)}
}

// Acquire blocks, retrying every 50ms, until the lock is held or a 10s
// bound elapses, returning LockContention if another process still holds
// it past the deadline.
func (w *writeLock) Acquire(ctx context.Context) (func(), error) {
	lockCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	ok, err := w.fl.TryLockContext(lockCtx, 50*time.Millisecond)
	if err != nil {
		return nil, blzerr.Wrap(blzerr.LockContention, "acquire source lock", err)
	}
	if !ok {
		return nil, blzerr.New(blzerr.LockContention, "source is locked by another process")
	}
	return func() { _ = w.fl.Unlock() }, nil
}
