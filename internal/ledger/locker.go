package ledger

import "context"

// Locker provides the global mutual exclusion every mutating operation runs
// under.
type Locker interface {
	Lock(ctx context.Context) (unlock func(), err error)
}

// LocalLocker serialises writers within one process.
type LocalLocker struct {
	sem chan struct{}
}

// NewLocalLocker creates an unlocked LocalLocker.
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{sem: make(chan struct{}, 1)}
}

// Lock blocks until the lock is free or ctx is done.
func (l *LocalLocker) Lock(ctx context.Context) (func(), error) {
	select {
	case l.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	released := false
	return func() {
		if released {
			return
		}
		released = true
		<-l.sem
	}, nil
}
