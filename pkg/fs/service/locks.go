package service

import "sync"

// itemLocks hands out one mutex per item uid, created on demand and
// reclaimed when the last holder releases it. The replace path of the
// upload protocol holds the lock across its whole rename sequence so two
// concurrent replaces of the same file cannot interleave their tmp/prev
// renames.
type itemLocks struct {
	mu    sync.Mutex
	locks map[string]*itemLock
}

type itemLock struct {
	sync.Mutex
	refs int
}

func newItemLocks() *itemLocks {
	return &itemLocks{locks: make(map[string]*itemLock)}
}

// Acquire locks the mutex for uid and returns its release function.
func (l *itemLocks) Acquire(uid string) func() {
	l.mu.Lock()
	entry, ok := l.locks[uid]
	if !ok {
		entry = &itemLock{}
		l.locks[uid] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.Lock()

	return func() {
		entry.Unlock()

		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, uid)
		}
		l.mu.Unlock()
	}
}
