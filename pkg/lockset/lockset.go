// Package lockset provides mutual exclusion scoped to a string key, so
// operations on distinct keys proceed in parallel whilst operations on the
// same key are serialized.
package lockset

import "sync"

type LockSet struct {
	mu    sync.Mutex
	locks map[string]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int
}

func NewLockSet() *LockSet {
	return &LockSet{
		locks: make(map[string]*entry),
	}
}

// Lock acquires the lock for key, blocking whilst another holder has it.
func (ls *LockSet) Lock(key string) {
	ls.mu.Lock()

	e, ok := ls.locks[key]
	if !ok {
		e = &entry{}
		ls.locks[key] = e
	}

	e.refs++

	ls.mu.Unlock()

	e.mu.Lock()
}

// Unlock releases the lock for key. The entry is discarded once no other
// goroutine is waiting on it.
func (ls *LockSet) Unlock(key string) {
	ls.mu.Lock()

	e, ok := ls.locks[key]
	if !ok {
		ls.mu.Unlock()

		return
	}

	e.refs--
	if e.refs == 0 {
		delete(ls.locks, key)
	}

	ls.mu.Unlock()

	e.mu.Unlock()
}

// Len returns the number of keys currently held or waited on.
func (ls *LockSet) Len() int {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	return len(ls.locks)
}
