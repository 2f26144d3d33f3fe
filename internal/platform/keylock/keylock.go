// Package keylock serializes work per key, such as a learner ID, while
// letting different keys proceed in parallel.
package keylock

import "sync"

// Locks is a set of mutexes addressed by key. Entries are dropped once
// nobody holds or waits on them. The zero value is not usable; call New.
type Locks struct {
	mu    sync.Mutex
	locks map[string]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int
}

func New() *Locks {
	return &Locks{locks: make(map[string]*entry)}
}

// Lock acquires the mutex for key and returns its release func.
func (l *Locks) Lock(key string) func() {
	l.mu.Lock()
	e, ok := l.locks[key]
	if !ok {
		e = &entry{}
		l.locks[key] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		l.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(l.locks, key)
		}
		l.mu.Unlock()
	}
}

// Len reports how many keys are held or waited on.
func (l *Locks) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
