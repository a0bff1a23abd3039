// Package lock provides advisory locking keyed by entity identity.
package lock

import "sync"

// KeyedMutex is a set of mutexes addressed by key. Locking a key blocks
// other lockers of the same key only; distinct keys proceed in parallel.
// Entries are reference counted and removed once the last holder releases,
// so the map does not grow with the number of entities ever locked.
type KeyedMutex struct {
	mu      sync.Mutex
	entries map[int64]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int
}

// NewKeyedMutex creates an empty keyed mutex set.
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{
		entries: make(map[int64]*entry),
	}
}

// Lock acquires the mutex for key, blocking until it is available.
func (k *KeyedMutex) Lock(key int64) {
	k.mu.Lock()
	e, ok := k.entries[key]
	if !ok {
		e = &entry{}
		k.entries[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()
}

// Unlock releases the mutex for key. It must be called exactly once per Lock.
func (k *KeyedMutex) Unlock(key int64) {
	k.mu.Lock()
	e, ok := k.entries[key]
	if !ok {
		k.mu.Unlock()
		panic("lock: unlock of unlocked key")
	}
	e.refs--
	if e.refs == 0 {
		delete(k.entries, key)
	}
	k.mu.Unlock()

	e.mu.Unlock()
}

// Len returns the number of keys currently held or waited on.
func (k *KeyedMutex) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.entries)
}
