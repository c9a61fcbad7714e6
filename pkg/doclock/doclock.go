// Package doclock serializes operations on a single document. Ingestion and
// deletion of the same (user, document) pair must not interleave; operations
// on different documents proceed concurrently.
package doclock

import "sync"

// Keyed hands out one mutex per (user, document) pair.
type Keyed struct {
	mu    sync.Mutex
	locks map[lockKey]*entry
}

type lockKey struct {
	userID     string
	documentID string
}

type entry struct {
	mu   sync.Mutex
	refs int
}

// NewKeyed creates a new keyed document lock.
func NewKeyed() *Keyed {
	return &Keyed{
		locks: make(map[lockKey]*entry),
	}
}

// Lock acquires the mutex for the (user, document) pair, blocking until it
// is free. The returned function releases it.
func (k *Keyed) Lock(userID, documentID string) (unlock func()) {
	key := lockKey{userID: userID, documentID: documentID}

	k.mu.Lock()
	e, ok := k.locks[key]
	if !ok {
		e = &entry{}
		k.locks[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()

	return func() {
		e.mu.Unlock()

		k.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
