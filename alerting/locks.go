package alerting

import "sync"

type lockKey struct {
	userID  int64
	ordinal int
}

// keyedLocks provides per-(user, pollutant) mutual exclusion. Locks are
// created on first use and never released back; the key space is bounded by
// users x pollutants.
type keyedLocks struct {
	mu    sync.Mutex
	locks map[lockKey]*sync.Mutex
}

func newKeyedLocks() *keyedLocks {
	return &keyedLocks{locks: make(map[lockKey]*sync.Mutex)}
}

func (k *keyedLocks) get(key lockKey) *sync.Mutex {
	k.mu.Lock()
	defer k.mu.Unlock()
	l, ok := k.locks[key]
	if !ok {
		l = &sync.Mutex{}
		k.locks[key] = l
	}
	return l
}
