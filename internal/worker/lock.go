package worker

import "sync"

// LockManager hands out per-record locks so duplicate deliveries of the same
// task are not processed concurrently by workers in this process.
//
// The outer mutex guards the map; each record has its own mutex. Entries are
// removed on Unlock so the map only holds records in flight.
type LockManager struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewLockManager() *LockManager {
	return &LockManager{
		locks: make(map[string]*sync.Mutex),
	}
}

// TryLock acquires the lock for recordID without blocking. It returns false
// when another worker holds it.
func (lm *LockManager) TryLock(recordID string) bool {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	if _, held := lm.locks[recordID]; held {
		return false
	}

	lock := &sync.Mutex{}
	lock.Lock()
	lm.locks[recordID] = lock
	return true
}

// Unlock releases the lock for recordID. Unlocking a record that is not held
// is a no-op.
func (lm *LockManager) Unlock(recordID string) {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	if lock, held := lm.locks[recordID]; held {
		delete(lm.locks, recordID)
		lock.Unlock()
	}
}

// Held returns the number of records currently locked.
func (lm *LockManager) Held() int {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	return len(lm.locks)
}
