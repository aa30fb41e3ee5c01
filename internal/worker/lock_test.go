package worker

import (
	"sync"
	"sync/atomic"
	"testing"
)

func TestLockManager_BasicLocking(t *testing.T) {
	lm := NewLockManager()

	if !lm.TryLock("rec-1") {
		t.Fatal("First TryLock should succeed")
	}
	if lm.TryLock("rec-1") {
		t.Error("Second TryLock on same record should fail")
	}

	lm.Unlock("rec-1")

	if !lm.TryLock("rec-1") {
		t.Error("TryLock should succeed after unlock")
	}
	lm.Unlock("rec-1")

	if lm.Held() != 0 {
		t.Errorf("Held() = %d, want 0", lm.Held())
	}
}

func TestLockManager_IndependentRecords(t *testing.T) {
	lm := NewLockManager()

	for _, id := range []string{"a", "b", "c"} {
		if !lm.TryLock(id) {
			t.Errorf("TryLock(%q) should succeed", id)
		}
	}
	if lm.Held() != 3 {
		t.Errorf("Held() = %d, want 3", lm.Held())
	}
	if lm.TryLock("b") {
		t.Error("Second lock on b should fail")
	}
}

func TestLockManager_UnlockNotHeld(t *testing.T) {
	lm := NewLockManager()
	lm.Unlock("missing")

	if !lm.TryLock("missing") {
		t.Error("Should be able to lock after unlocking a record that was not held")
	}
}

func TestLockManager_Concurrent(t *testing.T) {
	lm := NewLockManager()

	var acquired int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if lm.TryLock("shared") {
				atomic.AddInt32(&acquired, 1)
			}
		}()
	}
	wg.Wait()

	if acquired != 1 {
		t.Errorf("acquired = %d, want exactly 1", acquired)
	}
}
