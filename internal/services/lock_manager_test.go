// internal/services/lock_manager_test.go
package services

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestExecuteWithSessionLockSerializes(t *testing.T) {
	lm := NewLockManager()

	started := make(chan struct{})
	var order []int
	go lm.ExecuteWithSessionLock("session", func() error {
		close(started)
		time.Sleep(50 * time.Millisecond)
		order = append(order, 1)
		return nil
	})

	<-started
	if err := lm.ExecuteWithSessionLock("session", func() error {
		order = append(order, 2)
		return nil
	}); err != nil {
		t.Fatalf("lock execution failed: %v", err)
	}

	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Errorf("mutations should serialize in acquisition order, got %v", order)
	}
}

func TestDifferentSessionsProceedInParallel(t *testing.T) {
	lm := NewLockManager()

	holding := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})
	go func() {
		lm.ExecuteWithSessionLock("session-a", func() error {
			close(holding)
			<-release
			return nil
		})
		close(done)
	}()

	<-holding
	finished := make(chan struct{})
	go func() {
		lm.ExecuteWithSessionLock("session-b", func() error { return nil })
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Error("a different session must not wait on session-a's lock")
	}

	close(release)
	<-done
}

func TestCleanupSparesHeldLocks(t *testing.T) {
	lm := NewLockManager()

	lm.globalLock.Lock()
	for i := 0; i < 250; i++ {
		lm.sessionLocks[fmt.Sprintf("stale-%d", i)] = &lockInfo{
			Mutex:    &sync.RWMutex{},
			LastUsed: time.Now().Add(-time.Hour),
		}
	}
	lm.globalLock.Unlock()

	holding := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})
	go func() {
		lm.ExecuteWithSessionLock("held", func() error {
			close(holding)
			<-release
			return nil
		})
		close(done)
	}()
	<-holding

	// Age the held entry so only its reference count protects it.
	lm.globalLock.Lock()
	lm.sessionLocks["held"].LastUsed = time.Now().Add(-time.Hour)
	lm.globalLock.Unlock()

	lm.cleanupUnusedLocks()

	lm.globalLock.Lock()
	heldEntry, heldExists := lm.sessionLocks["held"]
	remaining := len(lm.sessionLocks)
	lm.globalLock.Unlock()

	if !heldExists {
		t.Fatal("cleanup must not remove a lock that is still held")
	}
	if heldEntry.Refs != 1 {
		t.Errorf("held lock should carry one reference, got %d", heldEntry.Refs)
	}
	if remaining != 1 {
		t.Errorf("stale idle locks should be reclaimed, %d entries remain", remaining)
	}

	close(release)
	<-done

	lm.globalLock.Lock()
	refs := lm.sessionLocks["held"].Refs
	lm.globalLock.Unlock()
	if refs != 0 {
		t.Errorf("references should drop to zero after release, got %d", refs)
	}
}
