// internal/services/lock_manager.go
package services

import (
	"sync"
	"time"
)

// LockManager serializes mutations per session id while letting different
// sessions proceed in parallel. Idle locks are reclaimed once the table
// grows past a threshold; a reference count keeps a lock alive while any
// goroutine still holds or awaits it.
type LockManager struct {
	sessionLocks  map[string]*lockInfo
	globalLock    sync.Mutex
	cleanupTicker *time.Ticker
}

type lockInfo struct {
	Mutex    *sync.RWMutex
	LastUsed time.Time
	Refs     int
}

// NewLockManager creates the lock manager and starts its cleanup loop.
func NewLockManager() *LockManager {
	lm := &LockManager{
		sessionLocks: make(map[string]*lockInfo),
	}
	lm.startCleanup()
	return lm
}

// acquire returns the session's lock entry with its reference count raised,
// creating the entry on first use.
func (lm *LockManager) acquire(sessionID string) *lockInfo {
	lm.globalLock.Lock()
	defer lm.globalLock.Unlock()

	info, exists := lm.sessionLocks[sessionID]
	if !exists {
		info = &lockInfo{Mutex: &sync.RWMutex{}}
		lm.sessionLocks[sessionID] = info
	}
	info.Refs++
	info.LastUsed = time.Now()
	return info
}

func (lm *LockManager) release(info *lockInfo) {
	lm.globalLock.Lock()
	defer lm.globalLock.Unlock()
	info.Refs--
	info.LastUsed = time.Now()
}

// ExecuteWithSessionLock runs fn while holding the session's exclusive lock.
func (lm *LockManager) ExecuteWithSessionLock(sessionID string, fn func() error) error {
	info := lm.acquire(sessionID)
	defer lm.release(info)

	info.Mutex.Lock()
	defer info.Mutex.Unlock()
	return fn()
}

// ExecuteWithSessionReadLock runs fn while holding the session's shared lock.
func (lm *LockManager) ExecuteWithSessionReadLock(sessionID string, fn func() error) error {
	info := lm.acquire(sessionID)
	defer lm.release(info)

	info.Mutex.RLock()
	defer info.Mutex.RUnlock()
	return fn()
}

func (lm *LockManager) startCleanup() {
	lm.cleanupTicker = time.NewTicker(5 * time.Minute)
	go func() {
		for range lm.cleanupTicker.C {
			lm.cleanupUnusedLocks()
		}
	}()
}

// cleanupUnusedLocks drops idle entries. Entries with live references are
// never removed, so a session id maps to at most one mutex for as long as
// anyone holds it.
func (lm *LockManager) cleanupUnusedLocks() {
	lm.globalLock.Lock()
	defer lm.globalLock.Unlock()

	const maxLocks = 200
	const lockTimeout = 30 * time.Minute

	if len(lm.sessionLocks) <= maxLocks {
		return
	}

	now := time.Now()
	for sessionID, info := range lm.sessionLocks {
		if info.Refs == 0 && now.Sub(info.LastUsed) > lockTimeout {
			delete(lm.sessionLocks, sessionID)
		}
	}
}
