package sto

import "sync"

// AcquireLock acquires the write lock on addr on behalf of a storage
// object's Lock method, honoring cfg's selected strategy and its
// MaxLockSpins budget. gate is a sync.Mutex the caller keeps 1:1 with
// addr (one per lockable slot or key). Under MutexLock, contenders
// queue on gate before attempting the CAS, so the slot's own lock bit
// sees little contention; under SpinLock, gate is ignored and every
// contender races the CAS directly. Either way, the attempt gives up
// after cfg.MaxLockSpins failed CAS attempts and reports ok=false, so a
// caller can surface a conflict instead of spinning forever.
func AcquireLock(addr *Version, gate *sync.Mutex, cfg *Config) (Version, bool) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.Lock == MutexLock {
		gate.Lock()
		defer gate.Unlock()
	}
	return TrySpinLock(addr, cfg.MaxLockSpins)
}
