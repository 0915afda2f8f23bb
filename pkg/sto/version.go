// Package sto implements the transactional object protocol: a
// version-based optimistic concurrency control (OCC) engine that
// coordinates commit across heterogeneous storage objects through a
// uniform lock/check/install/unlock contract.
package sto

import (
	"runtime"
	"sync/atomic"
)

// Version is a packed version word: the high bit is the lock flag, the
// remaining bits are a monotonic counter. Objects store one Version per
// slot and compare-and-swap it to acquire the write lock.
type Version uint64

// lockBit occupies the top bit of the word, leaving 63 bits for the
// counter — enough headroom that wraparound is not a practical concern
// at any commit rate this engine can sustain.
const lockBit Version = 1 << 63

// IsLocked reports whether v has its lock bit set.
func (v Version) IsLocked() bool {
	return v&lockBit != 0
}

// Unlocked returns v with the lock bit cleared.
func (v Version) Unlocked() Version {
	return v &^ lockBit
}

// Locked returns v with the lock bit set.
func (v Version) Locked() Version {
	return v | lockBit
}

// SameCounter reports whether v and other carry the same counter value,
// ignoring the lock bit. This is the core seqlock/validation comparison:
// two observations with equal counters, regardless of who holds the
// lock bit right now, came from the same published value.
func (v Version) SameCounter(other Version) bool {
	return (v^other)&^lockBit == 0
}

// LoadVersion does an atomic load of the version word.
func LoadVersion(addr *Version) Version {
	return Version(atomic.LoadUint64((*uint64)(addr)))
}

// storeVersion does an atomic store of the version word.
func storeVersion(addr *Version, v Version) {
	atomic.StoreUint64((*uint64)(addr), uint64(v))
}

// casVersion is a strong compare-and-swap on the version word.
func casVersion(addr *Version, old, new Version) bool {
	return atomic.CompareAndSwapUint64((*uint64)(addr), uint64(old), uint64(new))
}

// SpinLock spins until it acquires the write lock on addr, yielding
// with runtime.Gosched every 32 failed attempts (see pause) so a
// contended lock doesn't starve the scheduler. It returns the version word as observed
// immediately before the successful CAS (with the lock bit still
// clear), which callers use as the "prior" version for install.
func SpinLock(addr *Version) Version {
	spins := 0
	for {
		cur := LoadVersion(addr)
		if !cur.IsLocked() && casVersion(addr, cur, cur.Locked()) {
			return cur
		}
		spins++
		pause(spins)
	}
}

// TrySpinLock attempts to acquire the write lock on addr, giving up
// after maxSpins unsuccessful attempts. It reports the prior (unlocked)
// version and whether the lock was acquired.
func TrySpinLock(addr *Version, maxSpins int) (Version, bool) {
	for i := 0; i < maxSpins; i++ {
		cur := LoadVersion(addr)
		if !cur.IsLocked() && casVersion(addr, cur, cur.Locked()) {
			return cur, true
		}
		pause(i + 1)
	}
	return 0, false
}

// Unlock clears the lock bit on addr, setting the counter to next.
func Unlock(addr *Version, next Version) {
	storeVersion(addr, next.Unlocked())
}

// pause is the CPU-relax hint between failed CAS attempts: every 32nd
// attempt yields to the Go scheduler and the others retry at once, matching the
// teacher's atomic-pin-count busy loops rather than sleeping — this is
// a spin lock, not a blocking mutex.
func pause(attempt int) {
	if attempt%32 == 0 {
		runtime.Gosched()
	}
}
