package sto

import (
	"testing"
	"time"
)

func TestLockedUnlockedRoundTrip(t *testing.T) {
	v := Version(42)
	locked := v.Locked()
	if !locked.IsLocked() {
		t.Fatal("expected Locked() to set the lock bit")
	}
	if locked.Unlocked() != v {
		t.Fatalf("expected Unlocked() to restore %d, got %d", v, locked.Unlocked())
	}
}

func TestSameCounterIgnoresLockBit(t *testing.T) {
	a := Version(7)
	b := Version(7).Locked()
	if !a.SameCounter(b) {
		t.Fatal("expected SameCounter to ignore the lock bit")
	}
	if a.SameCounter(Version(8)) {
		t.Fatal("expected different counters to disagree")
	}
}

func TestSpinLockExcludesConcurrentLockers(t *testing.T) {
	var v Version
	prior := SpinLock(&v)
	if prior != 0 {
		t.Fatalf("expected prior version 0, got %d", prior)
	}
	if !LoadVersion(&v).IsLocked() {
		t.Fatal("expected the word to be locked after SpinLock")
	}

	acquired := make(chan struct{})
	go func() {
		SpinLock(&v) // should block until this test unlocks
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("expected the second SpinLock to block while the first holds the lock")
	case <-time.After(20 * time.Millisecond):
	}

	Unlock(&v, prior.Unlocked()+1)
	<-acquired
}

func TestTrySpinLockGivesUp(t *testing.T) {
	var v Version
	SpinLock(&v)

	if _, ok := TrySpinLock(&v, 10); ok {
		t.Fatal("expected TrySpinLock to fail on an already-locked word")
	}
}

func TestUnlockClearsLockBitAndAdvancesCounter(t *testing.T) {
	var v Version
	prior := SpinLock(&v)
	Unlock(&v, prior.Unlocked()+1)

	cur := LoadVersion(&v)
	if cur.IsLocked() {
		t.Fatal("expected Unlock to clear the lock bit")
	}
	if cur != 1 {
		t.Fatalf("expected counter 1, got %d", cur)
	}
}
