// Package array implements the canonical storage collaborator the
// object protocol is specified against: a dense, fixed-length array of
// versioned slots, each independently lockable.
package array

import (
	"fmt"
	"sync"

	"github.com/tidalstm/sto/pkg/sto"
)

// ErrIndexOutOfRange is returned (never panicked) by the non-keyed
// accessor paths when an index falls outside [0, N). It is the array's
// InvalidKey disposition: this object's responsibility per spec §7, not
// a core engine concern.
var ErrIndexOutOfRange = fmt.Errorf("array: index out of range")

type slot[T comparable] struct {
	version sto.Version
	gate    sync.Mutex // serializes contenders under Config.Lock == MutexLock; see sto.AcquireLock
	value   T
}

// FixedArray is a length-N dense array of (version, value) slots — the
// sample storage object anchoring the transactional object contract.
// Its zero value is not usable; construct with New or NewWithConfig.
type FixedArray[T comparable] struct {
	slots []slot[T]
	cfg   *sto.Config
	salt  uint64
}

// New creates a fixed array of length n, all slots zero-valued at
// version 0, using sto.DefaultConfig for its locking tunables.
func New[T comparable](n int) *FixedArray[T] {
	return NewWithConfig[T](n, sto.DefaultConfig())
}

// NewWithConfig is New, with an explicit *sto.Config controlling the
// lock strategy and spin budget Lock consults.
func NewWithConfig[T comparable](n int, cfg *sto.Config) *FixedArray[T] {
	if cfg == nil {
		cfg = sto.DefaultConfig()
	}
	return &FixedArray[T]{
		slots: make([]slot[T], n),
		cfg:   cfg,
		salt:  sto.NextObjectSalt(),
	}
}

// Len returns the array's fixed length.
func (a *FixedArray[T]) Len() int { return len(a.slots) }

// ThreadInit registers the calling goroutine with this object's
// reclamation contract. The fixed array never frees a slot — it has no
// variable structure to reclaim — so this is a no-op, kept only so
// FixedArray satisfies the same thread-bootstrap shape every object in
// this module does; the real per-thread registration for reclamation
// happens against pkg/epoch.Registry, which bench.Run wires in
// separately.
func (a *FixedArray[T]) ThreadInit() error { return nil }

func (a *FixedArray[T]) checkRange(i int) error {
	if i < 0 || i >= len(a.slots) {
		return ErrIndexOutOfRange
	}
	return nil
}

// Read is the non-transactional read: returns slot[i]'s value with no
// synchronization. Callers accept torn reads in exchange for zero
// overhead; use TransRead inside a transaction for a consistent view.
func (a *FixedArray[T]) Read(i int) (T, error) {
	var zero T
	if err := a.checkRange(i); err != nil {
		return zero, err
	}
	return a.slots[i].value, nil
}

// Write is the non-transactional write: lock, store, unlock.
func (a *FixedArray[T]) Write(i int, v T) error {
	if err := a.checkRange(i); err != nil {
		return err
	}
	prior := sto.SpinLock(&a.slots[i].version)
	a.slots[i].value = v
	sto.Unlock(&a.slots[i].version, prior.Unlocked()+1)
	return nil
}

// TransRead performs a transactional (seqlock) read of slot i: it reads
// the version, then the value, then the version again, retrying until
// both observations agree and the slot was unlocked throughout. It
// records (i, the unlocked version observed) as this transaction's read
// of slot i, then returns the value — or the transaction's own buffered
// write for i, if TransWrite was already called on it this transaction.
func (a *FixedArray[T]) TransRead(txn *sto.Transaction, i int) (T, error) {
	var zero T
	if err := a.checkRange(i); err != nil {
		return zero, err
	}

	item, err := txn.Item(a, uint64(i))
	if err != nil {
		return zero, err
	}
	if item.HasWrite() {
		return sto.WriteValue[T](item), nil
	}

	for {
		v1 := sto.LoadVersion(&a.slots[i].version)
		val := a.slots[i].value // acquire-fenced by the LoadVersion above on most platforms; re-read version below to catch a racing writer
		v2 := sto.LoadVersion(&a.slots[i].version)
		if v1 == v2 && !v1.IsLocked() {
			item.AddRead(v1)
			return val, nil
		}
	}
}

// TransWrite buffers a write of v to slot i; it is not published until
// the transaction successfully commits.
func (a *FixedArray[T]) TransWrite(txn *sto.Transaction, i int, v T) error {
	if err := a.checkRange(i); err != nil {
		return err
	}
	item, err := txn.Item(a, uint64(i))
	if err != nil {
		return err
	}
	item.AddWrite(v)
	return nil
}

// UID extends the slot index with this array's object salt so that
// write items from different FixedArray instances (or different object
// kinds entirely) never collide in the commit protocol's global lock
// order.
func (a *FixedArray[T]) UID(item *sto.Item) sto.UID {
	return sto.UID(a.salt<<32 | (item.Key() & 0xffffffff))
}

// Lock acquires the write lock on item's slot, per a.cfg's selected
// strategy and spin budget. It returns sto.ErrConflict if the lock
// can't be acquired within Config.MaxLockSpins attempts.
func (a *FixedArray[T]) Lock(item *sto.Item) error {
	i := item.Key()
	if _, ok := sto.AcquireLock(&a.slots[i].version, &a.slots[i].gate, a.cfg); !ok {
		return sto.ErrConflict
	}
	return nil
}

// IsLocked reports whether item's slot is currently locked by anyone.
func (a *FixedArray[T]) IsLocked(item *sto.Item) bool {
	return sto.LoadVersion(&a.slots[item.Key()].version).IsLocked()
}

// Check reports whether item's slot is still at the version it
// observed at read time, or is locked by this same transaction.
func (a *FixedArray[T]) Check(item *sto.Item) bool {
	cur := sto.LoadVersion(&a.slots[item.Key()].version)
	if !cur.IsLocked() {
		return cur.SameCounter(item.ReadVersion())
	}
	return item.LockHeld()
}

// Install publishes item's buffered value and bumps the version.
// Precondition: the slot is locked by this transaction. If the buffered
// value equals the value already there, install is a no-op short
// circuit — correct but observably version-stable, per spec §9.
func (a *FixedArray[T]) Install(item *sto.Item, commitTID sto.TID) error {
	i := item.Key()
	if !sto.LoadVersion(&a.slots[i].version).IsLocked() {
		return fmt.Errorf("array: install called without lock on slot %d", i)
	}

	newVal := sto.WriteValue[T](item)
	if a.slots[i].value == newVal {
		return nil
	}

	prior := sto.LoadVersion(&a.slots[i].version)
	a.slots[i].value = newVal
	// Value published before the version counter advances, with the
	// store above and the version store below ordered by the
	// sequential consistency sto.Unlock's atomic store provides —
	// updating version first would let a reader observe the new
	// version alongside a still-stale value.
	sto.Unlock(&a.slots[i].version, prior.Unlocked()+1)
	item.MarkUnlocked()
	return nil
}

// Unlock releases item's slot lock without bumping the version — used
// only when Lock was acquired but Install's short-circuit (or an
// aborted commit) means no new version should be published.
func (a *FixedArray[T]) Unlock(item *sto.Item) error {
	i := item.Key()
	cur := sto.LoadVersion(&a.slots[i].version)
	if !cur.IsLocked() {
		return fmt.Errorf("array: unlock called on already-unlocked slot %d", i)
	}
	sto.Unlock(&a.slots[i].version, cur.Unlocked())
	return nil
}
