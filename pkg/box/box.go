// Package box implements a single-slot transactional cell, the
// "scalar box" object kind spec.md §1 mentions alongside arrays.
// Grounded directly on original_source/TBox.hh: same read/write/
// nontrans_read/nontrans_write shape, generalized to Go generics.
package box

import (
	"fmt"
	"sync"

	"github.com/tidalstm/sto/pkg/sto"
)

// Box is a single transactional cell holding one value of type T.
type Box[T comparable] struct {
	version sto.Version
	gate    sync.Mutex // serializes contenders under Config.Lock == MutexLock; see sto.AcquireLock
	value   T
	cfg     *sto.Config
	salt    uint64
}

// New creates a box holding the given initial value at version 0,
// using sto.DefaultConfig for its locking tunables.
func New[T comparable](initial T) *Box[T] {
	return NewWithConfig[T](initial, sto.DefaultConfig())
}

// NewWithConfig is New, with an explicit *sto.Config controlling the
// lock strategy and spin budget Lock consults.
func NewWithConfig[T comparable](initial T, cfg *sto.Config) *Box[T] {
	if cfg == nil {
		cfg = sto.DefaultConfig()
	}
	return &Box[T]{
		value: initial,
		cfg:   cfg,
		salt:  sto.NextObjectSalt(),
	}
}

// ThreadInit is a no-op: a box has exactly one slot, never freed, so it
// has nothing to register with epoch reclamation.
func (b *Box[T]) ThreadInit() error { return nil }

// NontransRead returns the box's current value with no synchronization.
func (b *Box[T]) NontransRead() T { return b.value }

// NontransWrite stores v directly, bypassing transactions.
func (b *Box[T]) NontransWrite(v T) {
	prior := sto.SpinLock(&b.version)
	b.value = v
	sto.Unlock(&b.version, prior.Unlocked()+1)
}

// Read performs a transactional (seqlock) read: the value buffered by
// an earlier Write in this same transaction if there is one, otherwise
// the currently published value, recorded as this transaction's read
// observation.
func (b *Box[T]) Read(txn *sto.Transaction) (T, error) {
	var zero T
	item, err := txn.Item(b, 0)
	if err != nil {
		return zero, err
	}
	if item.HasWrite() {
		return sto.WriteValue[T](item), nil
	}

	for {
		v1 := sto.LoadVersion(&b.version)
		val := b.value
		v2 := sto.LoadVersion(&b.version)
		if v1 == v2 && !v1.IsLocked() {
			item.AddRead(v1)
			return val, nil
		}
	}
}

// Write buffers v; it is not published until the transaction commits.
func (b *Box[T]) Write(txn *sto.Transaction, v T) error {
	item, err := txn.Item(b, 0)
	if err != nil {
		return err
	}
	item.AddWrite(v)
	return nil
}

// UID returns this box's single discriminator — a box has only one key
// (there is only one slot), so item.Key() carries no information; the
// salt alone is enough to place this box uniquely in the lock order.
func (b *Box[T]) UID(item *sto.Item) sto.UID {
	return sto.UID(b.salt << 32)
}

// Lock acquires the box's write lock, per b.cfg's selected strategy and
// spin budget. It returns sto.ErrConflict if the lock can't be acquired
// within Config.MaxLockSpins attempts.
func (b *Box[T]) Lock(item *sto.Item) error {
	if _, ok := sto.AcquireLock(&b.version, &b.gate, b.cfg); !ok {
		return sto.ErrConflict
	}
	return nil
}

// IsLocked reports whether the box is currently locked by anyone.
func (b *Box[T]) IsLocked(item *sto.Item) bool {
	return sto.LoadVersion(&b.version).IsLocked()
}

// Check reports whether the box is still at the version observed at
// read time, or is locked by this same transaction.
func (b *Box[T]) Check(item *sto.Item) bool {
	cur := sto.LoadVersion(&b.version)
	if !cur.IsLocked() {
		return cur.SameCounter(item.ReadVersion())
	}
	return item.LockHeld()
}

// Install publishes item's buffered value and bumps the version,
// short-circuiting if the value is unchanged.
func (b *Box[T]) Install(item *sto.Item, commitTID sto.TID) error {
	if !sto.LoadVersion(&b.version).IsLocked() {
		return fmt.Errorf("box: install called without lock")
	}

	newVal := sto.WriteValue[T](item)
	if b.value == newVal {
		return nil
	}

	prior := sto.LoadVersion(&b.version)
	b.value = newVal
	sto.Unlock(&b.version, prior.Unlocked()+1)
	item.MarkUnlocked()
	return nil
}

// Unlock releases the box's lock without bumping the version.
func (b *Box[T]) Unlock(item *sto.Item) error {
	cur := sto.LoadVersion(&b.version)
	if !cur.IsLocked() {
		return fmt.Errorf("box: unlock called on already-unlocked box")
	}
	sto.Unlock(&b.version, cur.Unlocked())
	return nil
}
