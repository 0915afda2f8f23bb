// Package index implements an ordered, byte-keyed index as an external
// storage collaborator participating in sto transactions through the
// same five-operation object contract as pkg/array and pkg/box.
// spec.md §1 treats ordered/unordered indexes as richer collaborators
// out of scope for the core's depth of specification; this package is
// deliberately the lightweight end of that spectrum — sorted storage
// adapted from a B+Tree, with OCC bookkeeping layered on top rather
// than woven through the tree itself.
package index

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/tidalstm/sto/pkg/sto"
)

// versionEntry pairs a key's version word with the gate mutex
// Config.Lock == MutexLock serializes contenders through; see
// sto.AcquireLock.
type versionEntry struct {
	version sto.Version
	gate    sync.Mutex
}

// Ordered is a transactional ordered index over []byte keys. Sorted
// storage is delegated to an internal B+Tree; per-key version words
// live in a side table so the object contract's lock/check/unlock
// operations never need to walk the tree; only Install does.
type Ordered struct {
	data *tree

	mu   sync.Mutex // guards vers; entryFor holds it for every lookup and insertion
	vers map[string]*versionEntry

	cfg  *sto.Config
	salt uint64
}

// NewOrdered creates an empty ordered index, using sto.DefaultConfig
// for its locking tunables.
func NewOrdered() *Ordered {
	return NewOrderedWithConfig(sto.DefaultConfig())
}

// NewOrderedWithConfig is NewOrdered, with an explicit *sto.Config
// controlling the lock strategy and spin budget Lock consults.
func NewOrderedWithConfig(cfg *sto.Config) *Ordered {
	if cfg == nil {
		cfg = sto.DefaultConfig()
	}
	return &Ordered{
		data: newTree(),
		vers: make(map[string]*versionEntry),
		cfg:  cfg,
		salt: sto.NextObjectSalt(),
	}
}

// ThreadInit is a no-op: this index never frees a node while a
// transaction might hold an item pointing at it within the scope of
// this package (deletion is only exposed non-transactionally); a
// richer collaborator that did reclaim nodes under contention would
// register here with pkg/epoch instead.
func (o *Ordered) ThreadInit() error { return nil }

// Len returns the number of keys currently stored.
func (o *Ordered) Len() int { return o.data.size }

func (o *Ordered) entryFor(key []byte) *versionEntry {
	sk := string(key)

	o.mu.Lock()
	defer o.mu.Unlock()
	e, ok := o.vers[sk]
	if !ok {
		e = &versionEntry{}
		o.vers[sk] = e
	}
	return e
}

func (o *Ordered) versionFor(key []byte) *sto.Version {
	return &o.entryFor(key).version
}

// NontransGet reads key's value directly, with no synchronization.
func (o *Ordered) NontransGet(key []byte) ([]byte, bool) {
	return o.data.get(key)
}

// NontransPut writes key/value directly: lock, store, unlock.
func (o *Ordered) NontransPut(key, value []byte) {
	v := o.versionFor(key)
	prior := sto.SpinLock(v)
	o.data.put(key, value)
	sto.Unlock(v, prior.Unlocked()+1)
}

// NontransDelete removes key directly. Index deletion is not exposed
// through the transactional path: representing a transactional delete
// correctly needs a tombstone scheme this lightweight collaborator
// doesn't implement (see spec.md §1 — richer collaborators are out of
// scope for this core).
func (o *Ordered) NontransDelete(key []byte) error {
	v := o.versionFor(key)
	prior := sto.SpinLock(v)
	err := o.data.del(key)
	sto.Unlock(v, prior.Unlocked()+1)
	return err
}

// TransGet performs a transactional (seqlock) read of key: the value
// this transaction already buffered for key, if TransPut was called on
// it earlier this transaction, otherwise the currently published value.
// The bool result reports whether key currently has a value.
func (o *Ordered) TransGet(txn *sto.Transaction, key []byte) ([]byte, bool, error) {
	item, err := txn.ItemBytes(o, key)
	if err != nil {
		return nil, false, err
	}
	if item.HasWrite() {
		v := sto.WriteValue[[]byte](item)
		return v, v != nil, nil
	}

	vptr := o.versionFor(key)
	for {
		v1 := sto.LoadVersion(vptr)
		val, ok := o.data.get(key)
		v2 := sto.LoadVersion(vptr)
		if v1 == v2 && !v1.IsLocked() {
			item.AddRead(v1)
			return val, ok, nil
		}
	}
}

// TransPut buffers a write of value to key; it is not published until
// the transaction commits.
func (o *Ordered) TransPut(txn *sto.Transaction, key, value []byte) error {
	item, err := txn.ItemBytes(o, key)
	if err != nil {
		return err
	}
	item.AddWrite(value)
	return nil
}

// UID hashes key (with this index's object salt) into the 64-bit UID
// space, since a []byte key doesn't fit the fixed array's plain-integer
// UID scheme.
func (o *Ordered) UID(item *sto.Item) sto.UID {
	return sto.HashUID(o.salt, item.KeyBytes())
}

// Lock acquires the write lock on item's key, per o.cfg's selected
// strategy and spin budget. It returns sto.ErrConflict if the lock
// can't be acquired within Config.MaxLockSpins attempts.
func (o *Ordered) Lock(item *sto.Item) error {
	e := o.entryFor(item.KeyBytes())
	if _, ok := sto.AcquireLock(&e.version, &e.gate, o.cfg); !ok {
		return sto.ErrConflict
	}
	return nil
}

// IsLocked reports whether item's key is currently locked by anyone.
func (o *Ordered) IsLocked(item *sto.Item) bool {
	return sto.LoadVersion(o.versionFor(item.KeyBytes())).IsLocked()
}

// Check reports whether item's key is still at the version observed at
// read time, or is locked by this same transaction.
func (o *Ordered) Check(item *sto.Item) bool {
	cur := sto.LoadVersion(o.versionFor(item.KeyBytes()))
	if !cur.IsLocked() {
		return cur.SameCounter(item.ReadVersion())
	}
	return item.LockHeld()
}

// Install publishes item's buffered value into the tree and bumps the
// version, short-circuiting if the value is unchanged.
func (o *Ordered) Install(item *sto.Item, commitTID sto.TID) error {
	key := item.KeyBytes()
	v := o.versionFor(key)
	if !sto.LoadVersion(v).IsLocked() {
		return fmt.Errorf("index: install called without lock on %q", key)
	}

	newVal := sto.WriteValue[[]byte](item)
	if cur, ok := o.data.get(key); ok && bytes.Equal(cur, newVal) {
		return nil
	}

	prior := sto.LoadVersion(v)
	o.data.put(key, newVal)
	sto.Unlock(v, prior.Unlocked()+1)
	item.MarkUnlocked()
	return nil
}

// Unlock releases item's key lock without bumping the version.
func (o *Ordered) Unlock(item *sto.Item) error {
	key := item.KeyBytes()
	v := o.versionFor(key)
	cur := sto.LoadVersion(v)
	if !cur.IsLocked() {
		return fmt.Errorf("index: unlock called on already-unlocked key %q", key)
	}
	sto.Unlock(v, cur.Unlocked())
	return nil
}
