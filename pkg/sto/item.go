package sto

import "encoding/binary"

// flags track what an Item carries and where it stands in the commit
// protocol; mirrors the has_read/has_write/needs_unlock/lock_held bits
// from the object protocol this package implements.
type flags uint8

const (
	flagHasRead flags = 1 << iota
	flagHasWrite
	flagNeedsUnlock
	flagLockHeld
)

// Item is a transaction's per-object-per-key entry: a weak reference to
// the owning object, an opaque key word the object defined, an optional
// observed version (if read), an optional buffered value (if written),
// and the protocol flags above.
//
// The key is carried as a fixed 8-byte word (per the design note that a
// fixed-size opaque buffer beats packing typed integers through a
// pointer-sized slot) with typed accessors layered on top; the buffered
// value is carried as `any` rather than a second packed word, since Go's
// interfaces already give every object a type-safe way to stash
// arbitrary payloads without the pointer-sized-word trick the protocol
// was originally built around.
type Item struct {
	object   Object
	keyWord  [8]byte
	keyExtra []byte // set by SetKeyBytes: a prefix of keyWord, or the caller's slice if longer than keyWord
	version  Version
	value    any
	flags    flags
}

func newItem(obj Object, key uint64) *Item {
	it := &Item{object: obj}
	it.SetKey(key)
	return it
}

// Object returns the owning storage object.
func (it *Item) Object() Object {
	return it.object
}

// Key decodes the item's opaque key word as a uint64 — the common case
// for dense, integer-indexed objects like the fixed array.
func (it *Item) Key() uint64 {
	return binary.LittleEndian.Uint64(it.keyWord[:])
}

// SetKey packs a uint64 key into the item's opaque key word.
func (it *Item) SetKey(key uint64) {
	binary.LittleEndian.PutUint64(it.keyWord[:], key)
}

// KeyBytes exposes the raw key for objects that pack something other
// than a plain uint64 into it — e.g. an ordered index's variable-length
// key. After SetKeyBytes it returns exactly the bytes that were set;
// after SetKey it returns the full 8-byte word.
func (it *Item) KeyBytes() []byte {
	if it.keyExtra != nil {
		return it.keyExtra
	}
	return it.keyWord[:]
}

// SetKeyBytes packs an arbitrary-length key into the item. Keys of 8
// bytes or fewer are copied into the fixed key word; longer keys are
// kept as-is, since the protocol treats the key as opaque object-owned
// encoding, not a value it interprets.
func (it *Item) SetKeyBytes(key []byte) {
	if len(key) <= len(it.keyWord) {
		it.keyWord = [8]byte{}
		copy(it.keyWord[:], key)
		it.keyExtra = it.keyWord[:len(key)]
		return
	}
	it.keyExtra = key
}

// HasRead reports whether add_read has been called on this item.
func (it *Item) HasRead() bool {
	return it.flags&flagHasRead != 0
}

// HasWrite reports whether add_write has been called on this item.
func (it *Item) HasWrite() bool {
	return it.flags&flagHasWrite != 0
}

// LockHeld reports whether this transaction currently holds the write
// lock backing this item.
func (it *Item) LockHeld() bool {
	return it.flags&flagLockHeld != 0
}

// NeedsUnlock reports whether this item still owes an Unlock call. An
// object's Install may clear this itself if it unlocks as part of
// installing (per object policy); the commit protocol only unlocks
// items that still have it set after Install.
func (it *Item) NeedsUnlock() bool {
	return it.flags&flagNeedsUnlock != 0
}

// ClearNeedsUnlock lets an object declare that its Install already
// released the lock, so the commit protocol's final unlock pass skips
// this item.
func (it *Item) ClearNeedsUnlock() {
	it.flags &^= flagNeedsUnlock
}

// MarkLocked records that this transaction has acquired the write lock
// backing this item. The commit protocol calls it after an object's
// Lock returns successfully.
func (it *Item) MarkLocked() {
	it.flags |= flagLockHeld | flagNeedsUnlock
}

// MarkUnlocked records that this item's write lock has been released.
// Storage objects call it from an Install that unlocks as part of
// installing, and the commit protocol calls it after each Unlock it
// makes.
func (it *Item) MarkUnlocked() {
	it.flags &^= flagLockHeld | flagNeedsUnlock
}

// AddRead records the version observed for this item at read time. It
// is idempotent for repeated identical observations — calling it again
// with the same version a read-your-own-write wouldn't need is a no-op
// in effect, since Check only ever looks at the last value stored.
func (it *Item) AddRead(v Version) {
	it.flags |= flagHasRead
	it.version = v
}

// ReadVersion returns the version observed at read time.
func (it *Item) ReadVersion() Version {
	return it.version
}

// AddWrite buffers a new value for this item, overwriting any value
// buffered earlier in the same transaction.
func (it *Item) AddWrite(v any) {
	it.flags |= flagHasWrite
	it.value = v
}

// WriteValue returns the last value buffered by AddWrite, type-asserted
// to V. It panics via the usual Go assertion-failure path if the
// object's read/write paths disagree on V — a programmer bug, not a
// conflict.
func WriteValue[V any](it *Item) V {
	return it.value.(V)
}

// ReadValue type-asserts the same payload WriteValue does: the value
// last buffered by AddWrite. An Item keeps no separate read-time value;
// AddRead records only the observed version.
func ReadValue[V any](it *Item) V {
	return it.value.(V)
}
