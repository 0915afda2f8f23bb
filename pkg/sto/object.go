package sto

// UID is a 64-bit value a storage object assigns to one of its items,
// used for deterministic global lock ordering at commit time. UIDs must
// be stable for the lifetime of any transaction that observes them and
// totally ordered across the whole object/key space a transaction might
// touch.
type UID uint64

// Object is the contract every shared datum implements to participate
// in transactions. An object owns its storage slots; the transaction
// engine only ever touches them through these five operations plus UID.
//
// Lock, Check, Install and Unlock all receive the Item the transaction
// built for this object/key pair, so an object can stash per-key state
// (e.g. a slot index, a map key) in the item's opaque payload words
// rather than the engine having to know the object's key type.
type Object interface {
	// UID returns the deterministic lock-ordering key for item.
	UID(item *Item) UID

	// Lock acquires the write lock on the slot item refers to. It may
	// spin, bounded by the object's configured Config.MaxLockSpins;
	// shipped objects use AcquireLock for this and return ErrConflict if
	// the budget is exhausted before the lock is acquired.
	Lock(item *Item) error

	// IsLocked reports whether the slot item refers to is currently
	// locked by anyone. Advisory only — a snapshot, not synchronized
	// with the caller.
	IsLocked(item *Item) bool

	// Check reports whether the slot's current unlocked version equals
	// the version item observed at read time, OR the slot is locked by
	// this same transaction (self-conflicts are not conflicts). It
	// returns false — not an error — on an ordinary validation failure;
	// that is the expected shape of a lost race, not a bug.
	Check(item *Item) bool

	// Install publishes item's buffered write. commitTID is the commit's
	// timestamp, for objects that embed it in their versions; the shipped
	// objects ignore it and advance the version counter by one instead.
	// Precondition: the slot is locked by this transaction.
	Install(item *Item, commitTID TID) error

	// Unlock releases the write lock on the slot item refers to.
	// Precondition: the slot is locked by this transaction.
	Unlock(item *Item) error
}
