package sto

import "sort"

// state is the transaction's position in its Idle -> Active ->
// Committing -> (Committed | Aborted) -> Idle lifecycle.
type state uint8

const (
	stateIdle state = iota
	stateActive
	stateCommitting
	stateCommitted
	stateAborted
)

// itemKey dedups items by (object, UID) so the same key accessed twice
// in one transaction merges into a single Item instead of two.
type itemKey struct {
	object Object
	uid    UID
}

// Transaction is thread-local state owning the read set and write set
// for the transaction currently running on one thread, and driving
// commit. It is not safe to share across goroutines — the spec's
// scheduling model is one transaction in flight per thread.
type Transaction struct {
	cfg      *Config
	tids     *TIDAllocator
	threadID int

	state state
	items []*Item
	index map[itemKey]*Item

	locked  []*Item // items this transaction's own commit has locked, in acquisition order
	lastErr error   // reason the most recent TryCommit returned false, if any
}

// NewTransaction creates a transaction bound to threadID, using cfg for
// its tunables (DefaultConfig if nil) and tids as its commit TID source
// (the shared global allocator if nil).
func NewTransaction(threadID int, cfg *Config, tids *TIDAllocator) *Transaction {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Transaction{
		cfg:      cfg,
		tids:     tids,
		threadID: threadID,
		state:    stateIdle,
	}
}

// ThreadID returns the thread this transaction is bound to.
func (t *Transaction) ThreadID() int { return t.threadID }

// State reports the transaction's current lifecycle state, mostly for
// tests and diagnostics.
func (t *Transaction) State() string {
	switch t.state {
	case stateIdle:
		return "idle"
	case stateActive:
		return "active"
	case stateCommitting:
		return "committing"
	case stateCommitted:
		return "committed"
	case stateAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Begin starts a new transaction. Precondition: Idle.
func (t *Transaction) Begin() error {
	if t.state != stateIdle {
		return ErrAlreadyActive
	}
	t.items = nil
	t.index = make(map[itemKey]*Item)
	t.locked = nil
	t.lastErr = nil
	t.state = stateActive
	return nil
}

// Err returns the reason the most recent TryCommit returned false:
// ErrConflict if read-set validation failed or a write lock could not
// be acquired within Config.MaxLockSpins, ErrNotActive if TryCommit was
// called outside the Active state, or nil if the most recent TryCommit
// succeeded (or none has run yet). TryCommit's own return value stays a
// plain bool per spec.md §6; Err is a side channel for callers that
// want the reason.
func (t *Transaction) Err() error {
	return t.lastErr
}

// Item returns the item for (object, key), creating it on first access.
// A second access to the same (object, UID) pair returns the existing
// item so reads and writes against one key merge instead of duplicating.
func (t *Transaction) Item(object Object, key uint64) (*Item, error) {
	return t.itemFor(object, func(it *Item) { it.SetKey(key) })
}

// ItemBytes is Item's counterpart for objects whose natural key is not
// a plain uint64 (e.g. pkg/index's ordered index).
func (t *Transaction) ItemBytes(object Object, key []byte) (*Item, error) {
	return t.itemFor(object, func(it *Item) { it.SetKeyBytes(key) })
}

func (t *Transaction) itemFor(object Object, setKey func(*Item)) (*Item, error) {
	if t.state != stateActive {
		return nil, ErrNotActive
	}

	candidate := &Item{object: object}
	setKey(candidate)
	uid := object.UID(candidate)

	k := itemKey{object: object, uid: uid}
	if existing, ok := t.index[k]; ok {
		return existing, nil
	}

	if len(t.items) >= t.cfg.MaxItems {
		return nil, ErrCapacityExceeded
	}

	t.index[k] = candidate
	t.items = append(t.items, candidate)
	return candidate, nil
}

// writeItems returns this transaction's write set, sorted by UID
// ascending — the deterministic global lock order that prevents
// deadlock between concurrently committing transactions with
// overlapping write sets.
func (t *Transaction) writeItems() []*Item {
	var ws []*Item
	for _, it := range t.items {
		if it.HasWrite() {
			ws = append(ws, it)
		}
	}
	sort.Slice(ws, func(i, j int) bool {
		return ws[i].object.UID(ws[i]) < ws[j].object.UID(ws[j])
	})
	return ws
}

// TryCommit runs the commit protocol: sort the write set by UID,
// acquire every write lock in that order, validate the read set,
// allocate a commit TID, install the buffered writes, and release the
// locks. It returns true on success and false on conflict; no other
// error crosses this boundary — if a storage object's Install or Unlock
// fails, TryCommit panics with a *ContractViolation instead. Err reports why a
// false came back, if a caller wants the reason.
func (t *Transaction) TryCommit() bool {
	if t.state != stateActive {
		t.lastErr = ErrNotActive
		return false
	}

	// Freeze: no further item mutation is permitted past this point.
	t.state = stateCommitting

	writes := t.writeItems()

	// Acquire write locks in ascending UID order.
	for _, it := range writes {
		if err := it.object.Lock(it); err != nil {
			t.lastErr = err
			t.releaseAcquired()
			t.state = stateAborted
			return false
		}
		it.MarkLocked()
		t.locked = append(t.locked, it)
	}

	// Validate the read set. An item that is also a write carries
	// MarkLocked from the loop above, so its own object.Check sees
	// LockHeld()==true and treats the self-lock as no conflict.
	for _, it := range t.items {
		if !it.HasRead() {
			continue
		}
		if !it.object.Check(it) {
			t.lastErr = ErrConflict
			t.releaseAcquired()
			t.state = stateAborted
			return false
		}
	}

	t.lastErr = nil

	commitTID := t.nextTID()

	for _, it := range writes {
		if err := it.object.Install(it, commitTID); err != nil {
			// Install is only reached after every lock in this
			// transaction's write set was acquired without error; an
			// object failing here has broken its own contract.
			panicContractViolation("object", "install failed after successful lock: "+err.Error())
		}
	}

	for _, it := range writes {
		if it.NeedsUnlock() {
			if err := it.object.Unlock(it); err != nil {
				panicContractViolation("object", "unlock failed: "+err.Error())
			}
			it.MarkUnlocked()
		}
	}

	t.state = stateCommitted
	t.state = stateIdle
	return true
}

func (t *Transaction) nextTID() TID {
	if t.tids != nil {
		return t.tids.Next()
	}
	return NextCommitTID()
}

// releaseAcquired unlocks, in reverse order, only the locks this
// transaction's own commit attempt actually acquired.
func (t *Transaction) releaseAcquired() {
	for i := len(t.locked) - 1; i >= 0; i-- {
		it := t.locked[i]
		_ = it.object.Unlock(it)
		it.MarkUnlocked()
	}
	t.locked = nil
}

// Abort discards the read and write sets and returns to Idle. Safe to
// call from Active or Committing; aborting after a successful commit is
// a no-op since TryCommit already returned the transaction to Idle.
func (t *Transaction) Abort() {
	if t.state == stateActive || t.state == stateCommitting {
		t.releaseAcquired()
	}
	t.items = nil
	t.index = nil
	t.state = stateIdle
}
