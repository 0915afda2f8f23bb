package sto

import "sync/atomic"

// TID is a commit transaction identifier: a globally monotonic value
// stamped on every successful commit, giving a total order over all
// committed transactions. Objects that want TicToc- or MVCC-style
// versioning embed the TID directly into their version counters.
type TID uint64

// TIDAllocator hands out strictly increasing commit TIDs. It is
// process-wide and shared by every Transaction; unlike a per-object
// version counter it is never subject to a lock bit, since no reader
// ever needs to validate against it directly.
type TIDAllocator struct {
	counter uint64
}

// Next returns the next commit TID. Values handed to aborted
// transactions are wasted but harmless — only strict increase across
// successful commits is guaranteed.
func (a *TIDAllocator) Next() TID {
	return TID(atomic.AddUint64(&a.counter, 1))
}

// Last returns the most recently issued TID, for diagnostics.
func (a *TIDAllocator) Last() TID {
	return TID(atomic.LoadUint64(&a.counter))
}

// globalTIDs is the default allocator shared by transactions that don't
// carry their own, mirroring the single process-wide counter the spec
// describes.
var globalTIDs TIDAllocator

// NextCommitTID allocates from the shared process-wide allocator.
func NextCommitTID() TID {
	return globalTIDs.Next()
}
