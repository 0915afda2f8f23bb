package sto

import "sync"

// threadRegistry records which thread IDs have called SetThreadID. It
// is the core's half of spec.md §6's thread-bootstrap contract ("each
// worker calls set_thread_id(i) once... to register itself with
// reclamation"); collaborators such as pkg/epoch keep their own
// richer per-thread bookkeeping, registered separately via their own
// ThreadInit.
var threadRegistry sync.Map // int -> struct{}

// SetThreadID registers the calling goroutine's thread ID with the
// core. Every worker calls this once, before any per-object
// ThreadInit, as spec.md §6 requires.
func SetThreadID(threadID int) {
	threadRegistry.Store(threadID, struct{}{})
}

// ThreadRegistered reports whether SetThreadID(threadID) has been
// called. Exposed for tests and diagnostics.
func ThreadRegistered(threadID int) bool {
	_, ok := threadRegistry.Load(threadID)
	return ok
}
