package sto

import "sync/atomic"

// objectSaltCounter hands out a process-wide unique discriminator to
// each storage object instance at construction time. Objects fold their
// salt into the high bits of the UID they compute per item, so two
// different objects never collide in the UID space the commit protocol
// sorts on — the Go equivalent of the spec's "(object_address, key)
// flattened" UID, since Go doesn't expose a stable pointer-as-integer
// the way the C++ original does.
var objectSaltCounter uint64

// NextObjectSalt returns a fresh, stable-for-the-process discriminator.
// Storage object constructors call this once and keep the result for
// the object's lifetime.
func NextObjectSalt() uint64 {
	return atomic.AddUint64(&objectSaltCounter, 1)
}
