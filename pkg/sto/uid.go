package sto

import (
	"encoding/binary"

	"golang.org/x/crypto/blake2b"
)

// HashUID folds an arbitrary-length key, plus an object's salt (see
// NextObjectSalt), into the 64-bit UID space the commit protocol sorts
// write items on. Integer-keyed objects like the fixed array don't need
// this — their UID is the index itself — but objects with composite or
// variable-length keys (the ordered index in pkg/index, or any external
// collaborator keyed on a string) do, and need good distribution across
// the UID space so unrelated keys don't collide into the same lock
// order. blake2b is used over crc32/fnv for exactly that: a
// cryptographic-strength avalanche means two keys differing in one byte
// land in unrelated regions of the UID space, rather than clustering.
func HashUID(salt uint64, key []byte) UID {
	h, _ := blake2b.New(8, nil) // 8-byte (64-bit) digest, no keying needed
	var saltBuf [8]byte
	binary.LittleEndian.PutUint64(saltBuf[:], salt)
	h.Write(saltBuf[:])
	h.Write(key)
	sum := h.Sum(nil)
	return UID(binary.LittleEndian.Uint64(sum))
}
