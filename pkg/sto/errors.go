package sto

import (
	"errors"
	"fmt"
)

var (
	// ErrConflict is what TryCommit's failure means whenever read-set
	// validation fails or a write lock cannot be acquired within
	// Config.MaxLockSpins (objects report the latter by returning this
	// from Lock). TryCommit itself still reports failure as a plain
	// false, per spec.md §6 ("try_commit returns a boolean; no
	// exceptions cross the API boundary"); Transaction.Err recovers this
	// sentinel for a caller that wants the reason. It is always local
	// and recoverable: the caller decides whether to retry.
	ErrConflict = errors.New("sto: transaction conflict")

	// ErrCapacityExceeded is returned when a transaction's combined read
	// and write set would exceed Config.MaxItems.
	ErrCapacityExceeded = errors.New("sto: read or write set capacity exceeded")

	// ErrNotActive is returned by Item/ItemBytes, and recorded for Err by
	// TryCommit, when the transaction is not in the Active state.
	ErrNotActive = errors.New("sto: transaction is not active")

	// ErrAlreadyActive is returned by Begin on a transaction that has
	// not returned to Idle.
	ErrAlreadyActive = errors.New("sto: transaction already active")
)

// ContractViolation indicates an object broke the five-operation
// contract (e.g. Install called without holding the lock). It is a
// programmer bug, not a recoverable condition, and is raised by panic
// rather than returned — callers that want to probe the API boundary in
// tests can recover it via AsContractViolation.
type ContractViolation struct {
	Object string
	Reason string
}

func (e *ContractViolation) Error() string {
	return fmt.Sprintf("sto: contract violation in %s: %s", e.Object, e.Reason)
}

// panicContractViolation raises a ContractViolation. TryCommit calls it
// when an object's Install or Unlock returns an error after every lock
// was acquired: the object then saw its own precondition broken
// (install without lock, unlock without lock), which means the engine
// itself has a bug, not the caller.
func panicContractViolation(object, reason string) {
	panic(&ContractViolation{Object: object, Reason: reason})
}

// AsContractViolation recovers a ContractViolation from a panic value,
// for use in tests that intentionally misuse the object contract.
func AsContractViolation(r interface{}) (*ContractViolation, bool) {
	cv, ok := r.(*ContractViolation)
	return cv, ok
}
