package sto

import "testing"

func TestSetThreadIDRegisters(t *testing.T) {
	const id = 97531 // unlikely to collide with another test's thread ID
	if ThreadRegistered(id) {
		t.Fatal("expected thread not yet registered")
	}
	SetThreadID(id)
	if !ThreadRegistered(id) {
		t.Fatal("expected SetThreadID to register the thread")
	}
}
