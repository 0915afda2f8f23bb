package sto

import "testing"

func TestTIDAllocatorMonotonic(t *testing.T) {
	var a TIDAllocator
	first := a.Next()
	second := a.Next()
	if second <= first {
		t.Fatalf("expected strictly increasing TIDs, got %d then %d", first, second)
	}
	if a.Last() != second {
		t.Fatalf("expected Last to report %d, got %d", second, a.Last())
	}
}

func TestNextCommitTIDIncreases(t *testing.T) {
	first := NextCommitTID()
	second := NextCommitTID()
	if second <= first {
		t.Fatalf("expected strictly increasing commit TIDs, got %d then %d", first, second)
	}
}
