package sto

import "testing"

func TestContractViolationMessage(t *testing.T) {
	err := &ContractViolation{Object: "array", Reason: "install without lock"}
	want := "sto: contract violation in array: install without lock"
	if got := err.Error(); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestPanicContractViolationRecoverable(t *testing.T) {
	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected a panic")
		}
		cv, ok := AsContractViolation(r)
		if !ok {
			t.Fatalf("expected a *ContractViolation, got %T", r)
		}
		if cv.Object != "box" {
			t.Errorf("expected object %q, got %q", "box", cv.Object)
		}
	}()
	panicContractViolation("box", "unlock without lock")
}

func TestAsContractViolationRejectsOtherPanics(t *testing.T) {
	if _, ok := AsContractViolation("not a contract violation"); ok {
		t.Fatal("expected ok=false for a non-ContractViolation panic value")
	}
}
