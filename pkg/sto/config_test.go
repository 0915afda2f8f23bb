package sto

import "testing"

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.MaxItems <= 0 {
		t.Error("expected a positive MaxItems")
	}
	if cfg.MaxLockSpins <= 0 {
		t.Error("expected a positive MaxLockSpins")
	}
	if cfg.Lock != SpinLock {
		t.Errorf("expected SpinLock as the default strategy, got %v", cfg.Lock)
	}
	if !cfg.EnableGC {
		t.Error("expected EnableGC to default to true")
	}
	if cfg.EpochCycleMS <= 0 {
		t.Error("expected a positive EpochCycleMS")
	}
}
