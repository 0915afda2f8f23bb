package sto

import "testing"

func TestHashUIDDeterministic(t *testing.T) {
	a := HashUID(1, []byte("key"))
	b := HashUID(1, []byte("key"))
	if a != b {
		t.Errorf("expected HashUID to be deterministic, got %d then %d", a, b)
	}
}

func TestHashUIDDistinguishesKeys(t *testing.T) {
	a := HashUID(1, []byte("key-a"))
	b := HashUID(1, []byte("key-b"))
	if a == b {
		t.Error("expected different keys to hash to different UIDs")
	}
}

func TestHashUIDDistinguishesSalt(t *testing.T) {
	a := HashUID(1, []byte("key"))
	b := HashUID(2, []byte("key"))
	if a == b {
		t.Error("expected different salts to hash to different UIDs")
	}
}
