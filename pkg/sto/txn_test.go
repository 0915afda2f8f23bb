package sto

import "testing"

// fakeObject is a minimal single-slot Object for exercising the
// transaction engine's commit protocol without pulling in pkg/array.
type fakeObject struct {
	version Version
	value   int
	salt    uint64
}

func newFakeObject(v int) *fakeObject {
	return &fakeObject{value: v, salt: NextObjectSalt()}
}

var _ Object = (*fakeObject)(nil)

func (f *fakeObject) UID(item *Item) UID { return UID(f.salt) }

func (f *fakeObject) Lock(item *Item) error {
	SpinLock(&f.version)
	return nil
}

func (f *fakeObject) IsLocked(item *Item) bool {
	return LoadVersion(&f.version).IsLocked()
}

func (f *fakeObject) Check(item *Item) bool {
	cur := LoadVersion(&f.version)
	if !cur.IsLocked() {
		return cur.SameCounter(item.ReadVersion())
	}
	return item.LockHeld()
}

func (f *fakeObject) Install(item *Item, commitTID TID) error {
	newVal := WriteValue[int](item)
	if f.value == newVal {
		return nil
	}
	prior := LoadVersion(&f.version)
	f.value = newVal
	Unlock(&f.version, prior.Unlocked()+1)
	item.MarkUnlocked()
	return nil
}

func (f *fakeObject) Unlock(item *Item) error {
	cur := LoadVersion(&f.version)
	Unlock(&f.version, cur.Unlocked())
	return nil
}

func (f *fakeObject) read(txn *Transaction) (int, error) {
	item, err := txn.Item(f, 0)
	if err != nil {
		return 0, err
	}
	if item.HasWrite() {
		return WriteValue[int](item), nil
	}
	for {
		v1 := LoadVersion(&f.version)
		val := f.value
		v2 := LoadVersion(&f.version)
		if v1 == v2 && !v1.IsLocked() {
			item.AddRead(v1)
			return val, nil
		}
	}
}

func (f *fakeObject) write(txn *Transaction, v int) error {
	item, err := txn.Item(f, 0)
	if err != nil {
		return err
	}
	item.AddWrite(v)
	return nil
}

func TestBeginTwiceWithoutCommitErrors(t *testing.T) {
	txn := NewTransaction(1, nil, nil)
	if err := txn.Begin(); err != nil {
		t.Fatalf("unexpected error on first Begin: %v", err)
	}
	if err := txn.Begin(); err != ErrAlreadyActive {
		t.Fatalf("expected ErrAlreadyActive, got %v", err)
	}
}

func TestItemRequiresActiveTransaction(t *testing.T) {
	txn := NewTransaction(1, nil, nil)
	obj := newFakeObject(0)
	if _, err := txn.Item(obj, 0); err != ErrNotActive {
		t.Fatalf("expected ErrNotActive, got %v", err)
	}
}

func TestItemDedupesSameObjectAndKey(t *testing.T) {
	txn := NewTransaction(1, nil, nil)
	obj := newFakeObject(0)
	txn.Begin()

	a, err := txn.Item(obj, 0)
	if err != nil {
		t.Fatal(err)
	}
	b, err := txn.Item(obj, 0)
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Fatal("expected repeated access to the same (object, key) to return the same item")
	}
}

func TestCapacityExceeded(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxItems = 1
	txn := NewTransaction(1, cfg, nil)
	txn.Begin()

	obj1 := newFakeObject(0)
	obj2 := newFakeObject(0)

	if _, err := txn.Item(obj1, 0); err != nil {
		t.Fatalf("unexpected error on first item: %v", err)
	}
	if _, err := txn.Item(obj2, 0); err != ErrCapacityExceeded {
		t.Fatalf("expected ErrCapacityExceeded, got %v", err)
	}
}

func TestCommitLifecycleReturnsToIdle(t *testing.T) {
	obj := newFakeObject(1)
	txn := NewTransaction(1, nil, nil)

	txn.Begin()
	if err := obj.write(txn, 2); err != nil {
		t.Fatal(err)
	}
	if !txn.TryCommit() {
		t.Fatal("expected commit to succeed")
	}
	if txn.State() != "idle" {
		t.Errorf("expected idle after commit, got %s", txn.State())
	}
	if obj.value != 2 {
		t.Errorf("expected installed value 2, got %d", obj.value)
	}
}

func TestAbortResetsToIdle(t *testing.T) {
	obj := newFakeObject(0)
	txn := NewTransaction(1, nil, nil)

	txn.Begin()
	obj.write(txn, 5)
	txn.Abort()

	if txn.State() != "idle" {
		t.Errorf("expected idle after abort, got %s", txn.State())
	}
	if obj.value != 0 {
		t.Errorf("expected abort to leave the object untouched, got %d", obj.value)
	}
}

func TestTryCommitOnIdleTransactionFails(t *testing.T) {
	txn := NewTransaction(1, nil, nil)
	if txn.TryCommit() {
		t.Fatal("expected TryCommit on an idle transaction to fail")
	}
}

func TestConflictingWriteFailsEarlierReader(t *testing.T) {
	obj := newFakeObject(0)

	t1 := NewTransaction(1, nil, nil)
	t1.Begin()
	if _, err := obj.read(t1); err != nil {
		t.Fatal(err)
	}

	t2 := NewTransaction(2, nil, nil)
	t2.Begin()
	obj.write(t2, 9)
	if !t2.TryCommit() {
		t.Fatal("expected t2 to commit")
	}

	if t1.TryCommit() {
		t.Fatal("expected t1 to fail validation after t2's write")
	}
	if t1.State() != "aborted" {
		t.Errorf("expected aborted, got %s", t1.State())
	}
}

func TestErrNilBeforeAnyCommit(t *testing.T) {
	txn := NewTransaction(1, nil, nil)
	if err := txn.Err(); err != nil {
		t.Fatalf("expected nil Err before any TryCommit, got %v", err)
	}
}

func TestErrReportsConflictOnFailedValidation(t *testing.T) {
	obj := newFakeObject(0)

	t1 := NewTransaction(1, nil, nil)
	t1.Begin()
	if _, err := obj.read(t1); err != nil {
		t.Fatal(err)
	}

	t2 := NewTransaction(2, nil, nil)
	t2.Begin()
	obj.write(t2, 9)
	if !t2.TryCommit() {
		t.Fatal("expected t2 to commit")
	}

	if t1.TryCommit() {
		t.Fatal("expected t1 to fail validation")
	}
	if t1.Err() != ErrConflict {
		t.Fatalf("expected ErrConflict, got %v", t1.Err())
	}
}

func TestErrReportsNotActiveOnIdleTryCommit(t *testing.T) {
	txn := NewTransaction(1, nil, nil)
	if txn.TryCommit() {
		t.Fatal("expected TryCommit on an idle transaction to fail")
	}
	if txn.Err() != ErrNotActive {
		t.Fatalf("expected ErrNotActive, got %v", txn.Err())
	}
}

func TestErrClearedOnSuccessfulCommit(t *testing.T) {
	obj := newFakeObject(0)
	txn := NewTransaction(1, nil, nil)
	txn.Begin()
	obj.write(txn, 1)

	// Force a prior failure to record, then confirm a later success clears it.
	txn.lastErr = ErrConflict
	if !txn.TryCommit() {
		t.Fatal("expected commit to succeed")
	}
	if err := txn.Err(); err != nil {
		t.Fatalf("expected Err to be cleared after a successful commit, got %v", err)
	}
}

func TestReadYourOwnWriteNeverConflictsWithSelf(t *testing.T) {
	obj := newFakeObject(0)
	txn := NewTransaction(1, nil, nil)
	txn.Begin()

	obj.write(txn, 1)
	v, err := obj.read(txn)
	if err != nil {
		t.Fatal(err)
	}
	if v != 1 {
		t.Errorf("expected to read back the buffered write, got %d", v)
	}
	if !txn.TryCommit() {
		t.Fatal("expected commit to succeed")
	}
}
