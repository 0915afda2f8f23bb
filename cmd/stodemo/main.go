// Command stodemo is a narrated walkthrough of the sto engine: opening
// a box and an array, committing a transaction that touches both, and
// then provoking and observing a conflict. Grounded on cmd/demo's
// numbered-step narration style.
package main

import (
	"fmt"
	"log"

	"github.com/tidalstm/sto/pkg/array"
	"github.com/tidalstm/sto/pkg/box"
	"github.com/tidalstm/sto/pkg/sto"
)

func main() {
	fmt.Println("sto Example")
	fmt.Println("===========")
	fmt.Println()

	fmt.Println("1. Creating a scalar box and a 4-slot array...")
	balance := box.New(100)
	accounts := array.New[int64](4)
	for i := 0; i < accounts.Len(); i++ {
		accounts.Write(i, 1000)
	}
	fmt.Println("   Done.")
	fmt.Println()

	fmt.Println("2. Committing a transaction that debits the box and credits slot 0...")
	txn := sto.NewTransaction(1, nil, nil)
	if err := txn.Begin(); err != nil {
		log.Fatalf("begin: %v", err)
	}

	bal, err := balance.Read(txn)
	if err != nil {
		log.Fatalf("read box: %v", err)
	}
	if err := balance.Write(txn, bal-10); err != nil {
		log.Fatalf("write box: %v", err)
	}

	slot0, err := accounts.TransRead(txn, 0)
	if err != nil {
		log.Fatalf("read slot 0: %v", err)
	}
	if err := accounts.TransWrite(txn, 0, slot0+10); err != nil {
		log.Fatalf("write slot 0: %v", err)
	}

	if !txn.TryCommit() {
		log.Fatal("expected the first commit to succeed")
	}
	fmt.Printf("   Committed. Box now holds %d, slot 0 now holds %d.\n", balance.NontransRead(), mustRead(accounts, 0))
	fmt.Println()

	fmt.Println("3. Provoking a conflict: t1 reads slot 1, then t2 writes slot 1 and commits first...")
	t1 := sto.NewTransaction(1, nil, nil)
	if err := t1.Begin(); err != nil {
		log.Fatalf("begin t1: %v", err)
	}
	if _, err := accounts.TransRead(t1, 1); err != nil {
		log.Fatalf("t1 read slot 1: %v", err)
	}

	t2 := sto.NewTransaction(2, nil, nil)
	if err := t2.Begin(); err != nil {
		log.Fatalf("begin t2: %v", err)
	}
	if err := accounts.TransWrite(t2, 1, 2000); err != nil {
		log.Fatalf("t2 write slot 1: %v", err)
	}
	if !t2.TryCommit() {
		log.Fatal("expected t2 to commit")
	}
	fmt.Println("   t2 committed its write to slot 1.")

	if t1.TryCommit() {
		log.Fatal("expected t1 to fail validation after t2's write")
	}
	fmt.Println("   t1 failed validation, as expected: it read slot 1 before t2's write landed.")
	fmt.Println()

	fmt.Println("Example completed successfully.")
}

func mustRead(a *array.FixedArray[int64], i int) int64 {
	v, err := a.Read(i)
	if err != nil {
		log.Fatalf("read slot %d: %v", i, err)
	}
	return v
}
