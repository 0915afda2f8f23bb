// Package epoch implements the reclamation collaborator spec.md §5 and
// §9 describe only as an external contract: a quiescent flag per
// thread, advanced by a periodic epoch advancer, such that an object
// retired before the current epoch is safe to free because no
// registered thread's in-flight transaction can still be holding a
// pointer to it.
//
// Grounded on pkg/storage's buffer-pool idiom: an atomic per-entry flag
// (there, a pin count; here, an active/quiescent flag) plus a
// container/list-ordered structure that is drained from the oldest
// entry forward (there, LRU eviction; here, epoch-ordered reclamation).
package epoch

import (
	"container/list"
	"sync"
	"sync/atomic"
	"time"
)

// Registry tracks per-thread quiescent state and the global epoch
// counter, and holds the list of objects retired but not yet safe to
// free.
type Registry struct {
	mu      sync.Mutex
	threads map[int]*threadSlot
	epoch   uint64
	retired *list.List // of *retirement, oldest (lowest retirement epoch) first
}

type threadSlot struct {
	active int32 // atomic: 1 while inside a transaction, 0 while quiescent
}

type retirement struct {
	epoch uint64
	free  func()
}

// NewRegistry creates an empty registry at epoch 0.
func NewRegistry() *Registry {
	return &Registry{
		threads: make(map[int]*threadSlot),
		retired: list.New(),
	}
}

// ThreadInit registers threadID with the registry. Each worker calls
// this once at startup, per spec.md §6's thread bootstrap.
func (r *Registry) ThreadInit(threadID int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.threads[threadID]; !ok {
		r.threads[threadID] = &threadSlot{}
	}
}

// Enter marks threadID active — inside a transaction, and therefore a
// reason the epoch cannot advance past its current value.
func (r *Registry) Enter(threadID int) {
	if ts := r.slot(threadID); ts != nil {
		atomic.StoreInt32(&ts.active, 1)
	}
}

// Quiesce marks threadID quiescent — outside any transaction.
func (r *Registry) Quiesce(threadID int) {
	if ts := r.slot(threadID); ts != nil {
		atomic.StoreInt32(&ts.active, 0)
	}
}

func (r *Registry) slot(threadID int) *threadSlot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.threads[threadID]
}

// Epoch returns the current global epoch.
func (r *Registry) Epoch() uint64 {
	return atomic.LoadUint64(&r.epoch)
}

// Retire schedules free to run once every registered thread has been
// observed quiescent since the epoch current at the time of this call —
// i.e. once it is no longer possible for any in-flight transaction to
// still hold a pointer to whatever free reclaims.
func (r *Registry) Retire(free func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.retired.PushBack(&retirement{epoch: r.epoch, free: free})
}

// Advance advances the global epoch if every registered thread is
// currently quiescent, then runs (outside the registry's lock) every
// retirement scheduled before the new epoch. It is safe to call
// concurrently with Enter/Quiesce/Retire/ThreadInit; Advancer calls it
// on a timer, but tests may call it directly too.
func (r *Registry) Advance() {
	r.mu.Lock()
	for _, ts := range r.threads {
		if atomic.LoadInt32(&ts.active) != 0 {
			r.mu.Unlock()
			return
		}
	}
	newEpoch := r.epoch + 1
	atomic.StoreUint64(&r.epoch, newEpoch)

	var drained []func()
	for e := r.retired.Front(); e != nil; {
		next := e.Next()
		ret := e.Value.(*retirement)
		if ret.epoch < newEpoch {
			drained = append(drained, ret.free)
			r.retired.Remove(e)
		}
		e = next
	}
	r.mu.Unlock()

	for _, free := range drained {
		free()
	}
}

// Advancer periodically advances a Registry's epoch on a fixed cycle
// until stopped. Started only when Config.EnableGC is true — the
// registry itself is always safe to use without one, since Retire just
// accumulates a backlog if nothing ever advances.
type Advancer struct {
	registry *Registry
	ticker   *time.Ticker
	done     chan struct{}
}

// StartAdvancer starts a background advancer for r, ticking every
// cycle.
func StartAdvancer(r *Registry, cycle time.Duration) *Advancer {
	a := &Advancer{
		registry: r,
		ticker:   time.NewTicker(cycle),
		done:     make(chan struct{}),
	}
	go a.run()
	return a
}

func (a *Advancer) run() {
	for {
		select {
		case <-a.ticker.C:
			a.registry.Advance()
		case <-a.done:
			return
		}
	}
}

// Stop halts the advancer. It does not block for an in-flight Advance
// to finish.
func (a *Advancer) Stop() {
	a.ticker.Stop()
	close(a.done)
}
