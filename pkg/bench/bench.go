// Package bench provides a small benchmark harness for the sto engine:
// named transaction mixes run against a shared World of sample storage
// objects, by a pool of goroutines for a fixed duration, producing a
// msgpack-encodable Report. Grounded on cmd/cobaltdb-bench's shape —
// one flag-selected workload, run for a count or duration, reporting
// ops/sec — generalized from SQL statements timed in a loop to OCC
// transactions retried on conflict.
package bench

import (
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/tidalstm/sto/pkg/array"
	"github.com/tidalstm/sto/pkg/box"
	"github.com/tidalstm/sto/pkg/epoch"
	"github.com/tidalstm/sto/pkg/index"
	"github.com/tidalstm/sto/pkg/sto"
)

// World is the shared transactional state one benchmark run executes
// its mix against: a fixed array of account-like balances, a scalar
// counter, and an ordered index, sized per Config, plus the epoch
// registry every worker and object registers with at startup.
type World struct {
	Accounts *array.FixedArray[int64]
	Counter  *box.Box[int64]
	Index    *index.Ordered
	Epoch    *epoch.Registry
}

func newWorld(cfg Config, engineCfg *sto.Config) *World {
	w := &World{
		Accounts: array.NewWithConfig[int64](cfg.ArraySize, engineCfg),
		Counter:  box.NewWithConfig[int64](0, engineCfg),
		Index:    index.NewOrderedWithConfig(engineCfg),
		Epoch:    epoch.NewRegistry(),
	}
	for i := 0; i < cfg.ArraySize; i++ {
		w.Accounts.Write(i, 1000)
	}
	return w
}

// Mix is a named transaction profile: one pass of Run is one
// transaction's worth of work against a shared World, to be retried by
// the caller on conflict.
type Mix struct {
	Name string
	Run  func(txn *sto.Transaction, w *World, rng *rand.Rand) error
}

// BalanceTransfer moves one unit from a random account to another,
// the classic OCC contention workload: two array reads, two array
// writes, plus a read and a write of the shared Counter box. Because
// every transfer writes Counter, any two concurrent transfers conflict.
// When both picks land on the same account, no balance changes.
var BalanceTransfer = Mix{
	Name: "balance-transfer",
	Run: func(txn *sto.Transaction, w *World, rng *rand.Rand) error {
		n := w.Accounts.Len()
		from := rng.Intn(n)
		to := rng.Intn(n)

		fromBal, err := w.Accounts.TransRead(txn, from)
		if err != nil {
			return err
		}
		toBal, err := w.Accounts.TransRead(txn, to)
		if err != nil {
			return err
		}
		transfers, err := w.Counter.Read(txn)
		if err != nil {
			return err
		}
		if err := w.Counter.Write(txn, transfers+1); err != nil {
			return err
		}
		if fromBal <= 0 || from == to {
			return nil
		}
		if err := w.Accounts.TransWrite(txn, from, fromBal-1); err != nil {
			return err
		}
		return w.Accounts.TransWrite(txn, to, toBal+1)
	},
}

// ArrayHotspot confines every transaction to a small fixed range of
// slots, maximizing the conflict rate to exercise the commit
// protocol's lock-ordering and retry path under contention.
var ArrayHotspot = Mix{
	Name: "array-hotspot",
	Run: func(txn *sto.Transaction, w *World, rng *rand.Rand) error {
		hotN := 8
		if hotN > w.Accounts.Len() {
			hotN = w.Accounts.Len()
		}
		i := rng.Intn(hotN)

		v, err := w.Accounts.TransRead(txn, i)
		if err != nil {
			return err
		}
		return w.Accounts.TransWrite(txn, i, v+1)
	},
}

// IndexInsert reads then writes a random key in the ordered index,
// exercising pkg/index's UID hashing and the B+Tree insert path under
// concurrent transactions.
var IndexInsert = Mix{
	Name: "index-insert",
	Run: func(txn *sto.Transaction, w *World, rng *rand.Rand) error {
		key := []byte(fmt.Sprintf("k%05d", rng.Intn(10000)))
		if _, _, err := w.Index.TransGet(txn, key); err != nil {
			return err
		}
		return w.Index.TransPut(txn, key, []byte(fmt.Sprintf("v%d", rng.Int())))
	},
}

// Mixes is every named mix this package ships, keyed by Mix.Name.
var Mixes = map[string]Mix{
	BalanceTransfer.Name: BalanceTransfer,
	ArrayHotspot.Name:    ArrayHotspot,
	IndexInsert.Name:     IndexInsert,
}

// Config configures one benchmark Run.
type Config struct {
	Mix        string
	Threads    int
	Duration   time.Duration
	ArraySize  int
	MaxRetries int
	Lock       sto.LockStrategy

	// EpochCycleMS is how often the epoch advancer runs, in
	// milliseconds, when EnableGC is set.
	EpochCycleMS int
	// EnableGC starts the epoch advancer goroutine for the run's World.
	EnableGC bool
}

// DefaultConfig returns sensible defaults for an ad hoc run.
func DefaultConfig() Config {
	return Config{
		Mix:          BalanceTransfer.Name,
		Threads:      4,
		Duration:     2 * time.Second,
		ArraySize:    1000,
		MaxRetries:   100,
		Lock:         sto.SpinLock,
		EpochCycleMS: 10,
		EnableGC:     true,
	}
}

// Report summarizes one completed benchmark run. It is
// msgpack-encodable so repeated runs can be archived and compared —
// the same library the teacher's wire protocol used for its message
// envelopes, re-homed here for report encoding instead.
type Report struct {
	Mix       string        `msgpack:"mix"`
	Threads   int           `msgpack:"threads"`
	Duration  time.Duration `msgpack:"duration_ns"`
	Committed int64         `msgpack:"committed"`
	Aborted   int64         `msgpack:"aborted"`
	GaveUp    int64         `msgpack:"gave_up"`
	OpsPerSec float64       `msgpack:"ops_per_sec"`
}

// Encode serializes r with msgpack.
func (r *Report) Encode() ([]byte, error) {
	return msgpack.Marshal(r)
}

// DecodeReport deserializes a Report previously produced by Encode.
func DecodeReport(data []byte) (*Report, error) {
	var r Report
	if err := msgpack.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("bench: decode report: %w", err)
	}
	return &r, nil
}

// Run launches cfg.Threads goroutines, each calling sto.SetThreadID and
// the per-object ThreadInit once at startup (spec.md §6's thread
// bootstrap), then repeatedly running cfg.Mix's transaction against a
// freshly created World for cfg.Duration. A transaction that fails to
// commit is retried, with a fresh Begin, up to cfg.MaxRetries times
// before it counts as given up rather than committed.
func Run(cfg Config) (*Report, error) {
	mix, ok := Mixes[cfg.Mix]
	if !ok {
		return nil, fmt.Errorf("bench: unknown mix %q", cfg.Mix)
	}
	if cfg.Threads <= 0 {
		return nil, fmt.Errorf("bench: threads must be positive")
	}

	engineCfg := sto.DefaultConfig()
	engineCfg.Lock = cfg.Lock
	engineCfg.EpochCycleMS = cfg.EpochCycleMS
	engineCfg.EnableGC = cfg.EnableGC

	w := newWorld(cfg, engineCfg)

	var advancer *epoch.Advancer
	if cfg.EnableGC {
		advancer = epoch.StartAdvancer(w.Epoch, time.Duration(cfg.EpochCycleMS)*time.Millisecond)
	}

	var committed, aborted, gaveUp int64
	var wg sync.WaitGroup
	stop := make(chan struct{})

	for t := 0; t < cfg.Threads; t++ {
		wg.Add(1)
		go func(threadID int) {
			defer wg.Done()

			sto.SetThreadID(threadID)
			w.Epoch.ThreadInit(threadID)
			w.Accounts.ThreadInit()
			w.Counter.ThreadInit()
			w.Index.ThreadInit()

			rng := rand.New(rand.NewSource(int64(threadID) + 1))
			txn := sto.NewTransaction(threadID, engineCfg, nil)

			for {
				select {
				case <-stop:
					return
				default:
				}

				w.Epoch.Enter(threadID)
				retries := 0
				for {
					if err := txn.Begin(); err != nil {
						txn.Abort()
						continue
					}
					if err := mix.Run(txn, w, rng); err != nil {
						txn.Abort()
						break
					}
					if txn.TryCommit() {
						atomic.AddInt64(&committed, 1)
						break
					}
					atomic.AddInt64(&aborted, 1)
					txn.Abort()
					retries++
					if retries > cfg.MaxRetries {
						atomic.AddInt64(&gaveUp, 1)
						break
					}
				}
				w.Epoch.Quiesce(threadID)
			}
		}(t)
	}

	time.Sleep(cfg.Duration)
	close(stop)
	wg.Wait()

	if advancer != nil {
		advancer.Stop()
	}

	elapsed := cfg.Duration.Seconds()
	var ops float64
	if elapsed > 0 {
		ops = float64(atomic.LoadInt64(&committed)) / elapsed
	}

	return &Report{
		Mix:       cfg.Mix,
		Threads:   cfg.Threads,
		Duration:  cfg.Duration,
		Committed: atomic.LoadInt64(&committed),
		Aborted:   atomic.LoadInt64(&aborted),
		GaveUp:    atomic.LoadInt64(&gaveUp),
		OpsPerSec: ops,
	}, nil
}
