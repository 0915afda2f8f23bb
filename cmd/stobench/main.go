// Command stobench drives pkg/bench from the command line: pick a
// mix, a thread count, and a duration, and print a report. Grounded on
// cmd/cobaltdb-bench's flag/printHelp shape.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/tidalstm/sto/pkg/bench"
	"github.com/tidalstm/sto/pkg/sto"
)

var (
	flagHelp       bool
	flagMix        string
	flagThreads    int
	flagDuration   time.Duration
	flagArraySize  int
	flagMaxRetries int
	flagMutexLock  bool
	flagEpochMS    int
	flagEnableGC   bool
)

func init() {
	flag.BoolVar(&flagHelp, "help", false, "Show help")
	flag.BoolVar(&flagHelp, "h", false, "Show help (short)")
	flag.StringVar(&flagMix, "mix", bench.BalanceTransfer.Name, "Transaction mix: balance-transfer, array-hotspot, index-insert")
	flag.IntVar(&flagThreads, "threads", 4, "Number of concurrent worker goroutines")
	flag.DurationVar(&flagDuration, "duration", 2*time.Second, "How long to run")
	flag.IntVar(&flagArraySize, "array-size", 1000, "Size of the fixed array the mix operates on")
	flag.IntVar(&flagMaxRetries, "max-retries", 100, "Conflict retries before a transaction counts as given up")
	flag.BoolVar(&flagMutexLock, "mutex-lock", false, "Use mutex locking instead of spin locking")
	flag.IntVar(&flagEpochMS, "epoch-cycle-ms", 10, "Epoch advancer cycle, in milliseconds")
	flag.BoolVar(&flagEnableGC, "enable-gc", true, "Run the epoch advancer for this World")
}

func main() {
	flag.Parse()

	if flagHelp {
		printHelp()
		os.Exit(0)
	}

	cfg := bench.Config{
		Mix:          flagMix,
		Threads:      flagThreads,
		Duration:     flagDuration,
		ArraySize:    flagArraySize,
		MaxRetries:   flagMaxRetries,
		Lock:         sto.SpinLock,
		EpochCycleMS: flagEpochMS,
		EnableGC:     flagEnableGC,
	}
	if flagMutexLock {
		cfg.Lock = sto.MutexLock
	}

	if _, ok := bench.Mixes[cfg.Mix]; !ok {
		names := make([]string, 0, len(bench.Mixes))
		for name := range bench.Mixes {
			names = append(names, name)
		}
		fmt.Fprintf(os.Stderr, "unknown mix %q; available: %s\n", cfg.Mix, strings.Join(names, ", "))
		os.Exit(1)
	}

	fmt.Printf("sto Benchmark Tool\n")
	fmt.Printf("==================\n")
	fmt.Printf("Mix:      %s\n", cfg.Mix)
	fmt.Printf("Threads:  %d\n", cfg.Threads)
	fmt.Printf("Duration: %s\n", cfg.Duration)
	fmt.Println()

	report, err := bench.Run(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error running benchmark: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Committed:  %d\n", report.Committed)
	fmt.Printf("Aborted:    %d\n", report.Aborted)
	fmt.Printf("Gave up:    %d\n", report.GaveUp)
	fmt.Printf("Ops/sec:    %.2f\n", report.OpsPerSec)
}

func printHelp() {
	fmt.Print(`
sto Benchmark Tool v1.0

Usage:
  stobench [options]

Options:
  -h, -help               Show this help message
  -mix <name>             Transaction mix: balance-transfer, array-hotspot, index-insert (default: balance-transfer)
  -threads <n>            Worker goroutines (default: 4)
  -duration <dur>         How long to run, e.g. 2s, 500ms (default: 2s)
  -array-size <n>         Size of the fixed array the mix operates on (default: 1000)
  -max-retries <n>        Conflict retries before giving up (default: 100)
  -mutex-lock             Use mutex locking instead of spin locking
  -epoch-cycle-ms <n>     Epoch advancer cycle in milliseconds (default: 10)
  -enable-gc              Run the epoch advancer (default: true)

Examples:
  stobench
  stobench -mix array-hotspot -threads 16 -duration 5s
  stobench -mix index-insert -duration 1s
`)
}
