// Package main provides the entry point for the fetch-stage simulator.
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"

	"github.com/sarchlab/m2ooo/emu"
	"github.com/sarchlab/m2ooo/loader"
	"github.com/sarchlab/m2ooo/timing/bac"
	"github.com/sarchlab/m2ooo/timing/cache"
	"github.com/sarchlab/m2ooo/timing/fecfg"
	"github.com/sarchlab/m2ooo/timing/frontend"
	"github.com/sarchlab/m2ooo/timing/mmu"
	"github.com/sarchlab/m2ooo/timing/sched"
)

var (
	configPath = flag.String("config", "", "Path to fetch-stage configuration JSON file")
	maxCycles  = flag.Uint64("max-cycles", 1_000_000, "Cycle budget before the run is aborted")
	verbose    = flag.Bool("v", false, "Verbose output")
)

func main() {
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Usage: m2ooo [options] <program.elf>\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	prog, err := loader.Load(flag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading program: %v\n", err)
		os.Exit(1)
	}

	cfg, err := loadFetchConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading fetch-stage config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid fetch-stage config: %v\n", err)
		os.Exit(1)
	}

	if *verbose {
		fmt.Printf("Loaded: %s\n", flag.Arg(0))
		fmt.Printf("Entry point: 0x%x\n", prog.EntryPoint)
		fmt.Printf("Segments: %d\n", len(prog.Segments))
	}

	stage, drainedAt := run(prog, cfg)

	stats := stage.Stats()
	fmt.Printf("\nProgram: %s\n", flag.Arg(0))
	fmt.Printf("Cycles: %d\n", drainedAt)
	fmt.Printf("Instructions fetched: %d\n", stats.InstructionsFetched)
	fmt.Printf("Traps: %d\n", stats.Traps)
	fmt.Printf("Resteers: %d\n", stats.Resteers)
	fmt.Printf("Prefetches dropped: %d\n", stats.PrefetchesDropped)
}

func loadFetchConfig() (*fecfg.Config, error) {
	if *configPath == "" {
		return fecfg.DefaultConfig(), nil
	}
	return fecfg.Load(*configPath)
}

// run wires one fetch stage against a fresh instruction-side memory
// hierarchy for prog, then ticks it until every thread drains or the
// cycle budget runs out, draining and discarding decoded instructions as
// they arrive since this binary only exercises and reports on the fetch
// stage, not a full pipeline.
func run(prog *loader.Program, cfg *fecfg.Config) (*frontend.Stage, uint64) {
	memory := emu.NewMemory()
	for _, seg := range prog.Segments {
		memory.WriteBlock(seg.VirtAddr, seg.Data)
	}

	clock := sched.NewClock()
	backing := cache.NewMemoryBacking(memory)
	icache := cache.New(cache.DefaultL1IConfig(), backing)
	port := cache.NewPort(icache, clock, nil)

	tlb := mmu.New(mmu.DefaultConfig(), clock)
	for _, seg := range prog.Segments {
		executable := seg.Flags&loader.SegmentFlagExecute != 0
		for off := uint64(0); off < seg.MemSize; off += mmu.PageSize {
			tlb.Map(seg.VirtAddr+off, seg.VirtAddr+off, executable)
		}
	}

	bacUnit := bac.NewBAC(cfg.NumThreads, bac.DefaultPredictorConfig())
	stage := frontend.NewStage(cfg, clock, port, tlb, bacUnit, rand.New(rand.NewSource(1)))
	port.SetHandler(stage)

	for t := 0; t < cfg.NumThreads; t++ {
		stage.SetPC(t, prog.EntryPoint)
	}

	var cycle uint64
	for ; cycle < *maxCycles; cycle++ {
		stage.Tick()
		stage.ToDecode() // discarded: no downstream pipeline stage exists yet

		if stage.IsDrained() {
			break
		}
	}

	return stage, cycle
}
