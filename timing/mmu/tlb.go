// Package mmu provides the fetch stage's instruction-side translation
// collaborator. It is structurally the same component as timing/cache.Cache
// — a directory-backed, LRU-managed, fixed-line store — generalized to a
// page table: each "line" is one page-table entry instead of one line of
// instruction bytes, and a hit/miss still carries the same kind of
// hit/miss latency split the L1 does on real hardware.
package mmu

import (
	akitacache "github.com/sarchlab/akita/v4/mem/cache"

	"github.com/sarchlab/m2ooo/timing/memport"
	"github.com/sarchlab/m2ooo/timing/sched"
)

// PageSize is the translation granularity.
const PageSize = 4096

const pageMask = PageSize - 1

// Config holds TLB timing and sizing parameters.
type Config struct {
	// Entries is the total number of page-table entries cached.
	Entries int
	// Associativity (number of ways).
	Associativity int
	// HitLatency in cycles.
	HitLatency uint64
	// MissLatency in cycles (walking the page table).
	MissLatency uint64
}

// DefaultConfig returns a 64-entry, 4-way instruction TLB, roughly modeled
// on Apple M2's L1 ITLB.
func DefaultConfig() Config {
	return Config{
		Entries:       64,
		Associativity: 4,
		HitLatency:    1,
		MissLatency:   20,
	}
}

// entry is the page-table-entry payload stored per cached line.
type entry struct {
	paddr   uint64
	present bool
	execute bool
}

// TLB implements memport.Translator using an Akita directory for tag/LRU
// state, exactly the way timing/cache.Cache does for data, and a simple
// in-memory page table as the thing it is caching.
type TLB struct {
	config    Config
	directory *akitacache.DirectoryImpl
	entries   [][]entry // one slot per (setID*associativity + wayID)

	pageTable map[uint64]entry // VPN -> PTE, the "walked" source of truth

	clock *sched.Clock
	stats Statistics
}

// Statistics holds TLB performance counters.
type Statistics struct {
	Lookups uint64
	Hits    uint64
	Misses  uint64
	Faults  uint64
}

// New creates a TLB backed by the given Clock for latency scheduling.
func New(config Config, clock *sched.Clock) *TLB {
	numSets := config.Entries / config.Associativity
	if numSets < 1 {
		numSets = 1
	}
	totalSlots := numSets * config.Associativity

	entries := make([][]entry, totalSlots)
	for i := range entries {
		entries[i] = make([]entry, 1)
	}

	return &TLB{
		config: config,
		directory: akitacache.NewDirectory(
			numSets,
			config.Associativity,
			1, // one page-table entry per "line"
			akitacache.NewLRUVictimFinder(),
		),
		entries:   entries,
		pageTable: make(map[uint64]entry),
		clock:     clock,
	}
}

// Map installs a page-table entry, as cmd/m2ooo does for every page of
// each ELF segment it places into physical memory. A page mapped more than once is
// simply overwritten, matching how a real OS would remap it.
func (t *TLB) Map(vaddr, paddr uint64, executable bool) {
	vpn := vaddr &^ pageMask
	t.pageTable[vpn] = entry{paddr: paddr &^ pageMask, present: true, execute: executable}
}

// Stats returns a copy of the current TLB statistics.
func (t *TLB) Stats() Statistics {
	return t.stats
}

func (t *TLB) slotIndex(block *akitacache.Block) int {
	return block.SetID*t.config.Associativity + block.WayID
}

// TranslateTiming implements memport.Translator. It never calls back
// synchronously: even an L1-TLB hit is scheduled through the Clock so the
// fetch controller's state machine always observes translation as a
// multi-cycle operation, matching the spec's Running -> ItlbWait -> Running
// transition shape.
func (t *TLB) TranslateTiming(req *memport.TranslationRequest, completion memport.TranslationCompletion, mode memport.AccessMode) {
	t.stats.Lookups++
	vpn := req.VAddr &^ pageMask

	block := t.directory.Lookup(0, vpn)
	var latency uint64
	var pte entry

	if block != nil && block.IsValid {
		t.stats.Hits++
		t.directory.Visit(block)
		pte = t.entries[t.slotIndex(block)][0]
		latency = t.config.HitLatency
	} else {
		t.stats.Misses++
		latency = t.config.MissLatency
		pte = t.walk(vpn)
		t.install(vpn, pte)
	}

	t.clock.Schedule(latency, func() {
		result := memport.TranslationResult{Req: req}
		switch {
		case !pte.present:
			t.stats.Faults++
			result.Fault = &memport.Fault{Kind: memport.FaultPageNotPresent, VA: req.VAddr}
		case !pte.execute:
			t.stats.Faults++
			result.Fault = &memport.Fault{Kind: memport.FaultNoExecute, VA: req.VAddr}
		default:
			result.PAddr = pte.paddr | (req.VAddr & pageMask)
		}
		completion.CompleteTranslation(result)
	})
}

func (t *TLB) walk(vpn uint64) entry {
	pte, ok := t.pageTable[vpn]
	if !ok {
		return entry{present: false}
	}
	return pte
}

func (t *TLB) install(vpn uint64, pte entry) {
	victim := t.directory.FindVictim(vpn)
	if victim == nil {
		return
	}
	victim.Tag = vpn
	victim.IsValid = true
	victim.IsDirty = false
	t.entries[t.slotIndex(victim)][0] = pte
	t.directory.Visit(victim)
}

// Invalidate drops a cached translation, used when a page mapping changes.
func (t *TLB) Invalidate(vaddr uint64) {
	vpn := vaddr &^ pageMask
	block := t.directory.Lookup(0, vpn)
	if block != nil {
		block.IsValid = false
	}
}

// Reset clears all cached translations and statistics without touching the
// underlying page table.
func (t *TLB) Reset() {
	t.directory.Reset()
	t.stats = Statistics{}
}
