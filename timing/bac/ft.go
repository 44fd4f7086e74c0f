package bac

import "github.com/sarchlab/m2ooo/timing/memport"

// State is the Fetch-Target lifecycle state.
type State int

// FT lifecycle states, per the data model's invariants: TranslationReady
// implies a physical base and no fault; TranslationFailed implies a fault
// and no physical base; PrefetchInProgress implies a physical base.
const (
	Initial State = iota
	TranslationInProgress
	TranslationReady
	TranslationFailed
	PrefetchInProgress
	ReadyToFetch
	Consumed
)

func (s State) String() string {
	switch s {
	case Initial:
		return "Initial"
	case TranslationInProgress:
		return "TranslationInProgress"
	case TranslationReady:
		return "TranslationReady"
	case TranslationFailed:
		return "TranslationFailed"
	case PrefetchInProgress:
		return "PrefetchInProgress"
	case ReadyToFetch:
		return "ReadyToFetch"
	case Consumed:
		return "Consumed"
	default:
		return "Unknown"
	}
}

// ReqHandle carries whichever in-flight request an FT currently owns: a
// translation handle while in TranslationInProgress, or a cache packet
// while in PrefetchInProgress. Exactly one field is non-nil.
type ReqHandle struct {
	Translation *memport.TranslationRequest
	Cache       *memport.CachePacket
}

// FT is one entry of the FTQ: a contiguous predicted fetch region plus its
// translation/prefetch progress.
type FT struct {
	StartVA     uint64
	EndVA       uint64
	BlockVA     uint64
	FallThrough bool

	physBase      uint64
	physBaseValid bool

	req      *memport.TranslationRequest
	cacheReq *memport.CachePacket

	fault *memport.Fault

	state State

	translationStartCycle uint64
}

// NewFT creates an FT for [startVA, endVA) whose cache-block-aligned
// address is blockVA.
func NewFT(startVA, endVA, blockVA uint64, fallThrough bool) *FT {
	return &FT{
		StartVA:     startVA,
		EndVA:       endVA,
		BlockVA:     blockVA,
		FallThrough: fallThrough,
		state:       Initial,
	}
}

// State returns the FT's current lifecycle state.
func (f *FT) State() State { return f.state }

// StartTranslation transitions Initial -> TranslationInProgress, recording
// the request handle and the cycle it started on (for latency bookkeeping).
func (f *FT) StartTranslation(req *memport.TranslationRequest, nowCycle uint64) {
	f.req = req
	f.translationStartCycle = nowCycle
	f.state = TranslationInProgress
}

// FinishTranslation processes a translation completion. It is idempotent
// against stale completions: if the FT is not currently waiting on this
// exact request, it is a no-op and ok is false, letting the caller detect
// and count a stale response without corrupting state.
func (f *FT) FinishTranslation(result memport.TranslationResult, nowCycle uint64) (latency uint64, ok bool) {
	if f.state != TranslationInProgress || f.req != result.Req {
		return 0, false
	}
	latency = nowCycle - f.translationStartCycle
	f.req = nil

	if result.Fault != nil {
		f.fault = result.Fault
		f.state = TranslationFailed
		return latency, true
	}

	f.physBase = result.PAddr &^ (PageSize - 1)
	f.physBaseValid = true
	f.state = TranslationReady
	return latency, true
}

// PageSize mirrors the MMU's translation granularity; the FT only needs it
// to mask a physical base down to its page.
const PageSize = 4096

// PrefetchIssued transitions TranslationReady -> PrefetchInProgress,
// recording the cache packet sent on the FT's behalf.
func (f *FT) PrefetchIssued(pkt *memport.CachePacket) {
	f.cacheReq = pkt
	f.state = PrefetchInProgress
}

// PopReq transfers ownership of whichever in-flight request handle the FT
// holds out to the caller, used when a demand fetch adopts an in-flight
// translation or prefetch instead of re-issuing.
func (f *FT) PopReq() ReqHandle {
	h := ReqHandle{Translation: f.req, Cache: f.cacheReq}
	f.req = nil
	f.cacheReq = nil
	return h
}

// MarkReady transitions the FT directly to ReadyToFetch, used when a demand
// adopts the FT's in-flight translation or prefetch (right after PopReq),
// when the FT's prefetch response lands, and when the FT's physical address
// is already in flight so no prefetch is sent for it (deduplication).
func (f *FT) MarkReady() {
	f.state = ReadyToFetch
}

// MarkConsumed retires the FT once its range has been fully fetched.
func (f *FT) MarkConsumed() {
	f.state = Consumed
}

// RequiresTranslation reports whether the FT has not yet started
// translation.
func (f *FT) RequiresTranslation() bool {
	return f.state == Initial
}

// TranslationIsReady reports whether the FT carries a valid physical base.
func (f *FT) TranslationIsReady() bool {
	return f.physBaseValid
}

// InRange reports whether addr falls within [StartVA, EndVA).
func (f *FT) InRange(addr uint64) bool {
	return addr >= f.StartVA && addr < f.EndVA
}

// InRangeAligned reports whether addr's cache-block-aligned address (using
// the given block size) is this FT's own cache block.
func (f *FT) InRangeAligned(addr, cacheBlockSize uint64) bool {
	aligned := addr &^ (cacheBlockSize - 1)
	return aligned == f.BlockVA
}

// IsFallThrough reports whether the FT's successor is sequential.
func (f *FT) IsFallThrough() bool { return f.FallThrough }

// BlkAddr returns the FT's cache-block-aligned virtual address.
func (f *FT) BlkAddr() uint64 { return f.BlockVA }

// PhysAddr derives the physical address for virtual address va, which must
// lie within this FT's cache block. ok is false if no physical base has
// been resolved yet.
func (f *FT) PhysAddr(va uint64) (uint64, bool) {
	if !f.physBaseValid {
		return 0, false
	}
	pageOff := va & (PageSize - 1)
	return f.physBase | pageOff, true
}

// Fault returns the fault recorded on a TranslationFailed FT, if any.
func (f *FT) Fault() *memport.Fault { return f.fault }
