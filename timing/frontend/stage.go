// Package frontend is the fetch stage: the per-thread controller state
// machine, the SMT arbiter, and the tick driver that ties them to the
// decoder, the BAC/FTQ, the MMU, and the instruction-cache port.
package frontend

import (
	"math/rand"

	"github.com/sarchlab/m2ooo/insts"
	"github.com/sarchlab/m2ooo/timing/bac"
	"github.com/sarchlab/m2ooo/timing/decode"
	"github.com/sarchlab/m2ooo/timing/fecfg"
	"github.com/sarchlab/m2ooo/timing/memport"
	"github.com/sarchlab/m2ooo/timing/sched"
)

// Statistics aggregates stage-wide counters surfaced for diagnostics.
type Statistics struct {
	InstructionsFetched uint64
	Traps               uint64
	Resteers            uint64
	PrefetchesDropped   uint64
}

// FetchListener receives the stage's per-instruction and per-request probe
// notifications. OnFetch fires once per dynamic instruction queued for
// decode; OnRequestSent fires once per demand cache request the stage sends
// (including resends after a retry). Both are no-ops by default; attach a
// listener with SetListener to observe fetch-engine activity without the
// stage itself depending on a tracing/metrics library.
type FetchListener interface {
	OnFetch(dyn *DynamicInst)
	OnRequestSent(pkt *memport.CachePacket)
}

type noopListener struct{}

func (noopListener) OnFetch(*DynamicInst)               {}
func (noopListener) OnRequestSent(*memport.CachePacket) {}

// Stage is the fetch stage for every hardware thread it was configured
// with.
type Stage struct {
	cfg       *fecfg.Config
	clock     *sched.Clock
	cachePort memport.CachePort
	translator memport.Translator
	bacUnit   *bac.BAC
	arbiter   *Arbiter
	rng       *rand.Rand

	threads []*threadState

	retry       retrySlot
	cacheBlocked bool

	seq seqAllocator

	nextPacketID      uint64
	nextTranslationID uint64

	toDecode []*DynamicInst

	drainRequested bool

	stats    Statistics
	listener FetchListener
}

// NewStage wires a fetch stage for cfg.NumThreads threads against the
// given collaborators.
func NewStage(cfg *fecfg.Config, clock *sched.Clock, cachePort memport.CachePort, translator memport.Translator, bacUnit *bac.BAC, rng *rand.Rand) *Stage {
	s := &Stage{
		cfg:        cfg,
		clock:      clock,
		cachePort:  cachePort,
		translator: translator,
		bacUnit:    bacUnit,
		rng:        rng,
		arbiter:    NewArbiter(cfg.SMTFetchPolicy, cfg.SMTNumFetchingThreads, rng),
		listener:   noopListener{},
	}

	tc := threadConfig{
		fetchBufferSize: cfg.FetchBufferSize,
		maxPrefetches:   cfg.MaxOutstandingPrefetches,
		maxTranslations: cfg.MaxOutstandingTranslations,
	}
	s.threads = make([]*threadState, cfg.NumThreads)
	for i := range s.threads {
		s.threads[i] = newThreadState(i, tc)
	}
	return s
}

// SetPC sets a thread's starting architectural PC and moves it to Running,
// used to boot a thread at the entry point resolved by the loader.
func (s *Stage) SetPC(tid int, pc uint64) {
	t := s.threads[tid]
	t.archPC = pc
	t.microPC = pc
	t.state = Running
}

// SetQueueOccupancy feeds the IEW-reported queue depths the IQCount/LSQCount
// arbiter policies rank threads by.
func (s *Stage) SetQueueOccupancy(tid, iqCount, lsqCount int) {
	t := s.threads[tid]
	t.iqCount, t.lsqCount = iqCount, lsqCount
}

// Block asserts decode backpressure against tid: fetched instructions are
// held rather than drained this cycle.
func (s *Stage) Block(tid int) { s.threads[tid].blockAsserted = true }

// Unblock clears decode backpressure against tid.
func (s *Stage) Unblock(tid int) { s.threads[tid].blockAsserted = false }

// SetDrainStall marks or clears tid's drain stall.
func (s *Stage) SetDrainStall(tid int, stall bool) { s.threads[tid].drainStall = stall }

// SetInterrupt marks or clears a pending interrupt on tid.
func (s *Stage) SetInterrupt(tid int, pending bool) { s.threads[tid].interruptPending = pending }

// Squash requests that tid restart fetching at nextPC. It takes effect at
// the start of the next Tick, before any fetch progress that cycle.
// squashInst is the dynamic instruction that triggered the squash (the
// mispredicted branch or the instruction commit squashed on), or nil when
// the squash has no specific triggering instruction (an external resteer).
// When squashInst's own PC equals nextPC and it was not the last micro-op
// of its macro-op, its macro-op is retained rather than dropped, so fetch
// resumes mid-macro-op instead of redecoding from scratch.
func (s *Stage) Squash(tid int, nextPC uint64, squashInst *DynamicInst) {
	t := s.threads[tid]
	t.squashPending = true
	t.squashNextPC = nextPC
	t.squashInst = squashInst
}

// Wake clears QuiescePending on tid, used by the external wake event named
// in the quiesce contract.
func (s *Stage) Wake(tid int) {
	t := s.threads[tid]
	if t.state == QuiescePending {
		t.state = Running
	}
}

// ToDecode returns (and clears) the instructions drained to decode this
// tick.
func (s *Stage) ToDecode() []*DynamicInst {
	out := s.toDecode
	s.toDecode = nil
	return out
}

// Stats returns the stage's aggregate counters.
func (s *Stage) Stats() Statistics { return s.stats }

// SetListener attaches l to receive this stage's fetch/request-sent
// notifications in place of the default no-op listener.
func (s *Stage) SetListener(l FetchListener) { s.listener = l }

// RequestDrain marks every thread's drain stall, per the drain contract.
func (s *Stage) RequestDrain() {
	s.drainRequested = true
	for _, t := range s.threads {
		t.drainStall = true
	}
}

// ResumeFromDrain clears every thread's drain stall.
func (s *Stage) ResumeFromDrain() {
	s.drainRequested = false
	for _, t := range s.threads {
		t.drainStall = false
	}
}

// IsDrained reports whether the stage holds no live work: every thread has
// an empty fetch queue and is Idle or Blocked-with-drain-stall, and no
// translation-completion event is pending.
func (s *Stage) IsDrained() bool {
	if s.clock.Pending() > 0 {
		return false
	}
	for _, t := range s.threads {
		if !t.isDrained() {
			return false
		}
	}
	return true
}

// Tick advances the stage by one simulated cycle.
func (s *Stage) Tick() {
	s.clock.Tick()

	for _, t := range s.threads {
		s.transition(t)
	}

	numSelected := s.cfg.SMTNumFetchingThreads
	for i := 0; i < numSelected; i++ {
		candidates := make([]ArbiterCandidate, len(s.threads))
		for j, t := range s.threads {
			candidates[j] = ArbiterCandidate{
				ThreadID: t.id,
				Eligible: t.eligibleForArbiter(),
				IQCount:  t.iqCount,
				LSQCount: t.lsqCount,
			}
		}
		selected := s.arbiter.Select(candidates)
		if len(selected) == 0 {
			break
		}
		t := s.threads[selected[0]]
		s.issueInstructions(t)
	}

	for _, t := range s.threads {
		s.maybePipelinedPrefetch(t)
	}

	if s.cfg.DecoupledFrontEnd {
		for _, t := range s.threads {
			s.processFTQ(t)
		}
	}

	s.drainToDecode()
}

// transition runs the state-machine transitions that do not depend on the
// instruction-issue loop: squash application and the post-squash/empty-FTQ
// resumption.
func (s *Stage) transition(t *threadState) {
	if t.squashPending {
		t.squashPending = false
		s.squashThread(t, t.squashNextPC, t.squashInst)
		t.squashInst = nil
		return
	}

	if t.state == Squashing {
		if t.drainStall {
			t.state = Blocked
		} else if s.cfg.DecoupledFrontEnd && s.bacUnit.IsEmpty(t.id) {
			t.state = FTQEmpty
		} else {
			t.state = Running
		}
		return
	}

	if t.state == FTQEmpty && s.cfg.DecoupledFrontEnd && !s.bacUnit.IsEmpty(t.id) {
		t.state = Running
	}

	if t.state == IcacheAccessComplete {
		t.state = Running
	}
}

// squashThread resets tid's fetch progress and discards in-flight work
// that this squash owns. The in-flight macro-op is dropped unless
// squashInst's PC equals nextPC and squashInst is not the last micro-op of
// its macro-op, in which case fetch resumes mid-macro-op instead of
// redecoding it from the start.
func (s *Stage) squashThread(t *threadState, nextPC uint64, squashInst *DynamicInst) {
	retain := squashInst != nil && squashInst.Static != nil && squashInst.Static.IsMacroOp &&
		squashInst.Micro != nil && !squashInst.Micro.IsLastMicroOp &&
		squashInst.PC == nextPC

	if retain {
		t.curMacro = squashInst.Static
		t.delayedCommit = true
	} else {
		t.curMacro = nil
		t.microIndex = 0
		t.delayedCommit = false
	}
	t.decoder.Reset()

	t.archPC = nextPC
	t.microPC = nextPC

	t.translationReq = nil
	t.memReq = nil
	t.curFT = nil

	if s.retry.held && s.retry.threadID == t.id {
		s.retry = retrySlot{}
		s.cacheBlocked = false
	}

	t.fetchQueue = nil
	t.buf.Invalidate()

	t.squashedPrefetches += uint64(t.tracker.DropPrefetches())

	s.bacUnit.Invalidate(t.id)

	t.state = Squashing
}

// trap synthesizes a no-op dynamic instruction carrying fault at the
// faulting PC and transitions tid to TrapPending, unless the fetch queue
// is full, in which case it is rescheduled one cycle later.
func (s *Stage) trap(t *threadState, fault *memport.Fault, faultingPC uint64) {
	if len(t.fetchQueue) >= s.cfg.FetchQueueSize {
		s.clock.Schedule(1, func() { s.trap(t, fault, faultingPC) })
		return
	}

	dyn := &DynamicInst{
		SeqNum:   s.seq.alloc(),
		ThreadID: t.id,
		PC:       faultingPC,
		Fault:    fault,
	}
	t.fetchQueue = append(t.fetchQueue, dyn)
	t.state = TrapPending
	s.stats.Traps++
}

// fetchCacheLine is the demand-side cache-line fetch path, run once per
// selected thread per tick as part of the instruction-issue loop whenever
// the fetch buffer does not already hold the bytes the thread's PC needs.
func (s *Stage) fetchCacheLine(t *threadState) {
	if s.cacheBlocked || (t.interruptPending && !t.delayedCommit) {
		return
	}

	v := AlignDown(t.archPC, uint64(s.cfg.FetchBufferSize))

	var ft *bac.FT
	if s.cfg.DecoupledFrontEnd {
		head := s.bacUnit.ReadHead(t.id)
		blockSize := uint64(s.cfg.CacheBlockSize)
		switch {
		case head != nil && head.InRangeAligned(v, blockSize):
			ft = head
		case head != nil && head.IsFallThrough():
			if next := s.bacUnit.ReadNextHead(t.id); next != nil && next.InRangeAligned(v, blockSize) {
				ft = next
			}
		}
	}
	t.curFT = ft

	if ft != nil {
		switch ft.State() {
		case bac.ReadyToFetch:
			if paddr, ok := ft.PhysAddr(v); ok {
				s.performCacheAccess(t, s.cfg.FetchBufferSize, false, paddr)
			} else {
				t.state = NoGoodAddr
			}
			return
		case bac.PrefetchInProgress:
			h := ft.PopReq()
			ft.MarkReady()
			t.memReq = h.Cache
			t.state = IcacheWaitResponse
			t.tracker.AdoptPrefetch()
			s.listener.OnRequestSent(h.Cache)
			return
		case bac.TranslationInProgress:
			h := ft.PopReq()
			ft.MarkReady()
			t.translationReq = h.Translation
			t.state = ItlbWait
			return
		case bac.TranslationFailed:
			s.trap(t, ft.Fault(), v)
			return
		case bac.TranslationReady:
			if paddr, ok := ft.PhysAddr(v); ok {
				s.performCacheAccess(t, s.cfg.FetchBufferSize, false, paddr)
			} else {
				t.state = NoGoodAddr
			}
			return
		case bac.Initial:
			// fall through to fresh request creation below
		}
	}

	s.issueFreshDemand(t, v, ft)
}

func (s *Stage) issueFreshDemand(t *threadState, v uint64, ft *bac.FT) {
	if ft != nil {
		if paddr, ok := ft.PhysAddr(v); ok {
			s.performCacheAccess(t, s.cfg.FetchBufferSize, false, paddr)
			return
		}
	}

	req := &memport.TranslationRequest{ID: s.allocTranslationID(), ThreadID: t.id, VAddr: v, Mode: memport.ModeExecute}
	t.translationReq = req
	if ft != nil {
		ft.StartTranslation(req, s.clock.Now())
	}
	t.tracker.BeginTranslation()
	t.state = ItlbWait
	s.translator.TranslateTiming(req, s, memport.ModeExecute)
}

// performCacheAccess sends a read for size bytes at physical address paddr.
// If paddr does not name a real system-memory address, fetch cannot make
// progress off of it; the request is dropped and the thread reports
// NoGoodAddr so it stalls until commit squashes it back onto the right
// track. Every caller passes isPrefetch false: processFTQ and
// maybePipelinedPrefetch send prefetch packets directly, so prefetches are
// not checked against isMemAddr.
func (s *Stage) performCacheAccess(t *threadState, size int, isPrefetch bool, paddr uint64) {
	if !s.isMemAddr(paddr, size) {
		if isPrefetch {
			s.stats.PrefetchesDropped++
		} else {
			t.memReq = nil
		}
		t.state = NoGoodAddr
		return
	}

	pkt := &memport.CachePacket{ID: s.allocPacketID(), ThreadID: t.id, PAddr: paddr, Size: size, IsPrefetch: isPrefetch}

	accepted := s.cachePort.SendTimingReq(pkt)
	if !accepted {
		if isPrefetch {
			s.stats.PrefetchesDropped++
			return
		}
		t.state = IcacheWaitRetry
		s.retry = retrySlot{pkt: pkt, threadID: t.id, held: true}
		s.cacheBlocked = true
		return
	}

	if isPrefetch {
		t.tracker.BeginPrefetch(paddr)
	} else {
		t.tracker.BeginDemand(paddr)
		t.memReq = pkt
		t.state = IcacheWaitResponse
		s.listener.OnRequestSent(pkt)
	}
}

// isMemAddr reports whether [paddr, paddr+size) lies entirely within the
// configured system physical address space.
func (s *Stage) isMemAddr(paddr uint64, size int) bool {
	end := paddr + uint64(size)
	return end > paddr && end <= s.cfg.PhysMemSize
}

// RecvTimingResp implements memport.CacheRespHandler.
func (s *Stage) RecvTimingResp(pkt *memport.CachePacket) {
	t := s.threads[pkt.ThreadID]
	t.tracker.Complete(pkt.PAddr)

	if t.memReq == pkt {
		t.memReq = nil
		t.buf.Fill(t.bufVAddrForDemand(), pkt.Data)
		if t.drainStall {
			t.state = Blocked
		} else {
			t.state = IcacheAccessComplete
		}
		return
	}

	if ft := s.findFTForPacket(t.id, pkt); ft != nil {
		ft.MarkReady()
		t.tracker.CompletePrefetch(pkt.PAddr)
		t.pfReceived++
		return
	}

	t.icacheSquashes++
}

// bufVAddrForDemand recovers the virtual address the just-completed demand
// access targeted: it is always the fetch-buffer-aligned address derived
// from the thread's current architectural PC, since a demand response only
// ever arrives while the thread is still waiting on that exact access.
func (t *threadState) bufVAddrForDemand() uint64 {
	return AlignDown(t.archPC, uint64(len(t.buf.Data)))
}

func (s *Stage) findFTForPacket(tid int, pkt *memport.CachePacket) *bac.FT {
	blockSize := uint64(s.cfg.CacheBlockSize)
	matches := func(ft *bac.FT) bool {
		if ft.State() != bac.PrefetchInProgress {
			return false
		}
		paddr, ok := ft.PhysAddr(ft.BlkAddr())
		return ok && AlignDown(paddr, blockSize) == AlignDown(pkt.PAddr, blockSize)
	}
	if head := s.bacUnit.ReadHead(tid); head != nil && matches(head) {
		return head
	}
	return s.bacUnit.FindAfterHead(tid, matches)
}

// RecvReqRetry implements memport.CacheRetryHandler.
func (s *Stage) RecvReqRetry() {
	if !s.retry.held {
		s.cacheBlocked = false
		return
	}

	pkt := s.retry.pkt
	if s.cachePort.SendTimingReq(pkt) {
		t := s.threads[s.retry.threadID]
		t.state = IcacheWaitResponse
		t.memReq = pkt
		t.tracker.BeginDemand(pkt.PAddr)
		s.listener.OnRequestSent(pkt)
		s.retry = retrySlot{}
		s.cacheBlocked = false
	}
}

// CompleteTranslation implements memport.TranslationCompletion.
func (s *Stage) CompleteTranslation(result memport.TranslationResult) {
	req := result.Req
	t := s.threads[req.ThreadID]
	t.tracker.EndTranslation()

	if t.translationReq == req {
		t.translationReq = nil
		if t.curFT != nil {
			// The demand may share its request with the FT it fetches for.
			t.curFT.FinishTranslation(result, s.clock.Now())
		}
		if result.Fault != nil {
			s.trap(t, result.Fault, req.VAddr)
			return
		}
		s.performCacheAccess(t, s.cfg.FetchBufferSize, false, result.PAddr)
		return
	}

	now := s.clock.Now()
	if head := s.bacUnit.ReadHead(req.ThreadID); head != nil {
		if _, ok := head.FinishTranslation(result, now); ok {
			return
		}
	}
	if ft := s.bacUnit.FindAfterHead(req.ThreadID, func(ft *bac.FT) bool {
		_, ok := ft.FinishTranslation(result, now)
		return ok
	}); ft != nil {
		return
	}

	t.tlbSquashes++
}

// maybePipelinedPrefetch prefetches the cache block of the FT after the
// FTQ head while the thread is Running on a valid fetch buffer. It applies
// no distance-to-buffer-end threshold: the check below passes for every PC
// at or above the buffer's start.
func (s *Stage) maybePipelinedPrefetch(t *threadState) {
	if !s.cfg.DecoupledFrontEnd || s.cacheBlocked || t.state != Running {
		return
	}
	if !t.buf.Valid {
		return
	}

	bufEnd := t.buf.VAddr + uint64(s.cfg.FetchBufferSize)
	if t.archPC+uint64(s.cfg.FetchBufferSize) < bufEnd {
		return // PC lies below the buffer's start
	}

	next := s.bacUnit.ReadNextHead(t.id)
	if next == nil || next.State() != bac.TranslationReady {
		return
	}
	if !t.tracker.CanPrefetch() {
		return
	}
	paddr, ok := next.PhysAddr(next.BlkAddr())
	if !ok || t.tracker.InFlight(paddr) {
		if ok {
			next.MarkReady()
		}
		return
	}

	pkt := &memport.CachePacket{ID: s.allocPacketID(), ThreadID: t.id, PAddr: paddr, Size: s.cfg.CacheBlockSize, IsPrefetch: true}
	if s.cachePort.SendTimingReq(pkt) {
		next.PrefetchIssued(pkt)
		t.tracker.BeginPrefetch(paddr)
	}
}

// processFTQ is the decoupled-mode prefetch engine: it runs once per
// thread per tick, translating and prefetching ahead of the FTQ head.
func (s *Stage) processFTQ(t *threadState) {
	if s.bacUnit.Size(t.id) < 2 {
		return
	}

	if t.tracker.CanTranslate() {
		if ft := s.bacUnit.FindAfterHead(t.id, func(ft *bac.FT) bool { return ft.RequiresTranslation() }); ft != nil {
			req := &memport.TranslationRequest{ID: s.allocTranslationID(), ThreadID: t.id, VAddr: ft.BlkAddr(), Mode: memport.ModeExecute}
			ft.StartTranslation(req, s.clock.Now())
			t.tracker.BeginTranslation()
			s.translator.TranslateTiming(req, s, memport.ModeExecute)
		}
	}

	if s.cacheBlocked || s.retry.held || !t.tracker.CanPrefetch() {
		return
	}

	ft := s.bacUnit.FindAfterHead(t.id, func(ft *bac.FT) bool { return ft.State() == bac.TranslationReady })
	if ft == nil {
		return
	}
	paddr, ok := ft.PhysAddr(ft.BlkAddr())
	if !ok {
		return
	}
	if t.tracker.InFlight(paddr) {
		ft.MarkReady()
		return
	}

	pkt := &memport.CachePacket{ID: s.allocPacketID(), ThreadID: t.id, PAddr: paddr, Size: s.cfg.CacheBlockSize, IsPrefetch: true}
	if s.cachePort.SendTimingReq(pkt) {
		ft.PrefetchIssued(pkt)
		t.tracker.BeginPrefetch(paddr)
	}
}

// issueInstructions runs the instruction-issue loop for one selected
// thread for this cycle.
func (s *Stage) issueInstructions(t *threadState) {
	if t.state != Running {
		return
	}

	if !t.buf.Holds(AlignDown(t.archPC, uint64(s.cfg.FetchBufferSize))) && t.curMacro == nil {
		s.fetchCacheLine(t)
		return
	}

	numInst := 0
	for numInst < s.cfg.FetchWidth &&
		len(t.fetchQueue) < s.cfg.FetchQueueSize &&
		t.state == Running {

		if t.curMacro == nil {
			if t.decoder.NeedMoreBytes() {
				if !t.buf.Holds(AlignDown(t.archPC, uint64(s.cfg.FetchBufferSize))) {
					break
				}
				offset := int(t.archPC - t.buf.VAddr)
				t.decoder.MoreBytes(t.archPC, t.buf.BytesFrom(offset))
			}

			si := t.decoder.Decode(t.archPC)
			if si == nil {
				break
			}

			if si.IsMacroOp {
				t.curMacro = si
				t.microPC = si.PC
				t.delayedCommit = true
				continue
			}

			taken, nextPC, quiesce := s.emit(t, si.Inst, si.PC, si, nil)
			t.archPC = nextPC
			numInst++

			if quiesce {
				t.state = QuiescePending
				break
			}
			if taken {
				s.consumeFTIfNeeded(t)
				break
			}
			if t.curFT != nil && !t.curFT.InRange(t.archPC) {
				s.consumeFTIfNeeded(t)
			}
			continue
		}

		micro := t.decoder.FetchROMMicroop(t.microPC, t.curMacro)
		if micro == nil {
			t.curMacro = nil
			t.delayedCommit = false
			continue
		}

		macro := t.curMacro
		taken, microNextPC, quiesce := s.emit(t, micro.Inst, micro.PC, macro, micro)
		numInst++

		if micro.IsLastMicroOp {
			t.curMacro = nil
			t.delayedCommit = false
			if taken {
				t.archPC = microNextPC
			} else {
				t.archPC = macro.PC + uint64(macro.Size)
			}
		} else {
			t.microPC += 4
		}

		if quiesce {
			t.state = QuiescePending
			break
		}
		if taken {
			s.consumeFTIfNeeded(t)
			break
		}
		if micro.IsLastMicroOp && t.curFT != nil && !t.curFT.InRange(t.archPC) {
			s.consumeFTIfNeeded(t)
		}
	}
}

// emit constructs and queues one dynamic instruction and consults the BAC
// for the predicted next PC. It reports whether the prediction is a taken
// branch and whether the instruction is a quiesce; the caller owns
// advancing the architectural PC, since that differs between a standalone
// instruction and a micro-op still inside a macro-op.
func (s *Stage) emit(t *threadState, inst *insts.Instruction, pc uint64, static *decode.StaticInst, micro *decode.MicroOp) (taken bool, nextPC uint64, quiesce bool) {
	class := bac.ClassifyBranch(inst, pc)
	upd := s.bacUnit.Predict(pc, class)

	nextPC = pc + 4
	if class.IsBranch && upd.Taken && upd.TargetKnown {
		nextPC = upd.Target
	}

	dyn := &DynamicInst{
		SeqNum:          s.seq.alloc(),
		ThreadID:        t.id,
		PC:              pc,
		PredictedNextPC: nextPC,
		PredictedTaken:  upd.Taken,
		Static:          static,
		Micro:           micro,
	}
	t.fetchQueue = append(t.fetchQueue, dyn)
	s.stats.InstructionsFetched++
	s.listener.OnFetch(dyn)

	if class.IsBranch {
		s.bacUnit.ResolveBranch(pc, upd.Taken, upd.Target)
	}

	taken = class.IsBranch && upd.Taken
	quiesce = inst.Op == insts.OpQuiesce
	return
}

// consumeFTIfNeeded pops the FTQ head once the architectural PC has left
// the thread's current FT, resteering the BAC if the predictor's queued
// successor disagrees with where control flow actually went.
func (s *Stage) consumeFTIfNeeded(t *threadState) {
	if t.curFT == nil {
		return
	}
	t.curFT = nil
	if !s.bacUnit.UpdateHead(t.id, t.archPC) {
		s.bacUnit.Resteer(t.id, t.archPC, uint64(s.cfg.CacheBlockSize))
		s.stats.Resteers++
	}
}

// allocPacketID returns a fresh cache-packet identifier.
func (s *Stage) allocPacketID() uint64 {
	s.nextPacketID++
	return s.nextPacketID
}

// allocTranslationID returns a fresh translation-request identifier.
func (s *Stage) allocTranslationID() uint64 {
	s.nextTranslationID++
	return s.nextTranslationID
}

// drainToDecode drains up to decodeWidth instructions total across threads
// into the decode output, starting from a uniformly random active thread
// and wrapping round-robin.
func (s *Stage) drainToDecode() {
	n := len(s.threads)
	if n == 0 {
		return
	}
	start := s.rng.Intn(n)

	budget := s.cfg.DecodeWidth
	for i := 0; i < n && budget > 0; i++ {
		t := s.threads[(start+i)%n]
		if t.blockAsserted {
			continue
		}
		for budget > 0 && len(t.fetchQueue) > 0 {
			s.toDecode = append(s.toDecode, t.fetchQueue[0])
			t.fetchQueue = t.fetchQueue[1:]
			budget--
		}
	}
}
