package bac

// UpdateResult is what update_pc reports back to the fetch controller: the
// resolved direction and target to steer the instruction-issue loop and to
// feed back into the predictor.
type UpdateResult struct {
	Taken       bool
	Target      uint64
	TargetKnown bool
}

// BAC is the branch/address-calculation-unit-plus-predictor collaborator:
// it owns one FTQ per thread and the shared direction/target predictor,
// and answers the fetch controller's §6 contract (read_head, is_head_ready,
// find_after_head, update_head, invalidate, update_pc).
//
// Building FTs in the first place — deciding how far ahead to predict and
// populating the FTQ from nothing — is the job of a full branch unit this
// front-end-only rewrite does not attempt; Resteer stands in for it after a
// misprediction or squash by seeding exactly the one FT fetch needs to keep
// moving forward.
type BAC struct {
	predictor *Predictor
	ftqs      []*FTQ
}

// NewBAC creates a BAC with one empty FTQ per thread.
func NewBAC(numThreads int, cfg PredictorConfig) *BAC {
	b := &BAC{predictor: NewPredictor(cfg), ftqs: make([]*FTQ, numThreads)}
	for i := range b.ftqs {
		b.ftqs[i] = NewFTQ()
	}
	return b
}

// FTQ exposes thread tid's queue directly, for the prefetch engine and the
// fetch-target-selection logic that needs to walk or push entries.
func (b *BAC) FTQ(tid int) *FTQ {
	return b.ftqs[tid]
}

// ReadHead returns the head FT of thread tid's FTQ.
func (b *BAC) ReadHead(tid int) *FT {
	return b.ftqs[tid].PeekHead()
}

// ReadNextHead returns the second FT of thread tid's FTQ.
func (b *BAC) ReadNextHead(tid int) *FT {
	return b.ftqs[tid].PeekSecond()
}

// IsHeadReady reports whether the head FT is ReadyToFetch.
func (b *BAC) IsHeadReady(tid int) bool {
	head := b.ftqs[tid].PeekHead()
	return head != nil && head.state == ReadyToFetch
}

// IsEmpty reports whether thread tid's FTQ holds no entries.
func (b *BAC) IsEmpty(tid int) bool {
	return b.ftqs[tid].IsEmpty()
}

// IsValid reports whether thread tid's FTQ currently holds live entries.
// In this simplified BAC, validity and non-emptiness coincide: a squash
// invalidates by clearing the queue outright rather than marking entries
// dead in place.
func (b *BAC) IsValid(tid int) bool {
	return !b.ftqs[tid].IsEmpty()
}

// Size returns the number of FTs queued for thread tid.
func (b *BAC) Size(tid int) int {
	return b.ftqs[tid].Size()
}

// FindAfterHead returns the first FT strictly after the head matching
// pred, or nil.
func (b *BAC) FindAfterHead(tid int, pred func(*FT) bool) *FT {
	return b.ftqs[tid].IterAfterHead(pred)
}

// Invalidate drops every FT queued for thread tid, used on squash.
func (b *BAC) Invalidate(tid int) {
	b.ftqs[tid].InvalidateAll()
}

// UpdateHead pops the now-fully-consumed head FT and reports whether the
// FTQ's new head agrees with where control flow actually continued
// (actualNextVA). A disagreement tells the controller to resteer.
func (b *BAC) UpdateHead(tid int, actualNextVA uint64) (agree bool) {
	q := b.ftqs[tid]
	head := q.PopHead()
	if head == nil {
		return true
	}
	head.MarkConsumed()

	next := q.PeekHead()
	if next == nil {
		return true
	}
	return next.StartVA == actualNextVA
}

// Resteer discards the remainder of thread tid's FTQ and seeds a single
// fresh, already-fall-through FT starting at newVA.
func (b *BAC) Resteer(tid int, newVA uint64, cacheBlockSize uint64) {
	q := b.ftqs[tid]
	q.InvalidateAll()
	blockVA := newVA &^ (cacheBlockSize - 1)
	q.Push(NewFT(newVA, blockVA+cacheBlockSize, blockVA, true))
}

// Predict computes the branch-prediction feedback for a decoded
// instruction at pc: unconditional branches are resolved immediately from
// their encoding (early branch resolution); conditional branches consult
// the predictor. Register-indirect branches are classified unconditional
// with no static target, so they are predicted taken with an unknown
// target; the predictor and its BTB are not consulted for them.
func (b *BAC) Predict(pc uint64, class Classification) UpdateResult {
	if !class.IsBranch {
		return UpdateResult{}
	}
	if class.Unconditional {
		return UpdateResult{Taken: true, Target: class.StaticTarget, TargetKnown: class.HasTarget}
	}

	pred := b.predictor.Predict(pc)
	target := pred.Target
	known := pred.TargetKnown
	if !known && class.HasTarget {
		target = class.StaticTarget
		known = true
	}
	return UpdateResult{Taken: pred.Taken, Target: target, TargetKnown: known}
}

// ResolveBranch folds the (assumed-correct, since this front-end-only
// rewrite never functionally executes a branch to refute it) predicted
// outcome back into the predictor's history tables.
func (b *BAC) ResolveBranch(pc uint64, taken bool, target uint64) {
	b.predictor.Update(pc, taken, target)
}

// Stats returns the predictor's statistics.
func (b *BAC) Stats() PredictorStats {
	return b.predictor.Stats()
}
