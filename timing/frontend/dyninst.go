package frontend

import (
	"github.com/sarchlab/m2ooo/timing/decode"
	"github.com/sarchlab/m2ooo/timing/memport"
)

// DynamicInst is produced by the fetch controller and owns a sequence
// number allocated from a monotonically increasing per-CPU counter. It is
// handed off to the thread's fetch queue and, once drained, to decode.
type DynamicInst struct {
	SeqNum   uint64
	ThreadID int

	PC              uint64
	PredictedNextPC uint64
	PredictedTaken  bool

	Static *decode.StaticInst
	Micro  *decode.MicroOp

	Fault *memport.Fault
}

// IsFault reports whether this dynamic instruction is the no-op carrier
// synthesized by the trap pathway.
func (d *DynamicInst) IsFault() bool {
	return d.Fault != nil
}

// seqAllocator is the single monotonically increasing, per-CPU sequence
// number source shared by every thread, so sequence numbers are globally
// monotonic even though fetch progresses independently per thread.
type seqAllocator struct {
	next uint64
}

func (a *seqAllocator) alloc() uint64 {
	a.next++
	return a.next
}
