package frontend

import (
	"github.com/sarchlab/m2ooo/timing/bac"
	"github.com/sarchlab/m2ooo/timing/decode"
	"github.com/sarchlab/m2ooo/timing/memport"
)

// ControllerState is the per-thread fetch controller's lifecycle state.
type ControllerState int

const (
	Idle ControllerState = iota
	Running
	Squashing
	Blocked
	FTQEmpty
	ItlbWait
	IcacheWaitResponse
	IcacheWaitRetry
	IcacheAccessComplete
	TrapPending
	QuiescePending
	NoGoodAddr
)

func (s ControllerState) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Running:
		return "Running"
	case Squashing:
		return "Squashing"
	case Blocked:
		return "Blocked"
	case FTQEmpty:
		return "FTQEmpty"
	case ItlbWait:
		return "ItlbWait"
	case IcacheWaitResponse:
		return "IcacheWaitResponse"
	case IcacheWaitRetry:
		return "IcacheWaitRetry"
	case IcacheAccessComplete:
		return "IcacheAccessComplete"
	case TrapPending:
		return "TrapPending"
	case QuiescePending:
		return "QuiescePending"
	case NoGoodAddr:
		return "NoGoodAddr"
	default:
		return "Unknown"
	}
}

// retrySlot is the single stage-wide cell holding at most one demand
// packet that was refused by the cache port and is waiting for a retry.
type retrySlot struct {
	pkt      *memport.CachePacket
	threadID int
	held     bool
}

// threadState is everything the fetch controller tracks for one hardware
// thread.
type threadState struct {
	id    int
	state ControllerState

	archPC          uint64
	microPC         uint64
	predictedNextVA uint64
	predictedTaken  bool

	curMacro   *decode.StaticInst
	microIndex int

	delayedCommit bool

	buf     *FetchBuffer
	decoder *decode.Decoder

	curFT *bac.FT

	memReq         *memport.CachePacket
	translationReq *memport.TranslationRequest

	tracker *OutstandingTracker

	fetchQueue []*DynamicInst

	// Upstream signals ingested this cycle.
	blockAsserted       bool
	squashPending       bool
	squashNextPC        uint64
	squashInst          *DynamicInst
	drainStall          bool
	interruptPending    bool
	interruptClearedNow bool

	fault *memport.Fault

	// SMT arbiter inputs, supplied by the caller via SetQueueOccupancy.
	iqCount  int
	lsqCount int

	// Statistics.
	icacheSquashes     uint64
	tlbSquashes        uint64
	pfReceived         uint64
	squashedPrefetches uint64
}

func newThreadState(id int, cfg threadConfig) *threadState {
	return &threadState{
		id:      id,
		state:   Idle,
		buf:     NewFetchBuffer(cfg.fetchBufferSize),
		decoder: decode.NewDecoder(),
		tracker: NewOutstandingTracker(cfg.maxPrefetches, cfg.maxTranslations),
	}
}

type threadConfig struct {
	fetchBufferSize int
	maxPrefetches   int
	maxTranslations int
}

// eligibleForArbiter reports whether the SMT arbiter may pick this thread
// this cycle.
func (t *threadState) eligibleForArbiter() bool {
	return t.state == Running || t.state == IcacheAccessComplete || t.state == Idle
}

// isDrained reports whether this thread's contribution to the stage-level
// drained condition holds: empty fetch queue, and Idle or Blocked with a
// drain stall asserted.
func (t *threadState) isDrained() bool {
	if len(t.fetchQueue) != 0 {
		return false
	}
	if t.state == Idle {
		return true
	}
	return t.state == Blocked && t.drainStall
}
