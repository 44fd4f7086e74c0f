// Package memport defines the small capability traits the fetch stage uses
// to talk to the MMU and the instruction-cache port, replacing the
// overloaded port-type inheritance hierarchies typical of component-based
// simulators with plain interfaces held by composition: the fetch stage
// owns a CachePort and a Translator field, nothing more.
package memport

import "fmt"

// AccessMode describes the purpose of a translation request. The fetch
// stage only ever translates for instruction fetch, but the MMU contract
// carries the mode explicitly so the same Translator can serve other
// requestors in a fuller system.
type AccessMode int

// ModeExecute is the only mode the fetch stage issues.
const ModeExecute AccessMode = 0

// FaultKind enumerates the translation faults the fetch stage must
// recognize and surface through the trap pathway.
type FaultKind int

const (
	// FaultNone indicates a successful translation.
	FaultNone FaultKind = iota
	// FaultPageNotPresent indicates no mapping exists for the requested page.
	FaultPageNotPresent
	// FaultNoExecute indicates the page is mapped but not executable.
	FaultNoExecute
)

// Fault is the error type carried by a translation result and, eventually,
// by the no-op dynamic instruction synthesized for the trap pathway.
type Fault struct {
	Kind FaultKind
	VA   uint64
}

func (f *Fault) Error() string {
	switch f.Kind {
	case FaultNoExecute:
		return fmt.Sprintf("no-execute fault at 0x%x", f.VA)
	default:
		return fmt.Sprintf("page fault at 0x%x", f.VA)
	}
}

// TranslationRequest identifies one in-flight translation. Identity
// (pointer equality) is how stale completions are recognized: a squash
// does not recall the request from the MMU, it only invalidates the FT
// that held it, so the completion callback must check whether the request
// it is handed still matches anything live.
type TranslationRequest struct {
	ID       uint64
	ThreadID int
	VAddr    uint64
	Mode     AccessMode
}

// TranslationResult is delivered to a TranslationCompletion when a
// TranslationRequest finishes.
type TranslationResult struct {
	Req   *TranslationRequest
	PAddr uint64
	Fault *Fault
}

// TranslationCompletion is the handle callbacks carry instead of an owning
// back-reference to the fetch controller, breaking the MMU/controller
// cyclic reference: the MMU only ever calls CompleteTranslation, it never
// reaches into controller state directly.
type TranslationCompletion interface {
	CompleteTranslation(result TranslationResult)
}

// Translator is the MMU collaborator contract.
type Translator interface {
	// TranslateTiming starts an asynchronous translation. The result is
	// delivered later via completion.CompleteTranslation, scheduled on
	// whatever Clock the Translator was built with; TranslateTiming never
	// calls back synchronously.
	TranslateTiming(req *TranslationRequest, completion TranslationCompletion, mode AccessMode)
}

// CachePacket is a single instruction-fetch request or response. The same
// struct type is reused for demand and prefetch packets; IsPrefetch marks
// which.
type CachePacket struct {
	ID         uint64
	ThreadID   int
	PAddr      uint64
	Size       int
	IsPrefetch bool
	Data       []byte
}

// CachePort is the send half of the I-cache port trait.
type CachePort interface {
	// SendTimingReq attempts a non-blocking send. A false return means the
	// port is busy; the caller must hold the packet and retry only after
	// RecvReqRetry fires.
	SendTimingReq(pkt *CachePacket) bool
}

// CacheRespHandler is the receive half of the I-cache port trait: the
// cache calls this when a previously accepted request completes.
type CacheRespHandler interface {
	RecvTimingResp(pkt *CachePacket)
}

// CacheRetryHandler is notified when a port that previously refused a
// send becomes available again.
type CacheRetryHandler interface {
	RecvReqRetry()
}
