package frontend

// OutstandingTracker bounds the number of in-flight translations and
// prefetches a single thread may have at once, and remembers which
// physical addresses already have a cache request in flight so the
// decoupled front end never issues a second request for a line it is
// already waiting on.
type OutstandingTracker struct {
	inFlight map[uint64]bool

	prefetches   int
	translations int

	maxPrefetches   int
	maxTranslations int
}

// NewOutstandingTracker creates a tracker bounded by the given limits.
func NewOutstandingTracker(maxPrefetches, maxTranslations int) *OutstandingTracker {
	return &OutstandingTracker{
		inFlight:        make(map[uint64]bool),
		maxPrefetches:   maxPrefetches,
		maxTranslations: maxTranslations,
	}
}

// CanTranslate reports whether another translation may be issued without
// exceeding the configured bound.
func (t *OutstandingTracker) CanTranslate() bool {
	return t.translations < t.maxTranslations
}

// CanPrefetch reports whether another prefetch may be issued without
// exceeding the configured bound.
func (t *OutstandingTracker) CanPrefetch() bool {
	return t.prefetches < t.maxPrefetches
}

// BeginTranslation records a newly issued translation request.
func (t *OutstandingTracker) BeginTranslation() {
	t.translations++
}

// EndTranslation records a translation's completion or fault, whichever
// comes first.
func (t *OutstandingTracker) EndTranslation() {
	if t.translations > 0 {
		t.translations--
	}
}

// BeginPrefetch records a prefetch request against paddr.
func (t *OutstandingTracker) BeginPrefetch(paddr uint64) {
	t.prefetches++
	t.inFlight[paddr] = true
}

// BeginDemand records a demand request against paddr without touching the
// prefetch counter, so a demand access that hits an address already
// in flight from an earlier prefetch is recognized as the same request.
func (t *OutstandingTracker) BeginDemand(paddr uint64) {
	t.inFlight[paddr] = true
}

// AdoptPrefetch decrements the prefetch counter without clearing the
// in-flight bit, used when a demand fetch adopts an in-flight prefetch:
// the address stays in flight, only now as a demand rather than a
// prefetch.
func (t *OutstandingTracker) AdoptPrefetch() {
	if t.prefetches > 0 {
		t.prefetches--
	}
}

// Complete clears paddr's in-flight bit. Callers decide separately whether
// it was a prefetch or demand completion.
func (t *OutstandingTracker) Complete(paddr uint64) {
	delete(t.inFlight, paddr)
}

// CompletePrefetch clears paddr and decrements the prefetch counter.
func (t *OutstandingTracker) CompletePrefetch(paddr uint64) {
	t.Complete(paddr)
	if t.prefetches > 0 {
		t.prefetches--
	}
}

// InFlight reports whether paddr already has a request outstanding.
func (t *OutstandingTracker) InFlight(paddr uint64) bool {
	return t.inFlight[paddr]
}

// DropPrefetches clears all in-flight bookkeeping and returns the number of
// prefetches that were outstanding, for squash accounting. Outstanding
// translations are left alone: the thread still owes a completion or
// fault for every one it issued, even across a squash.
func (t *OutstandingTracker) DropPrefetches() int {
	dropped := t.prefetches
	t.prefetches = 0
	t.inFlight = make(map[uint64]bool)
	return dropped
}

// Reset clears all bookkeeping, including outstanding translations.
func (t *OutstandingTracker) Reset() {
	t.inFlight = make(map[uint64]bool)
	t.prefetches = 0
	t.translations = 0
}
