package frontend

import (
	"math/rand"

	"github.com/sarchlab/m2ooo/timing/fecfg"
)

// ArbiterCandidate is the per-thread information the arbiter needs to pick
// which threads fetch this cycle, without the arbiter needing to know
// anything about threadState itself.
type ArbiterCandidate struct {
	ThreadID    int
	Eligible    bool
	IQCount     int
	LSQCount    int
	Mispredicts int
}

// Arbiter selects up to numFetchingThreads eligible threads to fetch each
// cycle, per the configured SMT policy.
type Arbiter struct {
	policy            fecfg.FetchPolicy
	numFetchingThreads int
	rr                int // round-robin cursor for the RoundRobin policy
	rng               *rand.Rand
}

// NewArbiter creates an arbiter for the given policy and number of fetching
// threads.
func NewArbiter(policy fecfg.FetchPolicy, numFetchingThreads int, rng *rand.Rand) *Arbiter {
	return &Arbiter{policy: policy, numFetchingThreads: numFetchingThreads, rng: rng}
}

// Select returns the thread ids chosen to fetch this cycle, in the order
// they should be serviced.
func (a *Arbiter) Select(candidates []ArbiterCandidate) []int {
	eligible := make([]ArbiterCandidate, 0, len(candidates))
	for _, c := range candidates {
		if c.Eligible {
			eligible = append(eligible, c)
		}
	}
	if len(eligible) == 0 {
		return nil
	}

	switch a.policy {
	case fecfg.PolicyIQCount:
		sortByCountAsc(eligible, func(c ArbiterCandidate) int { return c.IQCount })
	case fecfg.PolicyLSQCount:
		sortByCountAsc(eligible, func(c ArbiterCandidate) int { return c.LSQCount })
	case fecfg.PolicyBranch:
		panic("fecfg: Branch fetch policy is not implemented")
	case fecfg.PolicyRoundRobin:
		// handled below by rotating the eligible slice itself
	default:
		panic("fecfg: unknown fetch policy " + string(a.policy))
	}

	if a.policy == fecfg.PolicyRoundRobin {
		eligible = rotate(eligible, a.rr)
	}

	n := a.numFetchingThreads
	if n > len(eligible) {
		n = len(eligible)
	}
	selected := make([]int, n)
	for i := 0; i < n; i++ {
		selected[i] = eligible[i].ThreadID
	}

	a.rr = (a.rr + 1) % totalOrOne(len(candidates))
	return selected
}

func totalOrOne(n int) int {
	if n == 0 {
		return 1
	}
	return n
}

// sortByCountAsc stable-sorts by the given key, ties broken by thread id,
// matching the "lowest count wins, ties go to the lower thread id" rule.
func sortByCountAsc(cs []ArbiterCandidate, key func(ArbiterCandidate) int) {
	for i := 1; i < len(cs); i++ {
		for j := i; j > 0; j-- {
			a, b := cs[j-1], cs[j]
			if key(a) < key(b) || (key(a) == key(b) && a.ThreadID <= b.ThreadID) {
				break
			}
			cs[j-1], cs[j] = cs[j], cs[j-1]
		}
	}
}

func rotate(cs []ArbiterCandidate, by int) []ArbiterCandidate {
	if len(cs) == 0 {
		return cs
	}
	by %= len(cs)
	out := make([]ArbiterCandidate, len(cs))
	for i := range cs {
		out[i] = cs[(i+by)%len(cs)]
	}
	return out
}
