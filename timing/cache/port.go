package cache

import (
	"github.com/sarchlab/m2ooo/timing/memport"
	"github.com/sarchlab/m2ooo/timing/sched"
)

// maxPortInFlight bounds how many requests the port will accept before
// refusing new sends and waiting for a retry, mirroring the teacher's
// pending/retry bookkeeping in its cache pipeline stages.
const maxPortInFlight = 4

// Port adapts Cache into the fetch stage's asynchronous memport.CachePort
// contract: SendTimingReq is non-blocking and the result of a previously
// accepted request is delivered later, scheduled on a Clock by the cache's
// own hit/miss latency.
type Port struct {
	cache  *Cache
	clock  *sched.Clock
	inFlight int

	resp  memport.CacheRespHandler
	retry memport.CacheRetryHandler
}

// PortHandler is the pair of callbacks a Port delivers responses and
// retries to.
type PortHandler interface {
	memport.CacheRespHandler
	memport.CacheRetryHandler
}

// NewPort creates a Port in front of cache. handler may be nil if the
// fetch stage that will own this port does not exist yet; wire it in
// with SetHandler once it does, before the first Tick.
func NewPort(cache *Cache, clock *sched.Clock, handler PortHandler) *Port {
	return &Port{cache: cache, clock: clock, resp: handler, retry: handler}
}

// SetHandler rewires the port's response and retry destination, used to
// break the construction-order cycle between a Port and the fetch stage
// that owns it.
func (p *Port) SetHandler(handler PortHandler) {
	p.resp = handler
	p.retry = handler
}

// SendTimingReq attempts to accept pkt. It refuses once maxPortInFlight
// requests are already outstanding, exactly as a finite-depth cache MSHR
// set would.
func (p *Port) SendTimingReq(pkt *memport.CachePacket) bool {
	if p.inFlight >= maxPortInFlight {
		return false
	}
	p.inFlight++

	data, result := p.cache.ReadBlock(pkt.PAddr, pkt.Size)
	pkt.Data = data

	p.clock.Schedule(result.Latency, func() {
		p.inFlight--
		p.resp.RecvTimingResp(pkt)
		if p.inFlight == maxPortInFlight-1 {
			p.retry.RecvReqRetry()
		}
	})
	return true
}
