package cache_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/m2ooo/emu"
	"github.com/sarchlab/m2ooo/timing/cache"
	"github.com/sarchlab/m2ooo/timing/memport"
	"github.com/sarchlab/m2ooo/timing/sched"
)

// recordingHandler collects every response and retry a Port delivers, for
// assertion in the Port tests below.
type recordingHandler struct {
	resps   []*memport.CachePacket
	retries int
}

func (h *recordingHandler) RecvTimingResp(pkt *memport.CachePacket) {
	h.resps = append(h.resps, pkt)
}

func (h *recordingHandler) RecvReqRetry() {
	h.retries++
}

var _ = Describe("ReadBlock", func() {
	var (
		c       *cache.Cache
		memory  *emu.Memory
		backing *cache.MemoryBacking
	)

	BeforeEach(func() {
		memory = emu.NewMemory()
		backing = cache.NewMemoryBacking(memory)
		c = cache.New(cache.Config{
			Size:          4 * 1024,
			Associativity: 4,
			BlockSize:     64,
			HitLatency:    1,
			MissLatency:   10,
		}, backing)
	})

	It("reads wider-than-8-byte spans in one call", func() {
		memory.WriteBlock(0x1000, []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16})

		data, result := c.ReadBlock(0x1000, 16)
		Expect(result.Hit).To(BeFalse())
		Expect(result.Latency).To(Equal(uint64(10)))
		Expect(data).To(Equal([]byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16}))
	})

	It("hits on a second read of the same block", func() {
		memory.WriteBlock(0x2000, make([]byte, 16))
		c.ReadBlock(0x2000, 16)

		_, result := c.ReadBlock(0x2000, 16)
		Expect(result.Hit).To(BeTrue())
		Expect(result.Latency).To(Equal(uint64(1)))
	})

	It("reads from an offset within the block", func() {
		data := make([]byte, 64)
		for i := range data {
			data[i] = byte(i)
		}
		memory.WriteBlock(0x3000, data)

		got, _ := c.ReadBlock(0x3010, 16)
		Expect(got).To(Equal(data[0x10:0x20]))
	})
})

var _ = Describe("Port", func() {
	var (
		c       *cache.Cache
		memory  *emu.Memory
		clock   *sched.Clock
		handler *recordingHandler
		port    *cache.Port
	)

	BeforeEach(func() {
		memory = emu.NewMemory()
		backing := cache.NewMemoryBacking(memory)
		c = cache.New(cache.Config{
			Size:          4 * 1024,
			Associativity: 4,
			BlockSize:     64,
			HitLatency:    1,
			MissLatency:   10,
		}, backing)
		clock = sched.NewClock()
		handler = &recordingHandler{}
		port = cache.NewPort(c, clock, handler)
	})

	It("delivers a response after the miss latency elapses", func() {
		memory.WriteBlock(0x1000, make([]byte, 16))
		pkt := &memport.CachePacket{ID: 1, PAddr: 0x1000, Size: 16}

		Expect(port.SendTimingReq(pkt)).To(BeTrue())
		for i := 0; i < 9; i++ {
			clock.Tick()
			Expect(handler.resps).To(BeEmpty())
		}
		clock.Tick()
		Expect(handler.resps).To(ConsistOf(pkt))
	})

	It("refuses once maxPortInFlight requests are outstanding", func() {
		for i := 0; i < 4; i++ {
			pkt := &memport.CachePacket{ID: uint64(i), PAddr: uint64(i) * 64, Size: 16}
			Expect(port.SendTimingReq(pkt)).To(BeTrue())
		}
		overflow := &memport.CachePacket{ID: 99, PAddr: 0x9000, Size: 16}
		Expect(port.SendTimingReq(overflow)).To(BeFalse())
	})

	It("notifies the retry handler once a slot frees up", func() {
		for i := 0; i < 4; i++ {
			pkt := &memport.CachePacket{ID: uint64(i), PAddr: uint64(i) * 64, Size: 16}
			Expect(port.SendTimingReq(pkt)).To(BeTrue())
		}
		for i := 0; i < 11; i++ {
			clock.Tick()
		}
		Expect(handler.retries).To(Equal(1))
	})

	It("can be rewired onto a different handler via SetHandler", func() {
		other := &recordingHandler{}
		port.SetHandler(other)

		pkt := &memport.CachePacket{ID: 1, PAddr: 0x1000, Size: 16}
		Expect(port.SendTimingReq(pkt)).To(BeTrue())
		for i := 0; i < 10; i++ {
			clock.Tick()
		}
		Expect(other.resps).To(ConsistOf(pkt))
		Expect(handler.resps).To(BeEmpty())
	})
})
