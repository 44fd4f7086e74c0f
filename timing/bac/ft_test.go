package bac

import (
	"testing"

	"github.com/sarchlab/m2ooo/timing/memport"
)

// A demand fetch adopting an in-flight prefetch (or translation) must leave
// the FT in ReadyToFetch, not stuck reporting PrefetchInProgress/
// TranslationInProgress, or a later response for the same FT would be
// mistaken for a fresh completion and double-process it.
func TestPopReqLeavesFTReadyToFetch(t *testing.T) {
	ft := NewFT(0x1000, 0x1010, 0x1000, true)
	ft.StartTranslation(&memport.TranslationRequest{ID: 1}, 0)
	ft.FinishTranslation(memport.TranslationResult{Req: ft.req, PAddr: 0x80001000}, 1)

	pkt := &memport.CachePacket{ID: 1, PAddr: 0x80001000}
	ft.PrefetchIssued(pkt)
	if ft.State() != PrefetchInProgress {
		t.Fatalf("expected PrefetchInProgress, got %v", ft.State())
	}

	h := ft.PopReq()
	ft.MarkReady()

	if h.Cache != pkt {
		t.Fatalf("expected PopReq to hand back the adopted cache packet")
	}
	if ft.State() != ReadyToFetch {
		t.Fatalf("expected ReadyToFetch after adoption, got %v", ft.State())
	}
}

func TestPopReqOnTranslationInProgressLeavesFTReadyToFetch(t *testing.T) {
	ft := NewFT(0x2000, 0x2010, 0x2000, true)
	req := &memport.TranslationRequest{ID: 7}
	ft.StartTranslation(req, 0)
	if ft.State() != TranslationInProgress {
		t.Fatalf("expected TranslationInProgress, got %v", ft.State())
	}

	h := ft.PopReq()
	ft.MarkReady()

	if h.Translation != req {
		t.Fatalf("expected PopReq to hand back the adopted translation request")
	}
	if ft.State() != ReadyToFetch {
		t.Fatalf("expected ReadyToFetch after adoption, got %v", ft.State())
	}
}
