package transport

import (
	"testing"

	"github.com/pion/rtcp"
)

type fakeRequester struct{ calls int }

func (f *fakeRequester) RequestKeyframe() { f.calls++ }

func TestHandleRTCPTriggersOnMatchingPLI(t *testing.T) {
	req := &fakeRequester{}
	pkts := []rtcp.Packet{&rtcp.PictureLossIndication{MediaSSRC: 42}}
	HandleRTCP(pkts, 42, req)
	if req.calls != 1 {
		t.Fatalf("expected one keyframe request, got %d", req.calls)
	}
}

func TestHandleRTCPIgnoresOtherSSRC(t *testing.T) {
	req := &fakeRequester{}
	pkts := []rtcp.Packet{&rtcp.PictureLossIndication{MediaSSRC: 1}}
	HandleRTCP(pkts, 42, req)
	if req.calls != 0 {
		t.Fatalf("expected no keyframe request for a non-matching SSRC, got %d", req.calls)
	}
}

func TestHandleRTCPIgnoresUnrelatedPacketTypes(t *testing.T) {
	req := &fakeRequester{}
	pkts := []rtcp.Packet{&rtcp.ReceiverReport{SSRC: 42}}
	HandleRTCP(pkts, 42, req)
	if req.calls != 0 {
		t.Fatalf("expected receiver reports to be ignored, got %d calls", req.calls)
	}
}
