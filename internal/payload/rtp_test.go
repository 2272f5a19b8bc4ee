package payload

import (
	"testing"
	"time"

	"smelter/internal/frame"
)

func TestRTPPayloadTimestampIsPtsTimesClockRate(t *testing.T) {
	p := NewRTPPayloader(RTPTrackConfig{PayloadType: 111, ClockRate: 48000, SSRC: 1})
	pkts, err := p.Payload(frame.EncodedOutputChunk{Payload: []byte{1, 2, 3}, Pts: 20 * time.Millisecond})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pkts) != 1 {
		t.Fatalf("expected one packet for a small payload, got %d", len(pkts))
	}
	if pkts[0].Timestamp != 960 {
		t.Fatalf("expected rtp timestamp 20ms*48000=960, got %d", pkts[0].Timestamp)
	}
	if pkts[0].PayloadType != 111 || pkts[0].SSRC != 1 {
		t.Fatalf("unexpected header fields: %+v", pkts[0].Header)
	}
}

func TestRTPPayloadFragmentsAboveMTU(t *testing.T) {
	p := NewRTPPayloader(RTPTrackConfig{PayloadType: 102, ClockRate: 90000, SSRC: 1, MTU: 10})
	pkts, err := p.Payload(frame.EncodedOutputChunk{Payload: make([]byte, 25), Pts: 0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pkts) != 3 {
		t.Fatalf("expected 3 fragments for 25 bytes at MTU 10, got %d", len(pkts))
	}
	if !pkts[2].Marker || pkts[0].Marker || pkts[1].Marker {
		t.Fatalf("expected only the last fragment to carry the marker bit")
	}
}

func TestRTPSequenceNumbersIncrement(t *testing.T) {
	p := NewRTPPayloader(RTPTrackConfig{PayloadType: 102, ClockRate: 90000, SSRC: 1})
	first, _ := p.Payload(frame.EncodedOutputChunk{Payload: []byte{1}, Pts: 0})
	second, _ := p.Payload(frame.EncodedOutputChunk{Payload: []byte{1}, Pts: time.Millisecond})
	if second[0].SequenceNumber != first[0].SequenceNumber+1 {
		t.Fatalf("expected sequence numbers to increment across chunks")
	}
}

func TestRTPPayloadRejectsPtsGoingBackwards(t *testing.T) {
	p := NewRTPPayloader(RTPTrackConfig{PayloadType: 102, ClockRate: 90000, SSRC: 1})
	if _, err := p.Payload(frame.EncodedOutputChunk{Payload: []byte{1}, Pts: time.Second}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := p.Payload(frame.EncodedOutputChunk{Payload: []byte{1}, Pts: 0}); err == nil {
		t.Fatalf("expected an error when pts decreases")
	}
}

func TestHLSSegmenterStartsOnFirstChunk(t *testing.T) {
	s := NewHLSSegmenter(6 * time.Second)
	if !s.ShouldStartSegment(frame.EncodedOutputChunk{Pts: 0}) {
		t.Fatalf("expected the very first chunk to start a segment")
	}
}

func TestHLSSegmenterWaitsForKeyframeAtOrPastTargetLength(t *testing.T) {
	s := NewHLSSegmenter(6 * time.Second)
	s.ShouldStartSegment(frame.EncodedOutputChunk{Pts: 0})

	if s.ShouldStartSegment(frame.EncodedOutputChunk{Pts: 6500 * time.Millisecond, IsKeyframe: false}) {
		t.Fatalf("expected no new segment on a non-keyframe even past target length")
	}
	if !s.ShouldStartSegment(frame.EncodedOutputChunk{Pts: 7 * time.Second, IsKeyframe: true}) {
		t.Fatalf("expected a new segment on the next keyframe at or past target length")
	}
}

func TestHLSSegmenterDoesNotSplitBeforeTargetLength(t *testing.T) {
	s := NewHLSSegmenter(6 * time.Second)
	s.ShouldStartSegment(frame.EncodedOutputChunk{Pts: 0})
	if s.ShouldStartSegment(frame.EncodedOutputChunk{Pts: 2 * time.Second, IsKeyframe: true}) {
		t.Fatalf("expected no new segment before the target length even on a keyframe")
	}
}
