package clock

import (
	"testing"
	"time"
)

func TestClockStartIdempotent(t *testing.T) {
	c := New()
	first := c.Start()
	time.Sleep(time.Millisecond)
	second := c.Start()
	if !first.Equal(second) {
		t.Fatalf("expected second Start to be a no-op, got %v vs %v", first, second)
	}
}

func TestPipelineTimeClampsBeforeStart(t *testing.T) {
	c := New()
	start := c.Start()
	before := start.Add(-time.Second)
	if got := c.PipelineTime(before); got != 0 {
		t.Fatalf("expected 0 for instant before sync point, got %v", got)
	}
}

func TestFirstPacketOffsetNow(t *testing.T) {
	off := FirstPacketOffset(nil, 5*time.Second, 2*time.Second)
	if off != 3*time.Second {
		t.Fatalf("expected 3s offset, got %v", off)
	}
}

func TestFirstPacketOffsetClampedToZero(t *testing.T) {
	off := FirstPacketOffset(nil, time.Second, 5*time.Second)
	if off != 0 {
		t.Fatalf("expected clamp to 0, got %v", off)
	}
}

func TestFirstPacketOffsetExplicit(t *testing.T) {
	explicit := 10 * time.Second
	off := FirstPacketOffset(&explicit, 2*time.Second, 1*time.Second)
	// first frame's pipeline_pts (its media pts + offset) should land exactly at the explicit offset.
	if off+time.Second != 10*time.Second {
		t.Fatalf("expected first frame to land at 10s, got offset %v", off)
	}
}
