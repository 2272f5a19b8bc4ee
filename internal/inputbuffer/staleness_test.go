package inputbuffer

import (
	"testing"
	"time"
)

func TestStaleFramePolicyReuseWithinWindow(t *testing.T) {
	p := NewStaleFramePolicy(200 * time.Millisecond)
	if !p.ShouldReuse(time.Second, time.Second+100*time.Millisecond) {
		t.Fatalf("expected reuse within staleness window")
	}
	if p.ShouldReuse(time.Second, time.Second+500*time.Millisecond) {
		t.Fatalf("expected fallback outside staleness window")
	}
}

func TestStaleFramePolicyZeroWindowNeverReuses(t *testing.T) {
	p := NewStaleFramePolicy(0)
	if p.ShouldReuse(time.Second, time.Second) {
		t.Fatalf("expected no reuse with zero window")
	}
}
