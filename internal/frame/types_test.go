package frame

import (
	"testing"
	"time"
)

func TestInputAudioSamplesEndPts(t *testing.T) {
	s := InputAudioSamples{
		StartPts:   time.Second,
		SampleRate: 48000,
		Channels:   2,
		Samples:    make([]int16, 48000*2/50), // 20ms stereo batch
	}
	want := time.Second + 20*time.Millisecond
	if got := s.EndPts(); got != want {
		t.Fatalf("EndPts = %v, want %v", got, want)
	}
}

func TestInputAudioSamplesOverlaps(t *testing.T) {
	s := InputAudioSamples{StartPts: 100 * time.Millisecond, SampleRate: 48000, Channels: 1, Samples: make([]int16, 48000/50)}
	if !s.Overlaps(90*time.Millisecond, 110*time.Millisecond) {
		t.Fatalf("expected overlap")
	}
	if s.Overlaps(200*time.Millisecond, 210*time.Millisecond) {
		t.Fatalf("expected no overlap")
	}
}

func TestEOSGuard(t *testing.T) {
	var g EOSGuard
	if err := g.Observe(false); err != nil {
		t.Fatalf("unexpected error on data event: %v", err)
	}
	if err := g.Observe(true); err != nil {
		t.Fatalf("unexpected error on first EOS: %v", err)
	}
	if err := g.Observe(true); err != ErrDoubleEOS {
		t.Fatalf("expected ErrDoubleEOS, got %v", err)
	}
}

func TestEOSGuardRejectsDataAfterEOS(t *testing.T) {
	var g EOSGuard
	_ = g.Observe(true)
	if err := g.Observe(false); err != ErrDataAfterEOS {
		t.Fatalf("expected ErrDataAfterEOS, got %v", err)
	}
}

func TestPipelineEventValue(t *testing.T) {
	d := Data(42)
	v, ok := d.Value()
	if !ok || v != 42 {
		t.Fatalf("unexpected data event: %v %v", v, ok)
	}
	e := EOS[int]()
	if !e.IsEOS() {
		t.Fatalf("expected EOS")
	}
	if _, ok := e.Value(); ok {
		t.Fatalf("expected ok=false for EOS value")
	}
}
