package queue

import (
	"testing"
	"time"

	"smelter/internal/frame"
	"smelter/internal/ids"
)

func TestRegisterUnregisterRestoresState(t *testing.T) {
	q := New(nil, 8, 8)
	before := len(q.Inputs())
	q.RegisterInput("a", InputOptions{})
	q.UnregisterInput("a")
	after := len(q.Inputs())
	if before != after {
		t.Fatalf("registry not restored: before=%d after=%d", before, after)
	}
}

func TestVideoTickNearestFramePreference(t *testing.T) {
	q := New(nil, 8, 8)
	q.RegisterInput("a", InputOptions{})
	q.PushFrame("a", frame.Frame{Pts: 0})
	q.PushFrame("a", frame.Frame{Pts: 100 * time.Millisecond})
	q.PushFrame("a", frame.Frame{Pts: 200 * time.Millisecond})

	res := q.AssembleVideoTick([]ids.InputId{"a"}, 150*time.Millisecond, VideoTickOptions{})
	if len(res.Entries) != 1 || res.Entries[0].Frame == nil {
		t.Fatalf("expected one entry with a frame, got %+v", res.Entries)
	}
	if res.Entries[0].Frame.Pts != 100*time.Millisecond {
		t.Fatalf("expected latest frame with pts<=t (100ms), got %v", res.Entries[0].Frame.Pts)
	}
}

func TestVideoTickFallsBackToEarliestFutureFrame(t *testing.T) {
	q := New(nil, 8, 8)
	q.RegisterInput("a", InputOptions{})
	q.PushFrame("a", frame.Frame{Pts: 500 * time.Millisecond})

	res := q.AssembleVideoTick([]ids.InputId{"a"}, 100*time.Millisecond, VideoTickOptions{})
	if res.Entries[0].Frame == nil || res.Entries[0].Frame.Pts != 500*time.Millisecond {
		t.Fatalf("expected fallback to earliest future frame, got %+v", res.Entries[0])
	}
}

func TestVideoTickMissingInputContributesNoFrame(t *testing.T) {
	q := New(nil, 8, 8)
	q.RegisterInput("a", InputOptions{})
	res := q.AssembleVideoTick([]ids.InputId{"a"}, time.Second, VideoTickOptions{})
	if res.Entries[0].Frame != nil {
		t.Fatalf("expected no frame for input with nothing buffered")
	}
}

func TestRequiredInputStallsThenDowngrades(t *testing.T) {
	q := New(nil, 8, 8)
	q.RegisterInput("required", InputOptions{Required: true})

	var sleeps int
	opts := VideoTickOptions{
		Epsilon:      10 * time.Millisecond,
		MaxWait:      30 * time.Millisecond,
		PollInterval: 5 * time.Millisecond,
		Sleep:        func(time.Duration) { sleeps++ },
	}
	res := q.AssembleVideoTick([]ids.InputId{"required"}, time.Second, opts)
	if len(res.Downgraded) != 1 || res.Downgraded[0] != "required" {
		t.Fatalf("expected required input to be downgraded, got %+v", res.Downgraded)
	}
	if sleeps == 0 {
		t.Fatalf("expected the stall loop to poll at least once")
	}
}

func TestRequiredInputResolvesWithoutDowngrade(t *testing.T) {
	q := New(nil, 8, 8)
	q.RegisterInput("required", InputOptions{Required: true})

	calls := 0
	opts := VideoTickOptions{
		Epsilon:      10 * time.Millisecond,
		MaxWait:      50 * time.Millisecond,
		PollInterval: 5 * time.Millisecond,
		Sleep: func(time.Duration) {
			calls++
			if calls == 1 {
				q.PushFrame("required", frame.Frame{Pts: time.Second})
			}
		},
	}
	res := q.AssembleVideoTick([]ids.InputId{"required"}, time.Second, opts)
	if len(res.Downgraded) != 0 {
		t.Fatalf("expected no downgrade once the frame arrives, got %+v", res.Downgraded)
	}
	if res.Entries[0].Frame == nil {
		t.Fatalf("expected the newly arrived frame in the tick result")
	}
}

func TestNonRequiredInputNeverStalls(t *testing.T) {
	q := New(nil, 8, 8)
	q.RegisterInput("optional", InputOptions{Required: false})
	opts := VideoTickOptions{Sleep: func(time.Duration) { t.Fatalf("non-required input must not stall the tick") }}
	res := q.AssembleVideoTick([]ids.InputId{"optional"}, time.Second, opts)
	if res.Entries[0].Frame != nil {
		t.Fatalf("expected no frame for an input with nothing buffered")
	}
}

func TestStaleFrameReuseForNonRequiredInput(t *testing.T) {
	q := New(nil, 8, 8)
	q.RegisterInput("a", InputOptions{StaleWindow: 200 * time.Millisecond})
	q.PushFrame("a", frame.Frame{Pts: time.Second})
	// Evict the frame from the ring so only the stale-frame policy can
	// supply it on the next tick.
	q.AssembleVideoTick([]ids.InputId{"a"}, time.Second+100*time.Millisecond, VideoTickOptions{DropThreshold: 50 * time.Millisecond})

	res := q.AssembleVideoTick([]ids.InputId{"a"}, time.Second+150*time.Millisecond, VideoTickOptions{})
	if res.Entries[0].Frame == nil {
		t.Fatalf("expected stale-but-within-window frame to be reused")
	}
}

func TestAudioTickCollectsOverlappingBatches(t *testing.T) {
	q := New(nil, 8, 8)
	q.RegisterInput("a", InputOptions{})
	q.PushAudio("a", frame.InputAudioSamples{StartPts: 0, SampleRate: 48000, Channels: 1, Samples: make([]int16, 48000/50)})
	q.PushAudio("a", frame.InputAudioSamples{StartPts: 20 * time.Millisecond, SampleRate: 48000, Channels: 1, Samples: make([]int16, 48000/50)})

	res := q.AssembleAudioTick([]ids.InputId{"a"}, 0, 20*time.Millisecond)
	if len(res.PerInput["a"]) != 1 {
		t.Fatalf("expected exactly one overlapping batch in [0,20ms), got %d", len(res.PerInput["a"]))
	}
}

func TestAudioTickDropsBatchesBeforeRangeStart(t *testing.T) {
	q := New(nil, 8, 8)
	q.RegisterInput("a", InputOptions{})
	q.PushAudio("a", frame.InputAudioSamples{StartPts: 0, SampleRate: 48000, Channels: 1, Samples: make([]int16, 48000/50)})
	q.AssembleAudioTick([]ids.InputId{"a"}, 40*time.Millisecond, 20*time.Millisecond)

	res := q.AssembleAudioTick([]ids.InputId{"a"}, 0, 20*time.Millisecond)
	if len(res.PerInput["a"]) != 0 {
		t.Fatalf("expected the old batch to have been dropped, got %d", len(res.PerInput["a"]))
	}
}
