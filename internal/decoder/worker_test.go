package decoder

import (
	"context"
	"errors"
	"testing"
	"time"

	"smelter/internal/frame"
	"smelter/internal/stats"
)

func TestVideoWorkerEmitsFramesThenEOS(t *testing.T) {
	variant, err := NewH264Variant(func(c frame.EncodedInputChunk) ([]frame.Frame, error) {
		return []frame.Frame{{Pts: c.Pts}}, nil
	})
	if err != nil {
		t.Fatalf("unexpected init error: %v", err)
	}

	w := NewVideoWorker("in-1", variant, nil, &stats.Counters{}, stats.NewBus(nil), nil, 4, 4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	w.In() <- frame.Data(frame.EncodedInputChunk{Pts: time.Second})
	ev := <-w.Out()
	got, ok := ev.Value()
	if !ok || got.Pts != time.Second {
		t.Fatalf("unexpected frame event: %+v %v", got, ok)
	}

	w.In() <- frame.EOS[frame.EncodedInputChunk]()
	eos := <-w.Out()
	if !eos.IsEOS() {
		t.Fatalf("expected EOS event")
	}

	// Channel must close after EOS, with no further data events (§3, §8 property 3).
	if _, stillOpen := <-w.Out(); stillOpen {
		t.Fatalf("expected output channel closed after EOS")
	}
}

func TestVideoWorkerSkipsDecodeErrorsLossily(t *testing.T) {
	calls := 0
	variant, _ := NewH264Variant(func(c frame.EncodedInputChunk) ([]frame.Frame, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("corrupt NAL")
		}
		return []frame.Frame{{Pts: c.Pts}}, nil
	})
	counters := &stats.Counters{}
	w := NewVideoWorker("in-1", variant, nil, counters, stats.NewBus(nil), nil, 4, 4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	w.In() <- frame.Data(frame.EncodedInputChunk{Pts: 0})
	w.In() <- frame.Data(frame.EncodedInputChunk{Pts: time.Second})

	ev := <-w.Out()
	got, ok := ev.Value()
	if !ok || got.Pts != time.Second {
		t.Fatalf("expected only the second chunk to produce a frame, got %+v ok=%v", got, ok)
	}
	if counters.Errors.Load() != 1 {
		t.Fatalf("expected one error counted, got %d", counters.Errors.Load())
	}
}

func TestH264VariantRequiresDecodeFunc(t *testing.T) {
	_, err := NewH264Variant(nil)
	var initErr *DecoderInitError
	if !errors.As(err, &initErr) {
		t.Fatalf("expected DecoderInitError, got %v", err)
	}
}

func TestVulkanFallbackFailsConstructionAndPanicsIfCalled(t *testing.T) {
	_, err := NewVulkanH264Variant()
	if !errors.Is(err, ErrNotCompiledIn) {
		var initErr *DecoderInitError
		if !errors.As(err, &initErr) || !errors.Is(initErr.Err, ErrNotCompiledIn) {
			t.Fatalf("expected not-compiled-in error, got %v", err)
		}
	}

	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic when invoking the fallback variant directly")
		}
	}()
	v := &VulkanH264FallbackVariant{}
	v.Decode(frame.EncodedInputChunk{})
}

func TestDTXGapDetectorDetectsSilenceGap(t *testing.T) {
	d := NewDTXGapDetector(160, 25)
	d.Observe(1, 1000)
	isDTX, missing := d.Observe(2, 1000+160*4)
	if !isDTX || missing != 3 {
		t.Fatalf("expected DTX gap of 3 frames, got dtx=%v missing=%d", isDTX, missing)
	}
}

func TestDTXGapDetectorIgnoresSequenceGaps(t *testing.T) {
	d := NewDTXGapDetector(160, 25)
	d.Observe(1, 1000)
	isDTX, _ := d.Observe(5, 1000+160*4) // seq gap => packet loss, not DTX
	if isDTX {
		t.Fatalf("expected sequence gap to not be classified as DTX")
	}
}
