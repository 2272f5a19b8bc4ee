// Package encoder implements the per-output-track encoder worker (§4.8):
// one goroutine per track, turning frames/samples into
// PipelineEvent[EncodedOutputChunk], honoring keyframe requests and a
// periodic keyframe interval.
//
// Mirrors internal/decoder's worker shape in reverse, grounded on the same
// teacher file via its encode-side counterpart,
// bridge/pipeline/sip_encode.go (BuildSipEncodePipeline: pick a codec, wrap
// it with an RTP sequence writer and resampler) generalized to a per-codec
// tagged-union Variant plus an explicit keyframe-request channel the
// decoder side never needed.
package encoder

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"smelter/internal/frame"
	"smelter/internal/stats"
)

// EncoderInitError mirrors decoder.DecoderInitError: a Variant failing to
// construct must abort output registration, never silently drop frames.
type EncoderInitError struct {
	Variant string
	Err     error
}

func (e *EncoderInitError) Error() string {
	return fmt.Sprintf("encoder init failed for variant %q: %v", e.Variant, e.Err)
}

func (e *EncoderInitError) Unwrap() error { return e.Err }

// VideoVariant encodes frames into chunks. forceKeyframe instructs the
// variant to produce an IDR for this call (§4.8 "on request, the next
// produced frame is an IDR").
type VideoVariant interface {
	Encode(f frame.Frame, forceKeyframe bool) (frame.EncodedOutputChunk, error)
	Flush() []frame.EncodedOutputChunk
	Name() string
}

// AudioVariant encodes sample batches into chunks.
type AudioVariant interface {
	Encode(s frame.InputAudioSamples) (frame.EncodedOutputChunk, error)
	Flush() []frame.EncodedOutputChunk
	Name() string
}

// VideoWorker runs one VideoVariant as a goroutine-per-track encoder.
type VideoWorker struct {
	id       string
	variant  VideoVariant
	log      *slog.Logger
	counters *stats.Counters

	keyframeInterval time.Duration
	lastKeyframe     time.Time
	nowFn            func() time.Time

	in        chan frame.PipelineEvent[frame.Frame]
	keyframes chan struct{}
	out       chan frame.PipelineEvent[frame.EncodedOutputChunk]

	wg sync.WaitGroup
}

// NewVideoWorker constructs an encode worker around variant. keyframeInterval
// <= 0 disables the periodic IDR insertion (request-only keyframing).
func NewVideoWorker(id string, variant VideoVariant, log *slog.Logger, counters *stats.Counters, keyframeInterval time.Duration, inBuffer, outBuffer int) *VideoWorker {
	if log == nil {
		log = slog.Default()
	}
	return &VideoWorker{
		id:               id,
		variant:          variant,
		log:              log,
		counters:         counters,
		keyframeInterval: keyframeInterval,
		nowFn:            time.Now,
		in:               make(chan frame.PipelineEvent[frame.Frame], inBuffer),
		keyframes:        make(chan struct{}, 1),
		out:              make(chan frame.PipelineEvent[frame.EncodedOutputChunk], outBuffer),
	}
}

// In returns the channel to feed frames into.
func (w *VideoWorker) In() chan<- frame.PipelineEvent[frame.Frame] { return w.in }

// Out returns the channel encoded chunks are emitted on.
func (w *VideoWorker) Out() <-chan frame.PipelineEvent[frame.EncodedOutputChunk] { return w.out }

// RequestKeyframe schedules an IDR for the next encoded frame (§4.8). Two
// requests arriving before the next frame is produced coalesce into one
// IDR rather than stacking up across ticks.
func (w *VideoWorker) RequestKeyframe() {
	select {
	case w.keyframes <- struct{}{}:
	default:
	}
}

// Run drives the encode loop until ctx is cancelled or the input channel is
// closed/EOS'd (§4.8 "on EOS, flush and forward").
func (w *VideoWorker) Run(ctx context.Context) {
	w.wg.Add(1)
	defer w.wg.Done()
	defer close(w.out)

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.in:
			if !ok {
				return
			}
			f, isData := ev.Value()
			if !isData {
				for _, c := range w.variant.Flush() {
					w.emit(c)
				}
				w.out <- frame.EOS[frame.EncodedOutputChunk]()
				return
			}
			force := w.consumeKeyframeRequest()
			chunk, err := w.variant.Encode(f, force)
			if err != nil {
				w.counters.Errors.Add(1)
				w.log.Debug("video encode error, skipping frame", "output", w.id, "variant", w.variant.Name(), "error", err)
				continue
			}
			if chunk.IsKeyframe {
				w.lastKeyframe = w.nowFn()
			}
			w.emit(chunk)
		}
	}
}

// consumeKeyframeRequest reports whether this frame should be forced to an
// IDR, draining any pending request and folding in the periodic interval.
func (w *VideoWorker) consumeKeyframeRequest() bool {
	requested := false
	select {
	case <-w.keyframes:
		requested = true
	default:
	}
	if !requested && w.keyframeInterval > 0 && w.nowFn().Sub(w.lastKeyframe) >= w.keyframeInterval {
		requested = true
	}
	return requested
}

func (w *VideoWorker) emit(c frame.EncodedOutputChunk) {
	w.counters.RecordOut(len(c.Payload))
	w.out <- frame.Data(c)
}

// Wait blocks until Run has returned.
func (w *VideoWorker) Wait() { w.wg.Wait() }

// AudioWorker mirrors VideoWorker for audio tracks (no keyframe concept).
type AudioWorker struct {
	id       string
	variant  AudioVariant
	log      *slog.Logger
	counters *stats.Counters

	in  chan frame.PipelineEvent[frame.InputAudioSamples]
	out chan frame.PipelineEvent[frame.EncodedOutputChunk]

	wg sync.WaitGroup
}

// NewAudioWorker constructs an audio encode worker around variant.
func NewAudioWorker(id string, variant AudioVariant, log *slog.Logger, counters *stats.Counters, inBuffer, outBuffer int) *AudioWorker {
	if log == nil {
		log = slog.Default()
	}
	return &AudioWorker{
		id:       id,
		variant:  variant,
		log:      log,
		counters: counters,
		in:       make(chan frame.PipelineEvent[frame.InputAudioSamples], inBuffer),
		out:      make(chan frame.PipelineEvent[frame.EncodedOutputChunk], outBuffer),
	}
}

// In returns the channel to feed sample batches into.
func (w *AudioWorker) In() chan<- frame.PipelineEvent[frame.InputAudioSamples] { return w.in }

// Out returns the channel encoded chunks are emitted on.
func (w *AudioWorker) Out() <-chan frame.PipelineEvent[frame.EncodedOutputChunk] { return w.out }

// Run mirrors VideoWorker.Run for audio.
func (w *AudioWorker) Run(ctx context.Context) {
	w.wg.Add(1)
	defer w.wg.Done()
	defer close(w.out)

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.in:
			if !ok {
				return
			}
			s, isData := ev.Value()
			if !isData {
				for _, c := range w.variant.Flush() {
					w.emit(c)
				}
				w.out <- frame.EOS[frame.EncodedOutputChunk]()
				return
			}
			chunk, err := w.variant.Encode(s)
			if err != nil {
				w.counters.Errors.Add(1)
				w.log.Debug("audio encode error, skipping batch", "output", w.id, "variant", w.variant.Name(), "error", err)
				continue
			}
			if chunk.Payload == nil {
				// The variant buffered internally without emitting a packet.
				continue
			}
			w.emit(chunk)
		}
	}
}

func (w *AudioWorker) emit(c frame.EncodedOutputChunk) {
	w.counters.RecordOut(len(c.Payload))
	w.out <- frame.Data(c)
}

// Wait blocks until Run has returned.
func (w *AudioWorker) Wait() { w.wg.Wait() }
