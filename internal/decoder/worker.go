// Package decoder implements the per-input-track decoder worker (§4.2):
// one goroutine per track, turning EncodedInputChunks into
// PipelineEvent[Frame] or PipelineEvent[InputAudioSamples].
//
// Grounded on the teacher's bridge/pipeline/sip_decode.go
// (BuildSipDecodeChain: pick a codec, wrap it with jitter handling and a
// DTX silence filler, wire a sink) generalized from one hardcoded SIP
// audio chain into a per-codec tagged-union Variant dispatched once at
// construction and fixed for the worker's lifetime (§9 "Dynamic
// dispatch").
package decoder

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"smelter/internal/frame"
	"smelter/internal/stats"
)

// DecoderInitError is returned by the variant constructors when a Variant fails to construct
// (hard initialization failure, §4.2): it must abort input registration,
// never silently accept frames.
type DecoderInitError struct {
	Variant string
	Err     error
}

func (e *DecoderInitError) Error() string {
	return fmt.Sprintf("decoder init failed for variant %q: %v", e.Variant, e.Err)
}

func (e *DecoderInitError) Unwrap() error { return e.Err }

// VideoVariant decodes encoded video chunks into frames. Implementations
// are a closed set (H264Variant, VP8Variant, VP9Variant, VulkanH264Variant)
// chosen once at construction (§9).
type VideoVariant interface {
	// Decode turns one encoded chunk into zero or more frames (a decoder
	// may buffer internally and emit on a later call).
	Decode(chunk frame.EncodedInputChunk) ([]frame.Frame, error)
	// Flush emits any frames buffered internally, called once on EOS.
	Flush() []frame.Frame
	Name() string
}

// AudioVariant decodes encoded audio chunks into PCM sample batches.
type AudioVariant interface {
	Decode(chunk frame.EncodedInputChunk) ([]frame.InputAudioSamples, error)
	Flush() []frame.InputAudioSamples
	Name() string
}

// KeyframeRequester forwards an upstream keyframe request to the
// transport (e.g. RTCP PLI) or, for a local stream, to the upstream
// encoder (§4.2).
type KeyframeRequester interface {
	RequestKeyframe()
}

// VideoWorker runs one VideoVariant as a goroutine-per-track decoder.
type VideoWorker struct {
	id       string
	variant  VideoVariant
	log      *slog.Logger
	counters *stats.Counters
	bus      *stats.Bus
	keyframe KeyframeRequester

	in  chan frame.PipelineEvent[frame.EncodedInputChunk]
	out chan frame.PipelineEvent[frame.Frame]

	wg sync.WaitGroup
}

// NewVideoWorker constructs a worker around variant. Construction never
// fails here: variant construction failures are surfaced by the variant
// factories (see video_variant.go and audio_variant.go) as DecoderInitError before a worker is ever
// built, matching §4.2's "hard initialization failures propagate ...
// aborting input registration".
func NewVideoWorker(id string, variant VideoVariant, log *slog.Logger, counters *stats.Counters, bus *stats.Bus, keyframe KeyframeRequester, inBuffer, outBuffer int) *VideoWorker {
	if log == nil {
		log = slog.Default()
	}
	return &VideoWorker{
		id:       id,
		variant:  variant,
		log:      log,
		counters: counters,
		bus:      bus,
		keyframe: keyframe,
		in:       make(chan frame.PipelineEvent[frame.EncodedInputChunk], inBuffer),
		out:      make(chan frame.PipelineEvent[frame.Frame], outBuffer),
	}
}

// In returns the channel to feed encoded chunks into.
func (w *VideoWorker) In() chan<- frame.PipelineEvent[frame.EncodedInputChunk] { return w.in }

// Out returns the channel decoded frames are emitted on.
func (w *VideoWorker) Out() <-chan frame.PipelineEvent[frame.Frame] { return w.out }

// RequestKeyframe forwards a keyframe request for this track (§4.2).
func (w *VideoWorker) RequestKeyframe() {
	if w.keyframe != nil {
		w.keyframe.RequestKeyframe()
	}
}

// Run drives the decode loop until ctx is cancelled or the input channel is
// closed/EOS'd. On EOS, it flushes the variant's internal buffer, emits the
// remaining frames, then forwards EOS (§4.2).
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
			chunk, isData := ev.Value()
			if !isData {
				for _, f := range w.variant.Flush() {
					w.emit(f)
				}
				w.out <- frame.EOS[frame.Frame]()
				return
			}
			frames, err := w.variant.Decode(chunk)
			if err != nil {
				// Decode errors are lossy: log and skip (§4.2).
				w.counters.Errors.Add(1)
				w.log.Debug("video decode error, skipping chunk", "input", w.id, "variant", w.variant.Name(), "error", err)
				continue
			}
			for _, f := range frames {
				w.emit(f)
			}
		}
	}
}

func (w *VideoWorker) emit(f frame.Frame) {
	size := 0
	for _, p := range f.Planes {
		size += len(p)
	}
	w.counters.RecordOut(size)
	w.out <- frame.Data(f)
}

// Wait blocks until Run has returned.
func (w *VideoWorker) Wait() { w.wg.Wait() }

// AudioWorker mirrors VideoWorker for audio tracks.
type AudioWorker struct {
	id       string
	variant  AudioVariant
	log      *slog.Logger
	counters *stats.Counters

	in  chan frame.PipelineEvent[frame.EncodedInputChunk]
	out chan frame.PipelineEvent[frame.InputAudioSamples]

	wg sync.WaitGroup
}

// NewAudioWorker constructs an audio decode worker around variant.
func NewAudioWorker(id string, variant AudioVariant, log *slog.Logger, counters *stats.Counters, inBuffer, outBuffer int) *AudioWorker {
	if log == nil {
		log = slog.Default()
	}
	return &AudioWorker{
		id:       id,
		variant:  variant,
		log:      log,
		counters: counters,
		in:       make(chan frame.PipelineEvent[frame.EncodedInputChunk], inBuffer),
		out:      make(chan frame.PipelineEvent[frame.InputAudioSamples], outBuffer),
	}
}

// In returns the channel to feed encoded chunks into.
func (w *AudioWorker) In() chan<- frame.PipelineEvent[frame.EncodedInputChunk] { return w.in }

// Out returns the channel decoded sample batches are emitted on.
func (w *AudioWorker) Out() <-chan frame.PipelineEvent[frame.InputAudioSamples] { return w.out }

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
			chunk, isData := ev.Value()
			if !isData {
				for _, s := range w.variant.Flush() {
					w.emit(s)
				}
				w.out <- frame.EOS[frame.InputAudioSamples]()
				return
			}
			samples, err := w.variant.Decode(chunk)
			if err != nil {
				w.counters.Errors.Add(1)
				w.log.Debug("audio decode error, skipping chunk", "input", w.id, "variant", w.variant.Name(), "error", err)
				continue
			}
			for _, s := range samples {
				w.emit(s)
			}
		}
	}
}

func (w *AudioWorker) emit(s frame.InputAudioSamples) {
	w.counters.RecordOut(len(s.Samples) * 2)
	w.out <- frame.Data(s)
}

// Wait blocks until Run has returned.
func (w *AudioWorker) Wait() { w.wg.Wait() }
