package pipeline

import (
	"context"
	"sync"
	"time"

	"smelter/internal/audiomixer"
	"smelter/internal/encoder"
	"smelter/internal/frame"
	"smelter/internal/ids"
	"smelter/internal/queue"
	"smelter/internal/scene"
	"smelter/internal/stats"
)

// ChunkSink receives one output's encoded chunks. It is the boundary to
// the payloader/transport stage (§4.9/§4.10), kept external to Pipeline
// the same way decoder.VideoVariant/encoder.VideoVariant keep codec
// internals external (§1): Pipeline only knows it must hand every chunk
// to something, not what RTP/RTMP/HLS/MP4 does with it.
type ChunkSink interface {
	WriteVideo(frame.EncodedOutputChunk) error
	WriteAudio(frame.EncodedOutputChunk) error
	Close()
}

// OutputHandle is one registered output's render/mix/encode tick loop
// state (§4.5/§4.6/§4.7/§4.8).
//
// Grounded on the teacher's writeTG/writeSIP goroutines in
// bridge/media_bridge.go (one ticker-driven pacing loop per direction,
// each owning its own encode/format step), generalized from one fixed
// PCM format conversion to a full render(video)/mix(audio) tick feeding a
// per-output encoder.
type OutputHandle struct {
	Id ids.OutputId

	store    *scene.Store
	renderer *scene.Renderer
	mixer    *audiomixer.Mixer

	videoEncoder *encoder.VideoWorker
	audioEncoder *encoder.AudioWorker
	sink         ChunkSink

	end EndCondition

	framerate int // video ticks per second

	mu  sync.Mutex
	eos map[ids.InputId]bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewOutputHandle constructs an output's tick-loop state. videoEncoder/
// audioEncoder/sink may be nil to model an audio-only or video-only
// output; store/renderer are required whenever videoEncoder is set, and
// mixer is required whenever audioEncoder is set.
func NewOutputHandle(id ids.OutputId, store *scene.Store, renderer *scene.Renderer, mixer *audiomixer.Mixer, videoEncoder *encoder.VideoWorker, audioEncoder *encoder.AudioWorker, sink ChunkSink, end EndCondition, framerate int) *OutputHandle {
	if framerate <= 0 {
		framerate = 30
	}
	return &OutputHandle{
		Id:           id,
		store:        store,
		renderer:     renderer,
		mixer:        mixer,
		videoEncoder: videoEncoder,
		audioEncoder: audioEncoder,
		sink:         sink,
		end:          end,
		framerate:    framerate,
		eos:          map[ids.InputId]bool{},
	}
}

// boundInputs returns the inputs currently referenced by the output's
// active scene tree, used by EndAnyInput/EndAllInputs (§4.7).
func (h *OutputHandle) boundInputs() []ids.InputId {
	if h.store == nil {
		return nil
	}
	return h.store.Load().Root.InputStream()
}

// noteInputEOS records that id has emitted EOS, for this output's end
// condition evaluation. Called by Pipeline whenever any input's forwarder
// observes EOS.
func (h *OutputHandle) noteInputEOS(id ids.InputId) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.eos[id] = true
}

func (h *OutputHandle) endSatisfied() bool {
	h.mu.Lock()
	eos := make(map[ids.InputId]bool, len(h.eos))
	for k, v := range h.eos {
		eos[k] = v
	}
	h.mu.Unlock()
	return h.end.Satisfied(eos, h.boundInputs())
}

// run starts the output's render and mix tick loops, the encoder workers,
// and the chunk forwarders, which run until this output's own shutdown
// signal fires, the parent pipeline context is cancelled, or the end
// condition is satisfied. It returns as soon as they are started; stop()
// (called by the pipeline's UnregisterOutput / Stop) waits for every owned
// goroutine to exit.
//
// Grounded on §5 "Each input and output owns a shutdown signal": ctx is a
// child of parent, cancelled either by the pipeline stopping or by this
// output's own shutdown(), so one output can be force-unregistered (e.g.
// an EndNever output that never reaches its end condition on its own)
// without tearing down the whole pipeline.
func (h *OutputHandle) run(parent context.Context, q *queue.Queue, bus *stats.Bus) {
	var ctx context.Context
	ctx, h.cancel = context.WithCancel(parent)

	// ticksCtx is cancelled either when ctx is (full pipeline/output
	// teardown) or explicitly by the end-condition monitor below, without
	// tearing down the encoder/forwarder goroutines that still need to
	// drain a flush.
	ticksCtx, cancelTicks := context.WithCancel(ctx)

	if h.videoEncoder != nil {
		h.wg.Add(1)
		go func() { defer h.wg.Done(); h.videoEncoder.Run(ctx) }()
	}
	if h.audioEncoder != nil {
		h.wg.Add(1)
		go func() { defer h.wg.Done(); h.audioEncoder.Run(ctx) }()
	}
	if h.renderer != nil && h.videoEncoder != nil {
		h.wg.Add(2)
		go func() { defer h.wg.Done(); h.videoTickLoop(ticksCtx, q) }()
		go func() { defer h.wg.Done(); h.forwardVideo(ctx) }()
	}
	if h.mixer != nil && h.audioEncoder != nil {
		h.wg.Add(2)
		go func() { defer h.wg.Done(); h.audioTickLoop(ticksCtx, q) }()
		go func() { defer h.wg.Done(); h.forwardAudio(ctx) }()
	}

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if !h.endSatisfied() {
					continue
				}
				// §4.7: stop producing new frames, flush the encoders by
				// feeding them EOS, wait for the flushed tail to drain,
				// then let Stop's deferred cleanup close the sink.
				cancelTicks()
				if h.videoEncoder != nil {
					h.videoEncoder.In() <- frame.EOS[frame.Frame]()
					h.videoEncoder.Wait()
				}
				if h.audioEncoder != nil {
					h.audioEncoder.In() <- frame.EOS[frame.InputAudioSamples]()
					h.audioEncoder.Wait()
				}
				bus.Publish(stats.Event{Kind: stats.EventOutputEOS, OutputId: string(h.Id), Message: "end condition satisfied"})
				return
			}
		}
	}()
}

// shutdown fires this output's own cancellation signal. Safe to call
// multiple times, or before run (e.g. an output registered before the
// pipeline was Start'd).
func (h *OutputHandle) shutdown() {
	if h.cancel != nil {
		h.cancel()
	}
}

// stop fires this output's own shutdown signal (idempotent alongside an
// end-condition-triggered teardown, or a parent pipeline Stop), waits for
// every goroutine it owns to exit, and closes the sink.
func (h *OutputHandle) stop() {
	h.shutdown()
	h.wg.Wait()
	if h.sink != nil {
		h.sink.Close()
	}
}

func (h *OutputHandle) videoTickLoop(ctx context.Context, q *queue.Queue) {
	interval := time.Second / time.Duration(h.framerate)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	var i int64
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t := time.Duration(i) * interval
			i++
			inputs := h.boundInputs()
			tick := q.AssembleVideoTick(inputs, t, queue.VideoTickOptions{Epsilon: interval})
			bound := make(map[ids.InputId]*frame.Frame, len(tick.Entries))
			for _, e := range tick.Entries {
				bound[e.Input] = e.Frame
			}
			out, err := h.renderer.Tick(t, bound)
			if err != nil {
				continue
			}
			select {
			case h.videoEncoder.In() <- frame.Data(out):
			case <-ctx.Done():
				return
			}
		}
	}
}

func (h *OutputHandle) audioTickLoop(ctx context.Context, q *queue.Queue) {
	const batch = 20 * time.Millisecond
	ticker := time.NewTicker(batch)
	defer ticker.Stop()
	var i int64
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t := time.Duration(i) * batch
			i++
			inputs := h.boundInputs()
			tick := q.AssembleAudioTick(inputs, t, batch)
			mixInputs := make([]audiomixer.Input, 0, len(inputs))
			for _, id := range inputs {
				for _, s := range tick.PerInput[id] {
					mixInputs = append(mixInputs, audiomixer.Input{ID: id, Samples: s, Gain: 1.0})
				}
			}
			out := h.mixer.Mix(frame.InputAudioSamples{StartPts: t}, mixInputs)
			select {
			case h.audioEncoder.In() <- frame.Data(out):
			case <-ctx.Done():
				return
			}
		}
	}
}

func (h *OutputHandle) forwardVideo(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-h.videoEncoder.Out():
			if !ok {
				return
			}
			c, isData := ev.Value()
			if !isData {
				return
			}
			if h.sink != nil {
				_ = h.sink.WriteVideo(c)
			}
		}
	}
}

func (h *OutputHandle) forwardAudio(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-h.audioEncoder.Out():
			if !ok {
				return
			}
			c, isData := ev.Value()
			if !isData {
				return
			}
			if h.sink != nil {
				_ = h.sink.WriteAudio(c)
			}
		}
	}
}

// RequestKeyframe forwards an encoder keyframe request (§4.8), e.g. from
// a control API call or an RTCP PLI surfaced by the transport.
func (h *OutputHandle) RequestKeyframe() {
	if h.videoEncoder != nil {
		h.videoEncoder.RequestKeyframe()
	}
}

// UpdateScene begins a crossfade transition to next (§4.5/§9 "Scene
// swap"). A duration of 0 swaps immediately with no crossfade.
func (h *OutputHandle) UpdateScene(next scene.Scene, start, duration time.Duration) {
	if h.renderer == nil {
		return
	}
	h.renderer.BeginTransition(next, start, duration)
}
