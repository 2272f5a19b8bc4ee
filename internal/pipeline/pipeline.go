package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"smelter/internal/audiomixer"
	"smelter/internal/decoder"
	"smelter/internal/encoder"
	"smelter/internal/ids"
	"smelter/internal/queue"
	"smelter/internal/scene"
	"smelter/internal/stats"
)

// Pipeline is the top-level runtime: one PipelineCtx plus the
// goroutine-lifecycle bookkeeping to start/stop it and register/
// unregister inputs and outputs at runtime (§2 dataflow, §5 cancellation).
//
// Grounded on bridge/media_bridge.go's MediaBridge (Start spawns
// goroutines under one context, Stop cancels and joins a WaitGroup),
// generalized from exactly one bridged pair to N inputs and M outputs
// registered/unregistered while the pipeline runs.
type Pipeline struct {
	Ctx *PipelineCtx

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	started bool
	wg      sync.WaitGroup
}

// New constructs a Pipeline over a fresh PipelineCtx. It is not yet
// started; no ticks are produced before Start (§4.4 "Start gating").
func New(bus *stats.Bus, videoRingCapacity, audioRingCapacity int) *Pipeline {
	return &Pipeline{Ctx: NewPipelineCtx(bus, videoRingCapacity, audioRingCapacity)}
}

// Start captures queue_sync_point (§4.1) and allows ticks to begin.
// Calling Start more than once is a no-op, matching clock.Clock.Start.
func (p *Pipeline) Start(parent context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return
	}
	p.ctx, p.cancel = context.WithCancel(parent)
	p.Ctx.Clock.Start()
	p.started = true
}

// Stop cancels every input/output goroutine and waits for them to exit
// (§5 "the top-level pipeline drop signals all workers and joins them").
// Safe to call once Start has returned; idempotent.
func (p *Pipeline) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	cancel := p.cancel
	p.started = false
	p.mu.Unlock()

	cancel()

	p.Ctx.Inputs.Each(func(_ ids.InputId, h *InputHandle) { h.wait() })
	p.Ctx.Outputs.Each(func(_ ids.OutputId, h *OutputHandle) { h.stop() })
}

// ErrAlreadyRegistered is returned by RegisterInput/RegisterOutput when
// the id is already in use (the caller must unregister first).
var ErrAlreadyRegistered = fmt.Errorf("pipeline: id already registered")

// RegisterInput adds an input's decoder workers to the queue and starts
// forwarding their output (§3 InputRegistration lifecycle: "register →
// (receiving decoded data) → unregister → drained").
func (p *Pipeline) RegisterInput(id ids.InputId, opts queue.InputOptions, video *decoder.VideoWorker, audio *decoder.AudioWorker) (*InputHandle, error) {
	if _, existed := p.Ctx.Inputs.Get(id); existed {
		return nil, ErrAlreadyRegistered
	}
	handle := NewInputHandle(id, opts, video, audio)
	handle.Ref = ids.NewRef(id, func(ids.InputId) { p.UnregisterInput(id) })
	handle.onEOS = func(inputId ids.InputId) {
		p.Ctx.Outputs.Each(func(_ ids.OutputId, out *OutputHandle) { out.noteInputEOS(inputId) })
	}
	p.Ctx.Queue.RegisterInput(id, opts)
	p.Ctx.Inputs.Register(id, handle)

	p.mu.Lock()
	ctx := p.ctx
	p.mu.Unlock()
	if ctx != nil {
		handle.run(ctx, p.Ctx.Queue)
	}
	return handle, nil
}

// UnregisterInput stops and drops an input. Matches §8 property 5:
// register then unregister restores the queue/registry to their prior
// state.
func (p *Pipeline) UnregisterInput(id ids.InputId) {
	handle, ok := p.Ctx.Inputs.Unregister(id)
	if !ok {
		return
	}
	handle.shutdown()
	handle.wait()
	p.Ctx.Queue.UnregisterInput(id)
}

// RegisterOutput wires an output's scene/mixer/encoders and starts its
// tick loops (§3 OutputRegistration).
func (p *Pipeline) RegisterOutput(id ids.OutputId, store *scene.Store, renderer *scene.Renderer, mixer *audiomixer.Mixer, videoEncoder *encoder.VideoWorker, audioEncoder *encoder.AudioWorker, sink ChunkSink, end EndCondition, framerate int) (*OutputHandle, error) {
	if _, existed := p.Ctx.Outputs.Get(id); existed {
		return nil, ErrAlreadyRegistered
	}
	handle := NewOutputHandle(id, store, renderer, mixer, videoEncoder, audioEncoder, sink, end, framerate)
	p.Ctx.Outputs.Register(id, handle)

	p.mu.Lock()
	ctx := p.ctx
	p.mu.Unlock()
	if ctx != nil {
		handle.run(ctx, p.Ctx.Queue, p.Ctx.Bus)
	}
	return handle, nil
}

// UnregisterOutput stops an output's tick loops and drops it.
func (p *Pipeline) UnregisterOutput(id ids.OutputId) {
	handle, ok := p.Ctx.Outputs.Unregister(id)
	if !ok {
		return
	}
	handle.stop()
}

// UpdateScene begins a crossfade transition on output id (§4.5).
func (p *Pipeline) UpdateScene(id ids.OutputId, next scene.Scene, start, duration time.Duration) error {
	handle, ok := p.Ctx.Outputs.Get(id)
	if !ok {
		return fmt.Errorf("pipeline: output %q not registered", id)
	}
	handle.UpdateScene(next, start, duration)
	return nil
}

// RequestKeyframe forwards a keyframe request to output id's encoder
// (§4.8).
func (p *Pipeline) RequestKeyframe(id ids.OutputId) error {
	handle, ok := p.Ctx.Outputs.Get(id)
	if !ok {
		return fmt.Errorf("pipeline: output %q not registered", id)
	}
	handle.RequestKeyframe()
	return nil
}
