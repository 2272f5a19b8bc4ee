// Package pipeline owns the top-level pipeline lifecycle: input/output
// registration, the per-output renderer/mixer tick loop, and output end
// conditions (§4.4 dataflow cross-cut by register/unregister/update-scene/
// request-keyframe/start/shutdown control messages).
//
// Grounded on the teacher's bridge/media_bridge.go (MediaBridge: one
// context+cancel, one sync.WaitGroup, one goroutine per data direction,
// Start/Stop idempotent via context cancellation) generalized from
// "bridge exactly one SIP endpoint to exactly one Telegram endpoint" to
// "own N dynamically registered inputs and M dynamically registered
// outputs", and on bridge/service.go's registry-under-mutex pattern via
// internal/registry.
package pipeline

import (
	"smelter/internal/clock"
	"smelter/internal/ids"
	"smelter/internal/queue"
	"smelter/internal/registry"
	"smelter/internal/stats"
)

// PipelineCtx is the process-wide state shared read-only after
// construction (§3 "PipelineCtx"): clock sync point, registries, stats
// bus. The wgpu device/async-runtime handle the original spec names has
// no analogue to hold here: GPU evaluation is delegated per-output to a
// scene.GPUBackend (an external collaborator, §1), and the async runtime
// is simply goroutines plus the standard library's net/context.
type PipelineCtx struct {
	Clock   *clock.Clock
	Queue   *queue.Queue
	Stats   *stats.Registry
	Bus     *stats.Bus
	Inputs  *registry.Registry[ids.InputId, *InputHandle]
	Outputs *registry.Registry[ids.OutputId, *OutputHandle]
}

// NewPipelineCtx constructs a PipelineCtx. videoRingCapacity/
// audioRingCapacity size each input's queue rings (§4.4).
func NewPipelineCtx(bus *stats.Bus, videoRingCapacity, audioRingCapacity int) *PipelineCtx {
	if bus == nil {
		bus = stats.NewBus(nil)
	}
	c := clock.New()
	q := queue.New(bus, videoRingCapacity, audioRingCapacity)
	q.BindClock(c)
	return &PipelineCtx{
		Clock:   c,
		Queue:   q,
		Stats:   stats.NewRegistry(),
		Bus:     bus,
		Inputs:  registry.New[ids.InputId, *InputHandle](),
		Outputs: registry.New[ids.OutputId, *OutputHandle](),
	}
}
