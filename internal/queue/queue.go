// Package queue implements the synchronization core (§4.4): it aligns
// per-input frame/sample streams to a tick, enforces required semantics,
// and applies offsets.
//
// New code: no teacher file does cross-input frame alignment. The bounded
// ring + drop-on-threshold shape is adapted from the teacher's
// bridge/pcm/playout_buffer.go (bounded FIFO, drop-oldest-on-overflow),
// generalized from one PCM backlog to per-input video/audio rings keyed
// by InputId, and from other_examples/76fffe68_zsiec-prism's
// goroutine-per-stream forwarding/stats shape for the registration and
// lifecycle bookkeeping.
package queue

import (
	"sync"
	"time"

	"smelter/internal/clock"
	"smelter/internal/frame"
	"smelter/internal/ids"
	"smelter/internal/inputbuffer"
	"smelter/internal/stats"
)

// InputOptions mirrors QueueInputOptions from §3/§4.4.
type InputOptions struct {
	Required       bool
	Offset         *time.Duration
	BufferDuration *time.Duration
	// StaleWindow controls how long a non-required input's last-known
	// frame may be reused before falling back to black/silence (Open
	// Question decision recorded in SPEC_FULL.md).
	StaleWindow time.Duration
}

type inputState struct {
	opts      InputOptions
	ready     bool
	eos       bool
	video     *videoRing
	audio     *audioRing
	estimator *inputbuffer.Estimator
	stale     inputbuffer.StaleFramePolicy
	lastFrame *frame.Frame

	// offset is this input's first-packet offset (§4.1), computed once on
	// the first frame or sample to arrive and shared by its video and audio
	// tracks. nil until then. An RTCP sender report via SetRtpSyncPoint
	// overwrites it with the NTP-derived value.
	offset *time.Duration
}

// Queue holds per-input state and produces aligned ticks (§4.4).
type Queue struct {
	mu       sync.Mutex
	inputs   map[ids.InputId]*inputState
	bus      *stats.Bus
	clockRef *clock.Clock

	videoRingCapacity int
	audioRingCapacity int
}

// New constructs an empty Queue. videoRingCapacity/audioRingCapacity bound
// the per-input ring buffers (§4.4 "a bounded ring of recent frames").
func New(bus *stats.Bus, videoRingCapacity, audioRingCapacity int) *Queue {
	if bus == nil {
		bus = stats.NewBus(nil)
	}
	if videoRingCapacity < 1 {
		videoRingCapacity = 16
	}
	if audioRingCapacity < 1 {
		audioRingCapacity = 16
	}
	return &Queue{
		inputs:            map[ids.InputId]*inputState{},
		bus:               bus,
		videoRingCapacity: videoRingCapacity,
		audioRingCapacity: audioRingCapacity,
	}
}

// BindClock attaches the pipeline clock so PushFrame/PushAudio can convert
// arriving media pts into pipeline pts (§4.1/§4.3). A Queue with no bound
// clock (e.g. in unit tests) behaves as if the clock had not started yet:
// elapsed time reads as 0, so an input with no explicit offset and a
// non-negative first media pts gets a first-packet offset of 0.
func (q *Queue) BindClock(c *clock.Clock) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.clockRef = c
}

// SetRtpSyncPoint overrides input id's first-packet offset with one derived
// from an RTCP sender report (§4.1: "RTP clocks are converted to pipeline
// time via NTP sender reports when available"), taking priority over the
// local first-packet heuristic for every frame/sample pushed afterward.
// Applies to both the input's video and audio tracks, since they share one
// offset to avoid A/V drift. A no-op before the input is registered or the
// clock has started.
func (q *Queue) SetRtpSyncPoint(id ids.InputId, sync clock.RtpNtpSyncPoint) {
	q.mu.Lock()
	defer q.mu.Unlock()
	st, ok := q.inputs[id]
	if !ok || q.clockRef == nil || !q.clockRef.Started() {
		return
	}
	off := sync.PipelineOffset(q.clockRef.StartTime())
	st.offset = &off
}

// newEstimatorFor picks the §4.3 delay-estimation policy an input's
// options imply: a fixed buffer_duration wins outright; otherwise a
// non-required input with no explicit offset gets the Adaptive
// (95th-percentile) policy, and everything else gets the EWMA default.
func newEstimatorFor(opts InputOptions) *inputbuffer.Estimator {
	switch {
	case opts.BufferDuration != nil:
		return inputbuffer.NewFixed(*opts.BufferDuration)
	case !opts.Required && opts.Offset == nil:
		return inputbuffer.NewAdaptive(50)
	default:
		return inputbuffer.NewEWMA(0.5)
	}
}

// RegisterInput adds an input to the queue. Re-registering the same id
// replaces its state (§8 property 5: register then unregister restores
// the registry).
func (q *Queue) RegisterInput(id ids.InputId, opts InputOptions) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.inputs[id] = &inputState{
		opts:      opts,
		video:     newVideoRing(q.videoRingCapacity),
		audio:     newAudioRing(q.audioRingCapacity),
		estimator: newEstimatorFor(opts),
		stale:     inputbuffer.NewStaleFramePolicy(opts.StaleWindow),
	}
	q.bus.Publish(stats.Event{Kind: stats.EventInputRegistered, InputId: string(id)})
}

// UnregisterInput removes an input. Per §8 property 5, the registry after
// register+unregister is identical to before register.
func (q *Queue) UnregisterInput(id ids.InputId) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.inputs, id)
	q.bus.Publish(stats.Event{Kind: stats.EventInputUnregistered, InputId: string(id)})
}

// Inputs returns the currently registered input ids (for tests/status).
func (q *Queue) Inputs() []ids.InputId {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]ids.InputId, 0, len(q.inputs))
	for id := range q.inputs {
		out = append(out, id)
	}
	return out
}

// MarkEOS records that an input's decoder has emitted EOS (§4.4 "EOS per
// input"): the input stops contributing new frames but its buffered
// frames remain available until drained.
func (q *Queue) MarkEOS(id ids.InputId) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if st, ok := q.inputs[id]; ok {
		st.eos = true
	}
}

// IsEOS reports whether the input has emitted EOS.
func (q *Queue) IsEOS(id ids.InputId) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	st, ok := q.inputs[id]
	return ok && st.eos
}
