package queue

import (
	"time"

	"smelter/internal/clock"
	"smelter/internal/frame"
	"smelter/internal/ids"
	"smelter/internal/stats"
)

// elapsedLocked returns the pipeline clock's elapsed time, or 0 if no clock
// has been bound or started. Callers must already hold q.mu.
func (q *Queue) elapsedLocked() time.Duration {
	if q.clockRef == nil {
		return 0
	}
	return q.clockRef.Elapsed()
}

// alignPts converts one arriving media pts into pipeline pts, implementing
// §4.1/§4.3's formula: pipeline_pts = media_pts + first_packet_offset +
// buffer_size(). The offset is computed once per input (on whichever track
// arrives first) and shared by both of its tracks to avoid A/V drift;
// SetRtpSyncPoint may overwrite it later with an NTP-derived value. Every
// arrival also feeds the input's delay estimator, so buffer_size() tracks
// live arrival jitter instead of staying fixed at its initial estimate.
// Callers must already hold q.mu.
func (q *Queue) alignPts(st *inputState, mediaPts time.Duration) time.Duration {
	elapsed := q.elapsedLocked()
	if st.offset == nil {
		off := clock.FirstPacketOffset(st.opts.Offset, elapsed, mediaPts)
		st.offset = &off
	}
	lateness := elapsed - (mediaPts + *st.offset)
	st.estimator.Observe(lateness)
	return mediaPts + *st.offset + st.estimator.Size()
}

// PushFrame feeds one decoded frame for id into the queue's video ring.
// The first frame marks the input ready (§4.4 "ready flag ... set when
// the first real frame has arrived").
func (q *Queue) PushFrame(id ids.InputId, f frame.Frame) {
	q.mu.Lock()
	defer q.mu.Unlock()
	st, ok := q.inputs[id]
	if !ok {
		return
	}
	f.Pts = q.alignPts(st, f.Pts)
	st.video.push(f)
	st.lastFrame = &f
	st.ready = true
}

// PushAudio feeds one decoded audio batch for id into the queue's audio
// ring.
func (q *Queue) PushAudio(id ids.InputId, s frame.InputAudioSamples) {
	q.mu.Lock()
	defer q.mu.Unlock()
	st, ok := q.inputs[id]
	if !ok {
		return
	}
	s.StartPts = q.alignPts(st, s.StartPts)
	st.audio.push(s)
	st.ready = true
}

// MarkWillNotDeliver marks an input ready without ever having delivered a
// frame (§4.4 "or the input is explicitly marked 'will not deliver'"),
// e.g. an audio-only input being asked for a video tick.
func (q *Queue) MarkWillNotDeliver(id ids.InputId) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if st, ok := q.inputs[id]; ok {
		st.ready = true
	}
}

// VideoFrameEntry is one input's contribution to an assembled video tick.
// Frame is nil when the input has "no frame" to contribute (§4.4 step 1).
type VideoFrameEntry struct {
	Input ids.InputId
	Frame *frame.Frame
}

// VideoTickResult is the outcome of assembling one video tick.
type VideoTickResult struct {
	Entries    []VideoFrameEntry
	Downgraded []ids.InputId // required inputs downgraded after max_wait
}

// VideoTickOptions configures one AssembleVideoTick call.
type VideoTickOptions struct {
	// Epsilon is one frame interval, used for the required-input
	// readiness check (§4.4 step 2: "pts <= t + epsilon").
	Epsilon time.Duration
	// MaxWait bounds how long the tick may stall waiting on a required
	// input (§4.4 step 2, default a few frame intervals, §5 default 5).
	MaxWait time.Duration
	// PollInterval is how often the stall loop re-checks readiness.
	PollInterval time.Duration
	// DropThreshold: frames older than t-DropThreshold are evicted after
	// the tick (§4.4 step 3).
	DropThreshold time.Duration
	// Sleep is injected so tests can avoid real wall-clock waits; nil
	// uses time.Sleep.
	Sleep func(time.Duration)
	// Now is injected for deterministic stall-deadline tests; nil uses
	// time.Now.
	Now func() time.Time
}

func (o VideoTickOptions) sleep(d time.Duration) {
	if o.Sleep != nil {
		o.Sleep(d)
		return
	}
	time.Sleep(d)
}

func (o VideoTickOptions) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

// AssembleVideoTick assembles a frame set for ids at pipeline time t,
// implementing §4.4's video tick algorithm including the required-input
// stall (step 2).
func (q *Queue) AssembleVideoTick(inputIds []ids.InputId, t time.Duration, opts VideoTickOptions) VideoTickResult {
	if opts.Epsilon <= 0 {
		opts.Epsilon = 33 * time.Millisecond
	}
	if opts.MaxWait <= 0 {
		opts.MaxWait = 5 * opts.Epsilon
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = opts.Epsilon / 4
		if opts.PollInterval <= 0 {
			opts.PollInterval = time.Millisecond
		}
	}

	deadline := opts.now().Add(opts.MaxWait)
	var downgraded []ids.InputId
	stalled := false
	for {
		blocking := q.requiredBlocking(inputIds, t, opts.Epsilon)
		if len(blocking) == 0 {
			break
		}
		if opts.now().After(deadline) {
			downgraded = blocking
			q.bus.Publish(stats.Event{Kind: stats.EventRequiredDowngraded, Message: "required input(s) downgraded after max_wait"})
			break
		}
		if !stalled {
			stalled = true
			q.bus.Publish(stats.Event{Kind: stats.EventQueueStall, Message: "waiting on required input(s)"})
		}
		opts.sleep(opts.PollInterval)
	}
	if stalled && len(downgraded) == 0 {
		q.bus.Publish(stats.Event{Kind: stats.EventQueueStallResolved})
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	entries := make([]VideoFrameEntry, 0, len(inputIds))
	for _, id := range inputIds {
		st, ok := q.inputs[id]
		if !ok {
			entries = append(entries, VideoFrameEntry{Input: id})
			continue
		}
		f := st.video.nearest(t)
		if f == nil && st.lastFrame != nil && st.stale.ShouldReuse(st.lastFrame.Pts, t) {
			f = st.lastFrame
		}
		entries = append(entries, VideoFrameEntry{Input: id, Frame: f})
		if opts.DropThreshold > 0 {
			st.video.dropBefore(t - opts.DropThreshold)
		}
	}
	return VideoTickResult{Entries: entries, Downgraded: downgraded}
}

// requiredBlocking returns the subset of inputIds that are required,
// registered, not EOS, and have no frame within epsilon of t (§4.4 step 2
// / §8 property 6).
func (q *Queue) requiredBlocking(inputIds []ids.InputId, t, epsilon time.Duration) []ids.InputId {
	q.mu.Lock()
	defer q.mu.Unlock()
	var blocking []ids.InputId
	for _, id := range inputIds {
		st, ok := q.inputs[id]
		if !ok || !st.opts.Required || st.eos {
			continue
		}
		if !st.ready || !st.video.hasFrameWithinEpsilonOf(t, epsilon) {
			blocking = append(blocking, id)
		}
	}
	return blocking
}

// AudioTickResult is the outcome of assembling one audio tick.
type AudioTickResult struct {
	PerInput map[ids.InputId][]frame.InputAudioSamples
}

// AssembleAudioTick collects, per input, every sample batch overlapping
// [t, t+20ms) (§4.4's audio tick), dropping batches older than the range
// start afterward.
func (q *Queue) AssembleAudioTick(inputIds []ids.InputId, t time.Duration, batchDuration time.Duration) AudioTickResult {
	if batchDuration <= 0 {
		batchDuration = 20 * time.Millisecond
	}
	to := t + batchDuration

	q.mu.Lock()
	defer q.mu.Unlock()
	result := AudioTickResult{PerInput: map[ids.InputId][]frame.InputAudioSamples{}}
	for _, id := range inputIds {
		st, ok := q.inputs[id]
		if !ok {
			continue
		}
		result.PerInput[id] = st.audio.overlapping(t, to)
		st.audio.dropBefore(t)
	}
	return result
}
