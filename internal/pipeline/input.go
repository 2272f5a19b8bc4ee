package pipeline

import (
	"context"
	"sync"

	"smelter/internal/decoder"
	"smelter/internal/ids"
	"smelter/internal/queue"
)

// InputHandle is one registered input's queue-facing state: its decoder
// workers (video and/or audio) plus the forwarder goroutines that copy
// their decoded output into the shared Queue and track per-input EOS for
// output end-condition evaluation (§4.4 "EOS per input").
//
// Grounded on bridge/media_bridge.go's readSIP goroutine (read decoded
// data off one source, push it into a shared buffer until ctx is done),
// generalized from one hardcoded SIP source to either or both of a
// video/audio decoder.VideoWorker/AudioWorker.
type InputHandle struct {
	Id      ids.InputId
	Ref     *ids.Ref[ids.InputId]
	Options queue.InputOptions

	video *decoder.VideoWorker
	audio *decoder.AudioWorker

	mu          sync.Mutex
	eos         bool
	tracksTotal int
	tracksDone  int
	onEOS       func(ids.InputId)

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewInputHandle wraps decoder workers for one input. Either worker may be
// nil for a video-only or audio-only input, but not both.
func NewInputHandle(id ids.InputId, opts queue.InputOptions, video *decoder.VideoWorker, audio *decoder.AudioWorker) *InputHandle {
	h := &InputHandle{Id: id, Options: opts, video: video, audio: audio}
	if video != nil {
		h.tracksTotal++
	}
	if audio != nil {
		h.tracksTotal++
	}
	return h
}

// EOS reports whether every track this input owns has finished.
func (h *InputHandle) EOS() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.eos
}

func (h *InputHandle) trackDone() (allDone bool) {
	h.mu.Lock()
	h.tracksDone++
	justFinished := h.tracksDone >= h.tracksTotal && !h.eos
	if h.tracksDone >= h.tracksTotal {
		h.eos = true
	}
	allDone = h.eos
	h.mu.Unlock()
	if justFinished && h.onEOS != nil {
		h.onEOS(h.Id)
	}
	return allDone
}

// run forwards decoded frames/samples into q until both present workers
// emit EOS or the input's own shutdown signal fires, marking q's
// bookkeeping for this input EOS once every track has finished. Started by
// Pipeline.RegisterInput and joined by Pipeline.UnregisterInput.
//
// Grounded on §5 "Each input and output owns a shutdown signal (a one-shot
// channel and an atomic flag)": ctx is a child of the pipeline's context,
// cancelled either by the pipeline stopping or by this input's own
// shutdown(), so one input can be force-unregistered without tearing down
// the whole pipeline or waiting on an upstream stream that may never EOS.
func (h *InputHandle) run(parent context.Context, q *queue.Queue) {
	var ctx context.Context
	ctx, h.cancel = context.WithCancel(parent)

	if h.video == nil && h.audio == nil {
		q.MarkWillNotDeliver(h.Id)
		return
	}

	if h.video != nil {
		h.wg.Add(1)
		go func() {
			defer h.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case ev, ok := <-h.video.Out():
					if !ok {
						return
					}
					f, isData := ev.Value()
					if !isData {
						if h.trackDone() {
							q.MarkEOS(h.Id)
						}
						return
					}
					q.PushFrame(h.Id, f)
				}
			}
		}()
	}
	if h.audio != nil {
		h.wg.Add(1)
		go func() {
			defer h.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case ev, ok := <-h.audio.Out():
					if !ok {
						return
					}
					s, isData := ev.Value()
					if !isData {
						if h.trackDone() {
							q.MarkEOS(h.Id)
						}
						return
					}
					q.PushAudio(h.Id, s)
				}
			}
		}()
	}
}

// shutdown fires this input's own cancellation signal, letting its
// forwarder goroutines exit even if neither worker has reached EOS yet.
// Safe to call multiple times or before run (e.g. an input that was never
// started because Pipeline hadn't been Start'd).
func (h *InputHandle) shutdown() {
	if h.cancel != nil {
		h.cancel()
	}
}

// wait blocks until every forwarder goroutine for this input has returned.
func (h *InputHandle) wait() { h.wg.Wait() }
