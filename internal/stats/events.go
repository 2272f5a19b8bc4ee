// Package stats implements the pipeline's event bus and sliding-window
// counters (§2 Stats/Events, §7 "user-visible failures appear as ...
// events on the event websocket").
//
// Grounded on the teacher's periodic stats logging in
// bridge/media_bridge.go (stall/underflow/drift warnings emitted on a
// timer) and on other_examples/76fffe68_zsiec-prism's atomic forwarding
// counters plus Snapshot() method shape.
package stats

import (
	"log/slog"
	"sync"
	"time"
)

// EventKind tags the lifecycle/error events emitted on the bus (§7).
type EventKind string

const (
	EventInputRegistered   EventKind = "input_registered"
	EventInputUnregistered EventKind = "input_unregistered"
	EventOutputRegistered  EventKind = "output_registered"
	EventOutputUnregistered EventKind = "output_unregistered"
	EventQueueStall        EventKind = "queue_stall"
	EventQueueStallResolved EventKind = "queue_stall_resolved"
	EventRequiredDowngraded EventKind = "required_input_downgraded"
	EventSceneUpdated      EventKind = "scene_updated"
	EventKeyframeRequested EventKind = "keyframe_requested"
	EventOutputEOS         EventKind = "output_eos"
	EventError             EventKind = "error"
)

// Event is one entry on the event bus, matching PipelineEvent::Error's
// shape from §7 generalized to every lifecycle event kind.
type Event struct {
	Kind      EventKind
	InputId   string
	OutputId  string
	Message   string
	Err       error
	Timestamp time.Time
}

// Bus fans lifecycle/error events out to subscribers (e.g. the control
// API's GET /api/ws) and always logs them, so no error is ever silently
// swallowed per §7.
type Bus struct {
	log *slog.Logger

	mu   sync.Mutex
	subs map[int]chan Event
	next int
}

// NewBus creates an event bus. If log is nil, slog.Default() is used.
func NewBus(log *slog.Logger) *Bus {
	if log == nil {
		log = slog.Default()
	}
	return &Bus{log: log, subs: map[int]chan Event{}}
}

// Subscribe registers a new subscriber and returns a channel of events plus
// an unsubscribe function. The channel is buffered; slow subscribers drop
// events rather than blocking the publisher (the hot path must never
// stall on a websocket client).
func (b *Bus) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 64
	}
	ch := make(chan Event, buffer)
	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = ch
	b.mu.Unlock()

	unsub := func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
		close(ch)
	}
	return ch, unsub
}

// Publish logs the event at an appropriate level and fans it out to
// subscribers without blocking.
func (b *Bus) Publish(e Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	attrs := []any{"kind", e.Kind}
	if e.InputId != "" {
		attrs = append(attrs, "input_id", e.InputId)
	}
	if e.OutputId != "" {
		attrs = append(attrs, "output_id", e.OutputId)
	}
	if e.Message != "" {
		attrs = append(attrs, "message", e.Message)
	}
	if e.Err != nil {
		attrs = append(attrs, "error", e.Err)
	}
	switch e.Kind {
	case EventError, EventQueueStall, EventRequiredDowngraded:
		b.log.Warn("pipeline event", attrs...)
	default:
		b.log.Info("pipeline event", attrs...)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
			// Drop on a full subscriber channel; the subscriber is behind
			// and the bus must not backpressure the data plane.
		}
	}
}
