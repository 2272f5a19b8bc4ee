package stats

import (
	"sync"
	"sync/atomic"
	"time"
)

// Counters holds the atomic counters one input or output track
// accumulates over its lifetime, mirroring the forwarded/dropped/last-pts
// counters in other_examples/76fffe68_zsiec-prism's Pipeline struct.
type Counters struct {
	FramesIn      atomic.Int64
	FramesOut     atomic.Int64
	FramesDropped atomic.Int64
	BytesIn       atomic.Int64
	BytesOut      atomic.Int64
	Errors        atomic.Int64
	LastPtsMicros atomic.Int64
}

// Snapshot is a point-in-time copy of Counters suitable for JSON responses
// on GET /api/status.
type Snapshot struct {
	FramesIn      int64
	FramesOut     int64
	FramesDropped int64
	BytesIn       int64
	BytesOut      int64
	Errors        int64
	LastPts       time.Duration
}

// Snapshot reads all counters atomically (each field independently; the
// set is not a single atomic transaction, matching the teacher's
// PipelineDebug() which reads several independent atomics too).
func (c *Counters) Snapshot() Snapshot {
	return Snapshot{
		FramesIn:      c.FramesIn.Load(),
		FramesOut:     c.FramesOut.Load(),
		FramesDropped: c.FramesDropped.Load(),
		BytesIn:       c.BytesIn.Load(),
		BytesOut:      c.BytesOut.Load(),
		Errors:        c.Errors.Load(),
		LastPts:       time.Duration(c.LastPtsMicros.Load()) * time.Microsecond,
	}
}

// RecordIn updates ingest counters for one produced frame/chunk.
func (c *Counters) RecordIn(bytes int, pts time.Duration) {
	c.FramesIn.Add(1)
	c.BytesIn.Add(int64(bytes))
	c.LastPtsMicros.Store(pts.Microseconds())
}

// RecordOut updates egress counters for one emitted frame/chunk.
func (c *Counters) RecordOut(bytes int) {
	c.FramesOut.Add(1)
	c.BytesOut.Add(int64(bytes))
}

// Registry collects Counters per track id under one per-metric mutex,
// assembled-on-demand, matching §5's "sliding-window reports are
// assembled on demand under a per-metric mutex".
type Registry struct {
	mu       sync.Mutex
	counters map[string]*Counters
}

// NewRegistry creates an empty counters registry.
func NewRegistry() *Registry {
	return &Registry{counters: map[string]*Counters{}}
}

// For returns the Counters for id, creating it on first use.
func (r *Registry) For(id string) *Counters {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.counters[id]
	if !ok {
		c = &Counters{}
		r.counters[id] = c
	}
	return c
}

// Remove drops the counters for id (called on unregister; §8 property 5
// requires the registry to return to its prior state).
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.counters, id)
}

// SnapshotAll returns a copy of every tracked id's snapshot.
func (r *Registry) SnapshotAll() map[string]Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]Snapshot, len(r.counters))
	for id, c := range r.counters {
		out[id] = c.Snapshot()
	}
	return out
}
