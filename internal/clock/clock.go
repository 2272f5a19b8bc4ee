// Package clock implements the single monotonic pipeline clock (§4.1):
// a queue_sync_point captured at Pipeline.Start, plus the first-packet
// offset rule each input uses to convert its own media pts into pipeline
// pts.
package clock

import (
	"sync"
	"time"
)

// Clock is the process-wide monotonic pipeline clock. It is created once
// per pipeline and shared across goroutines; an RWMutex guards the start
// instant, so Start and the readers may run concurrently.
type Clock struct {
	mu      sync.RWMutex
	started bool
	start   time.Time
}

// New returns a Clock that has not yet been started.
func New() *Clock {
	return &Clock{}
}

// Start captures queue_sync_point. Calling Start more than once is a no-op;
// the first call wins, matching Pipeline::start being idempotent per spec.
func (c *Clock) Start() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.started {
		c.start = time.Now()
		c.started = true
	}
	return c.start
}

// StartTime returns queue_sync_point, or the zero Time if Start has not
// been called yet.
func (c *Clock) StartTime() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.start
}

// Started reports whether Start has been called.
func (c *Clock) Started() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.started
}

// Elapsed returns the pipeline-relative duration since queue_sync_point.
// Returns 0 if the clock has not started yet.
func (c *Clock) Elapsed() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.started {
		return 0
	}
	return time.Since(c.start)
}

// PipelineTime converts a wall-clock instant into a pipeline-relative
// duration. Instants before queue_sync_point return 0 (clamped), matching
// the "buffered until t=0" boundary behavior in §8.
func (c *Clock) PipelineTime(at time.Time) time.Duration {
	c.mu.RLock()
	start := c.start
	started := c.started
	c.mu.RUnlock()
	if !started {
		return 0
	}
	d := at.Sub(start)
	if d < 0 {
		return 0
	}
	return d
}

// FirstPacketOffset computes the fixed offset added to every subsequent
// media pts of one input, per §4.1:
//
//   - If an explicit offset was configured, the offset is chosen so the
//     first frame lands exactly at that configured pipeline pts.
//   - Otherwise the first decoded frame is placed "now": offset =
//     elapsed-since-sync-point minus the frame's own media pts, clamped to
//     >= 0.
func FirstPacketOffset(explicitOffset *time.Duration, elapsedAtArrival time.Duration, firstFrameMediaPts time.Duration) time.Duration {
	if explicitOffset != nil {
		return *explicitOffset - firstFrameMediaPts
	}
	offset := elapsedAtArrival - firstFrameMediaPts
	if offset < 0 {
		offset = 0
	}
	return offset
}
