package payload

import (
	"time"

	"smelter/internal/frame"
)

// HLSSegmenter decides segment boundaries per §4.9: "a new segment starts
// at each keyframe or at the configured segment length, whichever gives a
// valid boundary" — i.e. a segment never starts mid-GOP; it waits for the
// next keyframe at or after the target length.
type HLSSegmenter struct {
	targetLength time.Duration

	segmentStart time.Duration
	started      bool
}

// NewHLSSegmenter targets segments of approximately targetLength.
func NewHLSSegmenter(targetLength time.Duration) *HLSSegmenter {
	return &HLSSegmenter{targetLength: targetLength}
}

// ShouldStartSegment reports whether chunk should begin a new HLS segment.
// Non-keyframe chunks never start a segment even past the target length,
// since fMP4/TS segments must start on a keyframe to be independently
// playable.
func (s *HLSSegmenter) ShouldStartSegment(chunk frame.EncodedOutputChunk) bool {
	if !s.started {
		s.started = true
		s.segmentStart = chunk.Pts
		return true
	}
	if !chunk.IsKeyframe {
		return false
	}
	if chunk.Pts-s.segmentStart >= s.targetLength {
		s.segmentStart = chunk.Pts
		return true
	}
	return false
}

// Muxer is the external-collaborator boundary for container formats whose
// framing this repo does not implement (MP4 boxes, FLV tags, TS packets):
// §1 excludes container/muxer internals from scope.
type Muxer interface {
	WriteChunk(chunk frame.EncodedOutputChunk) error
	Close() error
}
