package decoder

import (
	"sync/atomic"
	"time"
)

// DTXGapDetector detects RTP timestamp discontinuities caused by silence
// suppression (DTX) so the decode chain can synthesize silence instead of
// a playback glitch. Adapted nearly verbatim from the teacher's
// bridge/pipeline/silence_filler.go (isSilenceSuppression), generalized
// from a fixed 20ms media-sdk frame assumption to an injected
// samplesPerFrame so it applies to any audio variant's frame size.
type DTXGapDetector struct {
	samplesPerFrame uint32
	maxGapFrames    int

	lastSeq atomic.Uint64
	lastTS  atomic.Uint64
	packets atomic.Uint64
}

// NewDTXGapDetector constructs a detector for one RTP audio stream.
// maxGapFrames caps how many missing frames are treated as DTX rather
// than a stream reset (the teacher's maxGapSize, default 25).
func NewDTXGapDetector(samplesPerFrame uint32, maxGapFrames int) *DTXGapDetector {
	if maxGapFrames <= 0 {
		maxGapFrames = 25
	}
	return &DTXGapDetector{samplesPerFrame: samplesPerFrame, maxGapFrames: maxGapFrames}
}

// Observe records one arriving packet's sequence number and RTP timestamp
// and reports whether it looks like a DTX gap (no sequence gap, but a
// multi-frame timestamp jump) plus how many frames were skipped.
func (d *DTXGapDetector) Observe(seq uint16, ts uint32) (isDTX bool, missingFrames int) {
	packets := d.packets.Add(1)
	lastSeq := uint16(d.lastSeq.Swap(uint64(seq)))
	lastTS := uint32(d.lastTS.Swap(uint64(ts)))
	if packets == 1 {
		return false, 0
	}

	expectedSeq := lastSeq + 1
	expectedTS := lastTS + d.samplesPerFrame

	if seq != expectedSeq {
		return false, 0
	}
	if d.samplesPerFrame == 0 {
		return false, 0
	}

	tsDiff := int32(ts - expectedTS)
	missing := int(tsDiff) / int(d.samplesPerFrame)
	if missing <= 0 {
		return false, 0
	}
	return true, missing
}

// ShouldFillWithSilence reports whether missingFrames is small enough to
// synthesize (rather than ignore as a probable stream reset/renumbering).
func (d *DTXGapDetector) ShouldFillWithSilence(missingFrames int) bool {
	return missingFrames > 0 && missingFrames <= d.maxGapFrames
}

// FrameDuration returns the wall-clock duration one frame of
// samplesPerFrame represents at the given clock rate.
func (d *DTXGapDetector) FrameDuration(clockRateHz int) time.Duration {
	if clockRateHz <= 0 || d.samplesPerFrame == 0 {
		return 0
	}
	return time.Duration(float64(d.samplesPerFrame) / float64(clockRateHz) * float64(time.Second))
}
