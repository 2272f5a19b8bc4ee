package clock

import "time"

// ntpEpochOffset is the number of seconds between the NTP epoch (1900-01-01)
// and the Unix epoch (1970-01-01).
const ntpEpochOffset = 2208988800

// RtpNtpSyncPoint converts an RTP sender report's (NTP timestamp, RTP
// timestamp) pair into a pipeline-clock offset for one input's track,
// implementing the RTCP-sender-report conversion rule described in §4.1
// and supplemented from compositor_pipeline/src/queue/utils.rs
// (original_source): when two RTP inputs both carry sender reports, their
// independent local clocks converge onto the same pipeline timeline
// because both anchor to wall-clock NTP time instead of arrival order.
type RtpNtpSyncPoint struct {
	// NtpSeconds/NtpFraction are the 64-bit NTP timestamp from the most
	// recent RTCP sender report (RFC 3550 §4).
	NtpSeconds  uint32
	NtpFraction uint32
	// RtpTimestamp is the RTP timestamp paired with that sender report.
	RtpTimestamp uint32
	// ClockRate is the media clock rate (e.g. 90000 for video, 48000 for
	// Opus) used to convert RTP timestamp deltas into durations.
	ClockRate uint32
}

// WallClock returns the wall-clock instant the sender report's NTP
// timestamp represents.
func (s RtpNtpSyncPoint) WallClock() time.Time {
	unixSeconds := int64(s.NtpSeconds) - ntpEpochOffset
	nanos := int64(float64(s.NtpFraction) / (1 << 32) * 1e9)
	return time.Unix(unixSeconds, nanos).UTC()
}

// MediaPtsAt converts an RTP timestamp on this track into a media pts
// Duration relative to this sync point's RtpTimestamp. Handles 32-bit
// wraparound the same way RTP timestamp comparisons always must: by
// treating the difference as a signed 32-bit value.
func (s RtpNtpSyncPoint) MediaPtsAt(rtpTimestamp uint32) time.Duration {
	if s.ClockRate == 0 {
		return 0
	}
	delta := int32(rtpTimestamp - s.RtpTimestamp)
	return time.Duration(float64(delta) / float64(s.ClockRate) * float64(time.Second))
}

// PipelineOffset returns the first-packet offset (§4.1) this sync point
// implies for a clock whose queue_sync_point occurred at pipelineStart:
// the sender report's own RTP timestamp, read as a media pts the same way
// the RTP receive path reads one (timestamp / clock rate), maps to the
// wall-clock instant the report describes, relative to pipelineStart.
func (s RtpNtpSyncPoint) PipelineOffset(pipelineStart time.Time) time.Duration {
	if s.ClockRate == 0 {
		return s.WallClock().Sub(pipelineStart)
	}
	srMediaPts := time.Duration(float64(s.RtpTimestamp) / float64(s.ClockRate) * float64(time.Second))
	return s.WallClock().Sub(pipelineStart) - srMediaPts
}
