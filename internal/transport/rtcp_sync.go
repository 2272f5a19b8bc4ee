package transport

import (
	"github.com/pion/rtcp"

	"smelter/internal/clock"
)

// ExtractRtpSyncPoint scans pkts for a SenderReport and converts it into a
// clock.RtpNtpSyncPoint (§4.1: "RTP clocks are converted to pipeline time
// via NTP sender reports when available"). wantSSRC 0 matches the first
// sender report found, since a caller that has not yet learned an input's
// SSRC from its RTP stream still wants its first sender report honored.
func ExtractRtpSyncPoint(pkts []rtcp.Packet, wantSSRC uint32, clockRate uint32) (clock.RtpNtpSyncPoint, bool) {
	for _, pkt := range pkts {
		sr, ok := pkt.(*rtcp.SenderReport)
		if !ok {
			continue
		}
		if wantSSRC != 0 && sr.SSRC != wantSSRC {
			continue
		}
		return clock.RtpNtpSyncPoint{
			NtpSeconds:   uint32(sr.NTPTime >> 32),
			NtpFraction:  uint32(sr.NTPTime),
			RtpTimestamp: sr.RTPTime,
			ClockRate:    clockRate,
		}, true
	}
	return clock.RtpNtpSyncPoint{}, false
}
