package transport

import (
	"github.com/pion/rtcp"
)

// KeyframeRequester mirrors encoder/decoder.KeyframeRequester, surfaced
// here as the point where a downstream RTCP PLI becomes an upstream
// keyframe request (§4.2/§4.8: "e.g. RTCP PLI").
type KeyframeRequester interface {
	RequestKeyframe()
}

// HandleRTCP inspects incoming RTCP packets for a PictureLossIndication or
// FullIntraRequest addressed to mediaSSRC and forwards it to requester.
// Other RTCP packet types (receiver reports, REMB, etc.) are ignored here;
// they belong to congestion control, out of scope per §1.
func HandleRTCP(pkts []rtcp.Packet, mediaSSRC uint32, requester KeyframeRequester) {
	for _, pkt := range pkts {
		switch p := pkt.(type) {
		case *rtcp.PictureLossIndication:
			if p.MediaSSRC == mediaSSRC {
				requester.RequestKeyframe()
			}
		case *rtcp.FullIntraRequest:
			for _, entry := range p.FIR {
				if entry.SSRC == mediaSSRC {
					requester.RequestKeyframe()
				}
			}
		}
	}
}
