// Package payload implements the payloader stage (§4.9): fragmenting
// EncodedOutputChunks into transport units. The RTP payloader is
// concretely implemented; FLV/MP4 framing and HLS segment I/O are external
// collaborator boundaries (§1 excludes container/muxer internals), but the
// HLS keyframe-or-length segment-boundary rule is concrete enough (§4.9) to
// own directly.
//
// RTP packet construction is grounded on
// bridge/pipeline/rtp_adapter.go's diagoRTPWriterAdapter (build an
// rtp.Packet from a header and payload, write it out), generalized from
// "adapt one pre-built writer" to "build the header's PT/clock-rate/SSRC/
// sequence/timestamp fields directly", since Smelter has no SIP-stack
// RTPWriter to wrap.
package payload

import (
	"fmt"
	"time"

	"github.com/pion/rtp"

	"smelter/internal/frame"
)

// defaultMTU is §4.9's "MTU <= 1200 by default".
const defaultMTU = 1200

// RTPTrackConfig fixes one output track's wire parameters for the life of
// the payloader (§4.9: "one RTP timestamp per frame", "one SSRC per
// track").
type RTPTrackConfig struct {
	PayloadType uint8
	ClockRate   uint32
	SSRC        uint32
	MTU         int
}

// RTPPayloader fragments EncodedOutputChunks into RTP packets for one
// track.
type RTPPayloader struct {
	cfg RTPTrackConfig
	seq uint16

	hasLastPts bool
	lastPts    time.Duration
}

// NewRTPPayloader constructs a payloader for cfg. MTU <= 0 uses the
// default of 1200 bytes (§4.9).
func NewRTPPayloader(cfg RTPTrackConfig) *RTPPayloader {
	if cfg.MTU <= 0 {
		cfg.MTU = defaultMTU
	}
	return &RTPPayloader{cfg: cfg}
}

// Payload fragments one chunk into one or more RTP packets, preserving
// pts/dts monotonicity and incrementing the sequence number per packet
// (§4.9). The RTP timestamp is pts * clock_rate, shared by every fragment
// of one chunk (one timestamp per frame).
func (p *RTPPayloader) Payload(chunk frame.EncodedOutputChunk) ([]*rtp.Packet, error) {
	if p.hasLastPts && chunk.Pts < p.lastPts {
		return nil, fmt.Errorf("payload: pts went backwards (%v < %v)", chunk.Pts, p.lastPts)
	}
	p.hasLastPts = true
	p.lastPts = chunk.Pts

	ts := uint32(chunk.Pts.Seconds() * float64(p.cfg.ClockRate))

	mtu := p.cfg.MTU
	var packets []*rtp.Packet
	data := chunk.Payload
	for offset := 0; offset == 0 || offset < len(data); offset += mtu {
		end := offset + mtu
		if end > len(data) {
			end = len(data)
		}
		marker := end == len(data)
		packets = append(packets, &rtp.Packet{
			Header: rtp.Header{
				Version:        2,
				Marker:         marker,
				PayloadType:    p.cfg.PayloadType,
				SequenceNumber: p.seq,
				Timestamp:      ts,
				SSRC:           p.cfg.SSRC,
			},
			Payload: data[offset:end],
		})
		p.seq++
		if len(data) == 0 {
			break
		}
	}
	return packets, nil
}
