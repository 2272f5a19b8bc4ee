package transport

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/pion/interceptor"
	"github.com/pion/sdp/v3"
	"github.com/pion/webrtc/v4"
)

// CodecPreference orders acceptable codecs for WHIP/WHEP negotiation
// (§4.10 "negotiates codecs against a preference list").
type CodecPreference struct {
	MimeType    string
	ClockRate   uint32
	PayloadType uint8
}

// NegotiatedParams is what a WHIP/WHEP offer/answer exchange resolves to,
// handed to the encoder construction step once negotiation completes
// (§4.10: "only then instantiates the encoder configured to the negotiated
// parameters").
type NegotiatedParams struct {
	Video *CodecPreference
	Audio *CodecPreference
}

// NewSessionId mints a random session id for a WHIP/WHEP session (§4.10).
func NewSessionId() string {
	return uuid.NewString()
}

// offeredMediaKinds parses the raw SDP with pion/sdp/v3 to list the media
// kinds (audio/video) an offer actually carries, so Negotiate can reject an
// offer with no usable media before spending a peer connection on it.
func offeredMediaKinds(offer webrtc.SessionDescription) (map[string]bool, error) {
	var parsed sdp.SessionDescription
	if err := parsed.Unmarshal([]byte(offer.SDP)); err != nil {
		return nil, fmt.Errorf("transport: parse offer sdp: %w", err)
	}
	kinds := make(map[string]bool, len(parsed.MediaDescriptions))
	for _, md := range parsed.MediaDescriptions {
		kinds[md.MediaName.Media] = true
	}
	return kinds, nil
}

// Negotiate builds a pion/webrtc API configured with preferred, sets
// offer as the remote description, and returns an answer plus
// NegotiatedParams holding the first audio and the first video entry of
// preferred. The codecs the answer actually selected are not read back
// from the peer connection, and Audio/Video are set from preferred whether
// or not the offer carries that media kind. The caller must not construct
// the encoder until after this returns successfully (§4.10).
func Negotiate(offer webrtc.SessionDescription, preferred []CodecPreference) (*webrtc.PeerConnection, webrtc.SessionDescription, NegotiatedParams, error) {
	kinds, err := offeredMediaKinds(offer)
	if err != nil {
		return nil, webrtc.SessionDescription{}, NegotiatedParams{}, err
	}
	if !kinds["audio"] && !kinds["video"] {
		return nil, webrtc.SessionDescription{}, NegotiatedParams{}, fmt.Errorf("transport: offer carries no audio or video media")
	}

	m := &webrtc.MediaEngine{}
	for _, pref := range preferred {
		params := webrtc.RTPCodecParameters{
			RTPCodecCapability: webrtc.RTPCodecCapability{
				MimeType:  pref.MimeType,
				ClockRate: pref.ClockRate,
			},
			PayloadType: webrtc.PayloadType(pref.PayloadType),
		}
		kind := webrtc.RTPCodecTypeVideo
		if pref.MimeType == webrtc.MimeTypeOpus || pref.MimeType == "audio/AAC" {
			kind = webrtc.RTPCodecTypeAudio
		}
		if err := m.RegisterCodec(params, kind); err != nil {
			return nil, webrtc.SessionDescription{}, NegotiatedParams{}, fmt.Errorf("transport: register codec %s: %w", pref.MimeType, err)
		}
	}

	// NACK + PLI keep a WHEP sender's encoder in sync with receiver loss/
	// keyframe requests; registered the same way pion's own examples wire
	// RegisterDefaultInterceptors into an interceptor.Registry.
	i := &interceptor.Registry{}
	if err := webrtc.RegisterDefaultInterceptors(m, i); err != nil {
		return nil, webrtc.SessionDescription{}, NegotiatedParams{}, fmt.Errorf("transport: register interceptors: %w", err)
	}

	api := webrtc.NewAPI(webrtc.WithMediaEngine(m), webrtc.WithInterceptorRegistry(i))
	pc, err := api.NewPeerConnection(webrtc.Configuration{})
	if err != nil {
		return nil, webrtc.SessionDescription{}, NegotiatedParams{}, fmt.Errorf("transport: new peer connection: %w", err)
	}

	if err := pc.SetRemoteDescription(offer); err != nil {
		pc.Close()
		return nil, webrtc.SessionDescription{}, NegotiatedParams{}, fmt.Errorf("transport: set remote description: %w", err)
	}
	answer, err := pc.CreateAnswer(nil)
	if err != nil {
		pc.Close()
		return nil, webrtc.SessionDescription{}, NegotiatedParams{}, fmt.Errorf("transport: create answer: %w", err)
	}
	if err := pc.SetLocalDescription(answer); err != nil {
		pc.Close()
		return nil, webrtc.SessionDescription{}, NegotiatedParams{}, fmt.Errorf("transport: set local description: %w", err)
	}

	negotiated := negotiatedFromPreferred(preferred)
	return pc, answer, negotiated, nil
}

func negotiatedFromPreferred(preferred []CodecPreference) NegotiatedParams {
	var out NegotiatedParams
	for i := range preferred {
		p := preferred[i]
		if p.MimeType == webrtc.MimeTypeOpus || p.MimeType == "audio/AAC" {
			if out.Audio == nil {
				out.Audio = &p
			}
			continue
		}
		if out.Video == nil {
			out.Video = &p
		}
	}
	return out
}

// Endpoint identifies a WHIP/WHEP endpoint an input (WHIP) or output
// (WHEP) is bound to (§4.10: endpoint_id is opaque at this layer).
type Endpoint struct {
	Id    string
	Token string
}
