package encoder

import (
	"fmt"
	"sync"
	"time"

	msdk "github.com/livekit/media-sdk"
	msdkrtp "github.com/livekit/media-sdk/rtp"
	"github.com/pion/rtp"

	"smelter/internal/frame"
)

// LiveKitAudioVariant wraps a github.com/livekit/media-sdk AudioCodec
// (Opus/AAC) as a Smelter AudioVariant, the encode-side counterpart of
// decoder.LiveKitAudioVariant, grounded on the teacher's
// BuildSipEncodePipeline (bridge/pipeline/sip_encode.go): an
// msdkrtp.SeqWriter wrapping a raw RTP sink, feeding a PCM16Writer chain
// built by codec.EncodeRTP and resampled by msdk.ResampleWriter. The
// teacher's sink is a diago/SIP media.RTPWriter; Smelter has no SIP role
// (see the dropped-dependency note in the design ledger), so the sink here
// collects raw RTP packets into EncodedOutputChunks instead.
type LiveKitAudioVariant struct {
	codec       msdkrtp.AudioCodec
	payloadType uint8
	sourceRate  int

	writer msdk.PCM16Writer
	sink   *chunkSink
}

// chunkSink implements the raw-RTP write interface msdkrtp.NewSeqWriter
// expects, buffering one EncodedOutputChunk per RTP packet written.
type chunkSink struct {
	clockRate int

	mu      sync.Mutex
	pending []frame.EncodedOutputChunk
}

func (s *chunkSink) String() string { return "EncoderChunkSink" }

func (s *chunkSink) WriteRTP(h *rtp.Header, payload []byte) (int, error) {
	out := make([]byte, len(payload))
	copy(out, payload)
	pts := time.Duration(float64(h.Timestamp) / float64(s.clockRate) * float64(time.Second))
	s.mu.Lock()
	s.pending = append(s.pending, frame.EncodedOutputChunk{Payload: out, Pts: pts})
	s.mu.Unlock()
	return len(payload), nil
}

func (s *chunkSink) drain() []frame.EncodedOutputChunk {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.pending
	s.pending = nil
	return out
}

// NewLiveKitAudioVariant constructs an AudioVariant for one negotiated audio
// codec (§4.8 "encoder worker ... per output track"). A nil codec is a
// construction-time configuration error (§4.8 EncoderInitError).
func NewLiveKitAudioVariant(codec msdkrtp.AudioCodec, payloadType uint8, sourceRate int) (*LiveKitAudioVariant, error) {
	if codec == nil {
		return nil, &EncoderInitError{Variant: "livekit-audio", Err: fmt.Errorf("nil codec")}
	}
	info := codec.Info()
	sink := &chunkSink{clockRate: info.RTPClockRate}
	seq := msdkrtp.NewSeqWriter(sink)
	stream := seq.NewStream(payloadType, info.RTPClockRate)

	out := codec.EncodeRTP(stream)
	if sourceRate <= 0 {
		sourceRate = info.SampleRate
	}
	out = msdk.ResampleWriter(out, sourceRate)

	return &LiveKitAudioVariant{codec: codec, payloadType: payloadType, sourceRate: sourceRate, writer: out, sink: sink}, nil
}

func (v *LiveKitAudioVariant) Name() string {
	return fmt.Sprintf("livekit-audio(%s)", v.codec.Info().MimeType)
}

// Encode feeds one PCM batch through the media-sdk encode chain and
// returns the resulting packet as a single EncodedOutputChunk (one Opus/AAC
// frame maps to one RTP packet for these codecs).
func (v *LiveKitAudioVariant) Encode(s frame.InputAudioSamples) (frame.EncodedOutputChunk, error) {
	if err := v.writer.WriteSample(s.Samples); err != nil {
		return frame.EncodedOutputChunk{}, err
	}
	chunks := v.sink.drain()
	if len(chunks) == 0 {
		// The codec buffered internally without emitting a packet yet
		// (e.g. waiting for a full Opus frame); nothing to return this call.
		return frame.EncodedOutputChunk{}, nil
	}
	return chunks[0], nil
}

func (v *LiveKitAudioVariant) Flush() []frame.EncodedOutputChunk {
	return v.sink.drain()
}
