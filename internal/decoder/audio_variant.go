package decoder

import (
	"fmt"
	"sync"
	"time"

	msdk "github.com/livekit/media-sdk"
	msdkrtp "github.com/livekit/media-sdk/rtp"
	"github.com/livekit/protocol/logger"
	"github.com/pion/rtp"

	"smelter/internal/frame"
)

// LiveKitAudioVariant wraps a github.com/livekit/media-sdk AudioCodec
// (Opus/AAC) as a Smelter AudioVariant, directly adapted from the
// teacher's BuildSipDecodeChain (bridge/pipeline/sip_decode.go): a
// DecodeRTP handler wrapped by the jitter handler, with no silence filler
// in the chain, feeding a
// pull-based Decode/Flush contract instead of the teacher's
// TG-playout-buffer push sink.
type LiveKitAudioVariant struct {
	codec       msdkrtp.AudioCodec
	payloadType uint8
	channels    int
	sampleRate  int
	clockRate   int

	chain msdkrtp.HandlerCloser

	mu      sync.Mutex
	pending []frame.InputAudioSamples
	nextSeq uint16
	nextTS  uint32
}

// pcmBufferSink is a msdk.PCM16Writer that appends decoded samples to a
// LiveKitAudioVariant's pending queue for Decode/Flush to drain.
type pcmBufferSink struct {
	v          *LiveKitAudioVariant
	startedPts time.Duration
	samplesOut int64
}

func (s *pcmBufferSink) String() string   { return "LiveKitAudioVariantSink" }
func (s *pcmBufferSink) SampleRate() int  { return s.v.sampleRate }

func (s *pcmBufferSink) WriteSample(sample msdk.PCM16Sample) error {
	channels := s.v.channels
	if channels < 1 {
		channels = 1
	}
	pts := s.startedPts + time.Duration(float64(s.samplesOut)/float64(channels)/float64(s.v.sampleRate)*float64(time.Second))
	out := make([]int16, len(sample))
	copy(out, sample)
	s.v.mu.Lock()
	s.v.pending = append(s.v.pending, frame.InputAudioSamples{
		StartPts:   pts,
		SampleRate: s.v.sampleRate,
		Channels:   channels,
		Samples:    out,
	})
	s.v.mu.Unlock()
	s.samplesOut += int64(len(sample))
	return nil
}

// NewLiveKitAudioVariant constructs an AudioVariant for one negotiated
// audio codec. Matches §4.2's "hard initialization failures ... abort
// input registration": a nil codec returns a DecoderInitError rather than
// a zero-value variant. No other construction check is made.
func NewLiveKitAudioVariant(codec msdkrtp.AudioCodec, payloadType uint8, channels int, log logger.Logger) (*LiveKitAudioVariant, error) {
	if codec == nil {
		return nil, &DecoderInitError{Variant: "livekit-audio", Err: fmt.Errorf("nil codec")}
	}
	info := codec.Info()
	v := &LiveKitAudioVariant{
		codec:       codec,
		payloadType: payloadType,
		channels:    channels,
		sampleRate:  info.SampleRate,
		clockRate:   info.RTPClockRate,
	}
	sink := &pcmBufferSink{v: v}
	var h msdkrtp.Handler = codec.DecodeRTP(sink, payloadType)
	hc := msdkrtp.NewNopCloser(h)
	v.chain = msdkrtp.HandleJitter(hc)
	return v, nil
}

func (v *LiveKitAudioVariant) Name() string {
	return fmt.Sprintf("livekit-audio(%s)", v.codec.Info().MimeType)
}

// Decode feeds one encoded chunk through the media-sdk decode chain as a
// synthetic RTP packet (sequence/timestamp derived from chunk.Pts, since
// Smelter's EncodedInputChunk is pts-addressed rather than RTP-header-
// addressed) and drains whatever PCM the chain produced.
func (v *LiveKitAudioVariant) Decode(chunk frame.EncodedInputChunk) ([]frame.InputAudioSamples, error) {
	v.mu.Lock()
	seq := v.nextSeq
	v.nextSeq++
	ts := uint32(chunk.Pts.Seconds() * float64(v.clockRate))
	v.mu.Unlock()

	header := &rtp.Header{
		Version:        2,
		PayloadType:    v.payloadType,
		SequenceNumber: seq,
		Timestamp:      ts,
	}
	if err := v.chain.HandleRTP(header, chunk.Payload); err != nil {
		return nil, err
	}
	return v.drain(), nil
}

func (v *LiveKitAudioVariant) Flush() []frame.InputAudioSamples {
	return v.drain()
}

func (v *LiveKitAudioVariant) drain() []frame.InputAudioSamples {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := v.pending
	v.pending = nil
	return out
}
