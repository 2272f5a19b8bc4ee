package encoder

import (
	"fmt"

	"smelter/internal/frame"
)

// FrameEncodeFunc is the external-collaborator boundary for one video
// codec's encode step (§1 excludes codec internals). forceKeyframe mirrors
// the same flag passed to VideoVariant.Encode.
type FrameEncodeFunc func(f frame.Frame, forceKeyframe bool) (frame.EncodedOutputChunk, error)

// genericVideoVariant adapts an injected FrameEncodeFunc into a
// VideoVariant for one of the closed set of codecs named in §6. Dispatch is
// fixed at construction, mirroring decoder.genericVideoVariant (§9).
type genericVideoVariant struct {
	name   string
	codec  frame.VideoCodec
	encode FrameEncodeFunc
}

func (v *genericVideoVariant) Name() string { return v.name }

func (v *genericVideoVariant) Encode(f frame.Frame, forceKeyframe bool) (frame.EncodedOutputChunk, error) {
	chunk, err := v.encode(f, forceKeyframe)
	if err != nil {
		return frame.EncodedOutputChunk{}, fmt.Errorf("%s encode: %w", v.name, err)
	}
	codec := v.codec
	chunk.VideoCodec = &codec
	return chunk, nil
}

// Flush: the closed-set codecs modeled here encode one chunk per frame with
// no internal reference reordering delay, so there is nothing to drain.
func (v *genericVideoVariant) Flush() []frame.EncodedOutputChunk { return nil }

// NewH264Variant constructs the H.264 video encode variant. encodeFn must
// not be nil; a nil encode function is a construction-time configuration
// error (§4.8 EncoderInitError).
func NewH264Variant(encodeFn FrameEncodeFunc) (*genericVideoVariant, error) {
	return newGenericVideoVariant("h264", frame.VideoCodecH264, encodeFn)
}

// NewVP8Variant constructs the VP8 video encode variant.
func NewVP8Variant(encodeFn FrameEncodeFunc) (*genericVideoVariant, error) {
	return newGenericVideoVariant("vp8", frame.VideoCodecVP8, encodeFn)
}

// NewVP9Variant constructs the VP9 video encode variant.
func NewVP9Variant(encodeFn FrameEncodeFunc) (*genericVideoVariant, error) {
	return newGenericVideoVariant("vp9", frame.VideoCodecVP9, encodeFn)
}

func newGenericVideoVariant(name string, codec frame.VideoCodec, encodeFn FrameEncodeFunc) (*genericVideoVariant, error) {
	if encodeFn == nil {
		return nil, &EncoderInitError{Variant: name, Err: fmt.Errorf("no encode function configured")}
	}
	return &genericVideoVariant{name: name, codec: codec, encode: encodeFn}, nil
}
