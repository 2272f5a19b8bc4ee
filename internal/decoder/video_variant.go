package decoder

import (
	"fmt"

	"smelter/internal/frame"
)

// FrameDecodeFunc is the external-collaborator boundary for one video
// codec's decode step (§1 excludes codec internals — FFmpeg/Vulkan Video
// are not implemented here). It may return zero frames for a chunk that
// only updates internal decoder state (e.g. an SPS/PPS NAL with no
// picture), and may buffer reference frames internally.
type FrameDecodeFunc func(chunk frame.EncodedInputChunk) ([]frame.Frame, error)

// genericVideoVariant adapts an injected FrameDecodeFunc into a
// VideoVariant for one of the closed set of codecs named in §6
// (H.264/VP8/VP9). The dispatch is fixed at construction: each call site
// picks exactly one constructor (NewH264Variant, NewVP8Variant,
// NewVP9Variant) and the resulting Variant never changes codec for the
// life of the worker (§9).
type genericVideoVariant struct {
	name   string
	decode FrameDecodeFunc
	resolution frame.Resolution

	buffered []frame.Frame
}

func (v *genericVideoVariant) Name() string { return v.name }

func (v *genericVideoVariant) Decode(chunk frame.EncodedInputChunk) ([]frame.Frame, error) {
	frames, err := v.decode(chunk)
	if err != nil {
		return nil, fmt.Errorf("%s decode: %w", v.name, err)
	}
	return frames, nil
}

func (v *genericVideoVariant) Flush() []frame.Frame {
	out := v.buffered
	v.buffered = nil
	return out
}

// NewH264Variant constructs the H.264 video decode variant. decodeFn must
// not be nil; a nil decode function is a construction-time configuration
// error (§4.2 DecoderInitError), never a runtime nil-pointer panic.
func NewH264Variant(decodeFn FrameDecodeFunc) (*genericVideoVariant, error) {
	return newGenericVideoVariant("h264", decodeFn)
}

// NewVP8Variant constructs the VP8 video decode variant.
func NewVP8Variant(decodeFn FrameDecodeFunc) (*genericVideoVariant, error) {
	return newGenericVideoVariant("vp8", decodeFn)
}

// NewVP9Variant constructs the VP9 video decode variant.
func NewVP9Variant(decodeFn FrameDecodeFunc) (*genericVideoVariant, error) {
	return newGenericVideoVariant("vp9", decodeFn)
}

func newGenericVideoVariant(name string, decodeFn FrameDecodeFunc) (*genericVideoVariant, error) {
	if decodeFn == nil {
		return nil, &DecoderInitError{Variant: name, Err: fmt.Errorf("no decode function configured")}
	}
	return &genericVideoVariant{name: name, decode: decodeFn}, nil
}
