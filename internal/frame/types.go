package frame

import "time"

// Resolution is a video frame's pixel dimensions.
type Resolution struct {
	Width  int
	Height int
}

// PixelFormat tags the planar layout of a decoded video Frame.
type PixelFormat int

const (
	PixelFormatYUV420P PixelFormat = iota
	PixelFormatNV12
	PixelFormatRGBA
	// PixelFormatGPUTexture marks Frame.Texture as authoritative instead of
	// Planes; used by GPU-resident decoders (Vulkan Video) per §3.
	PixelFormatGPUTexture
)

// VideoCodec tags the encoded format of a video EncodedInputChunk /
// EncodedOutputChunk, and selects the decoder/encoder variant (§4.2, §4.9,
// §6).
type VideoCodec int

const (
	VideoCodecH264 VideoCodec = iota
	VideoCodecVP8
	VideoCodecVP9
	VideoCodecVulkanH264
)

func (c VideoCodec) String() string {
	switch c {
	case VideoCodecH264:
		return "h264"
	case VideoCodecVP8:
		return "vp8"
	case VideoCodecVP9:
		return "vp9"
	case VideoCodecVulkanH264:
		return "vulkan-h264"
	default:
		return "unknown"
	}
}

// AudioCodec tags the encoded format of an audio EncodedInputChunk /
// EncodedOutputChunk (§6).
type AudioCodec int

const (
	AudioCodecOpus AudioCodec = iota
	AudioCodecAAC
)

func (c AudioCodec) String() string {
	switch c {
	case AudioCodecOpus:
		return "opus"
	case AudioCodecAAC:
		return "aac"
	default:
		return "unknown"
	}
}

// GPUTextureHandle is an opaque reference to a GPU-resident frame. The
// renderer's GPU backend is an external collaborator (§1); Smelter only
// carries the handle it was given.
type GPUTextureHandle struct {
	Backend string
	Handle  uintptr
}

// Frame is a decoded video frame: a pipeline-clock pts plus either planar
// pixel data or a GPU texture handle (§3). Created by exactly one decoder,
// consumed by exactly one renderer tick, never retained across ticks.
type Frame struct {
	Pts        time.Duration
	Resolution Resolution
	Format     PixelFormat

	// Planes holds one []byte per plane (Y, U, V, ...) when Format is not
	// PixelFormatGPUTexture.
	Planes [][]byte
	// Strides holds the row stride of each plane, parallel to Planes.
	Strides []int

	// Texture is authoritative when Format == PixelFormatGPUTexture.
	Texture GPUTextureHandle
}

// InputAudioSamples is a contiguous mono or stereo PCM16 batch (§3).
// Immutable once produced; EndPts is derived from StartPts + sample count.
type InputAudioSamples struct {
	StartPts   time.Duration
	SampleRate int
	Channels   int
	// Samples is interleaved PCM16 (int16) data.
	Samples []int16
}

// EndPts derives the exclusive end timestamp of this batch from its
// sample count and rate, per §3 ("end_pts is derived").
func (s InputAudioSamples) EndPts() time.Duration {
	if s.SampleRate <= 0 || s.Channels <= 0 {
		return s.StartPts
	}
	frames := len(s.Samples) / s.Channels
	dur := time.Duration(float64(frames) / float64(s.SampleRate) * float64(time.Second))
	return s.StartPts + dur
}

// Overlaps reports whether this batch's [StartPts, EndPts) range overlaps
// the half-open range [from, to), used by the audio tick (§4.4) to collect
// contributing samples.
func (s InputAudioSamples) Overlaps(from, to time.Duration) bool {
	return s.StartPts < to && s.EndPts() > from
}

// EncodedInputChunk is an opaque byte payload produced by a transport
// receiver and consumed by a decoder worker (§3).
type EncodedInputChunk struct {
	Payload    []byte
	Pts        time.Duration
	Dts        *time.Duration
	VideoCodec *VideoCodec
	AudioCodec *AudioCodec
}

// EncodedOutputChunk is an opaque byte payload produced by an encoder
// worker and consumed by a payloader (§3).
type EncodedOutputChunk struct {
	Payload     []byte
	Pts         time.Duration
	Dts         *time.Duration
	VideoCodec  *VideoCodec
	AudioCodec  *AudioCodec
	IsKeyframe  bool
}
