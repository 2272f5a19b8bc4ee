package decoder

import "smelter/internal/frame"

// vulkanVideoCompiledIn is flipped by a build-tag-guarded file in a real build
// (omitted here: Vulkan Video is out of scope per §1); false means
// "Vulkan Video decode is not compiled into this binary", matching every
// environment this repo ships to.
const vulkanVideoCompiledIn = false

// VulkanH264FallbackVariant is the "must never be called" contract of
// §9: when hardware decode is unavailable at build or runtime,
// construction must fail, and the hot-path methods must panic if ever
// reached, rather than silently accept frames. Grounded on
// compositor_pipeline/src/pipeline/decoder/vulkan_h264_fallback.rs
// (original_source).
type VulkanH264FallbackVariant struct{}

// NewVulkanH264Variant always fails construction while Vulkan Video
// support is not compiled in, returning a DecoderInitError per §4.2/§6
// ("must report a clear not compiled in error at registration time,
// never silently succeed").
func NewVulkanH264Variant() (*VulkanH264FallbackVariant, error) {
	if vulkanVideoCompiledIn {
		// Unreachable in this build; kept symmetric with a real
		// feature-gated build where this branch would construct the real
		// hardware-backed variant instead.
		return &VulkanH264FallbackVariant{}, nil
	}
	return nil, &DecoderInitError{Variant: "vulkan-h264", Err: ErrNotCompiledIn}
}

// ErrNotCompiledIn is the sentinel error feature-gated components report
// at registration time (§6).
var ErrNotCompiledIn = notCompiledInError{}

type notCompiledInError struct{}

func (notCompiledInError) Error() string { return "not compiled in" }

func (*VulkanH264FallbackVariant) Name() string { return "vulkan-h264-fallback" }

func (*VulkanH264FallbackVariant) Decode(frame.EncodedInputChunk) ([]frame.Frame, error) {
	panic("vulkan-h264 fallback variant must never be called: construction always fails first")
}

func (*VulkanH264FallbackVariant) Flush() []frame.Frame {
	panic("vulkan-h264 fallback variant must never be called: construction always fails first")
}
