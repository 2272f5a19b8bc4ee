package encoder

import "smelter/internal/frame"

// vulkanVideoCompiledIn mirrors decoder.vulkanVideoCompiledIn: Vulkan Video
// hardware encode is out of scope for this build (§1), so it is always
// false here.
const vulkanVideoCompiledIn = false

// VulkanH264FallbackVariant is the encode-side "must never be called"
// contract, symmetric with decoder.VulkanH264FallbackVariant.
type VulkanH264FallbackVariant struct{}

// NewVulkanH264Variant always fails construction while Vulkan Video support
// is not compiled in (§4.8/§6).
func NewVulkanH264Variant() (*VulkanH264FallbackVariant, error) {
	if vulkanVideoCompiledIn {
		return &VulkanH264FallbackVariant{}, nil
	}
	return nil, &EncoderInitError{Variant: "vulkan-h264", Err: ErrNotCompiledIn}
}

// ErrNotCompiledIn is the sentinel error feature-gated components report at
// registration time (§6).
var ErrNotCompiledIn = notCompiledInError{}

type notCompiledInError struct{}

func (notCompiledInError) Error() string { return "not compiled in" }

func (*VulkanH264FallbackVariant) Name() string { return "vulkan-h264-fallback" }

func (*VulkanH264FallbackVariant) Encode(frame.Frame, bool) (frame.EncodedOutputChunk, error) {
	panic("vulkan-h264 fallback variant must never be called: construction always fails first")
}

func (*VulkanH264FallbackVariant) Flush() []frame.EncodedOutputChunk {
	panic("vulkan-h264 fallback variant must never be called: construction always fails first")
}
