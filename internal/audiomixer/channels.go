package audiomixer

// ConvertChannels adapts the teacher's PCM16ConvertChannels
// (bridge/pcm/pcm16_helpers.go) to work directly on interleaved []int16
// rather than media-sdk's PCM16Sample alias, since the mixer operates on
// frame.InputAudioSamples.Samples.
func ConvertChannels(src []int16, inCh, outCh int) []int16 {
	if inCh <= 0 {
		inCh = 1
	}
	if outCh <= 0 {
		outCh = 1
	}
	if inCh == outCh {
		dst := make([]int16, len(src))
		copy(dst, src)
		return dst
	}
	if inCh == 2 && outCh == 1 {
		n := len(src) / 2
		dst := make([]int16, n)
		for i := 0; i < n; i++ {
			l := int32(src[i*2])
			r := int32(src[i*2+1])
			dst[i] = int16((l + r) / 2)
		}
		return dst
	}
	if inCh == 1 && outCh == 2 {
		dst := make([]int16, len(src)*2)
		for i, v := range src {
			dst[i*2] = v
			dst[i*2+1] = v
		}
		return dst
	}
	// Fallback for anything beyond mono/stereo: duplicate channel 0.
	frames := len(src) / inCh
	dst := make([]int16, frames*outCh)
	for f := 0; f < frames; f++ {
		v := src[f*inCh]
		for c := 0; c < outCh; c++ {
			dst[f*outCh+c] = v
		}
	}
	return dst
}
