package audiomixer

import (
	"github.com/tphakala/go-audio-resampler/resampler"
)

// Resampler converts PCM16 mono/interleaved audio between sample rates for
// the mixer's final stage (§4.6 "resampling to the encoder's sample rate").
// The teacher lists go-audio-resampler as a direct dependency without
// exercising it directly (it reaches msdk.ResampleWriter instead); here it
// gets a concrete home on Smelter's mixer output path.
type Resampler struct {
	r          *resampler.Resampler
	fromRate   int
	toRate     int
}

// NewResampler builds a Resampler from fromRate to toRate. If the rates
// match, Resample is a no-op passthrough.
func NewResampler(fromRate, toRate int) (*Resampler, error) {
	if fromRate == toRate {
		return &Resampler{fromRate: fromRate, toRate: toRate}, nil
	}
	r, err := resampler.New(fromRate, toRate, resampler.QualityMedium)
	if err != nil {
		return nil, err
	}
	return &Resampler{r: r, fromRate: fromRate, toRate: toRate}, nil
}

// Resample converts in (PCM16, interleaved at fromRate) to toRate.
func (s *Resampler) Resample(in []int16) []int16 {
	if s.r == nil {
		out := make([]int16, len(in))
		copy(out, in)
		return out
	}
	floatsIn := make([]float32, len(in))
	for i, v := range in {
		floatsIn[i] = float32(v) / 32768.0
	}
	floatsOut := s.r.Process(floatsIn)
	out := make([]int16, len(floatsOut))
	for i, v := range floatsOut {
		out[i] = clampInt16(int32(v * 32768.0))
	}
	return out
}
