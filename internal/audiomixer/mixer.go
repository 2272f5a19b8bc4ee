// Package audiomixer implements the audio mixer tick (§4.6): per-output
// summation of input contributions, channel conversion, and resampling to
// the encoder's sample rate.
//
// Grounded on other_examples/4dc3fc89_flowpbx-flowpbx's media mixer
// (Mixer.mixCycle: sum contributing participants into an int32 buffer,
// clamp to int16 range) for the summation/clamp shape, generalized from
// flowpbx's fixed N-1 conference mix to Smelter's per-output MixingStrategy
// (sum_clip / sum_scale). Channel conversion reuses the teacher's
// bridge/pcm/pcm16_helpers.go PCM16ConvertChannels logic adapted to operate
// directly on []int16 rather than media-sdk's PCM16Sample alias.
package audiomixer

import (
	"smelter/internal/frame"
	"smelter/internal/ids"
)

// MixingStrategy selects how per-input contributions are combined (§4.6).
type MixingStrategy int

const (
	// MixSumClip saturates the sum to the int16 range.
	MixSumClip MixingStrategy = iota
	// MixSumScale divides the sum by the number of contributing inputs with
	// gain > 0.
	MixSumScale
)

// Input is one contributing input's batch plus its mixing gain.
type Input struct {
	ID      ids.InputId
	Samples frame.InputAudioSamples
	Gain    float64
}

// Mixer produces one 20ms output batch per tick for one output (§4.6).
// A Mixer is owned by exactly one output's tick loop (internal/pipeline's
// audioTickLoop runs one goroutine per output), so resamplers needs no
// locking of its own.
type Mixer struct {
	Strategy       MixingStrategy
	OutputRate     int
	OutputChannels int

	resamplers map[int]*Resampler
}

// New constructs a Mixer targeting outputRate/outputChannels.
func New(strategy MixingStrategy, outputRate, outputChannels int) *Mixer {
	if outputChannels < 1 {
		outputChannels = 1
	}
	return &Mixer{Strategy: strategy, OutputRate: outputRate, OutputChannels: outputChannels}
}

// Mix combines inputs into exactly one batch starting at t.StartPts,
// spanning 20ms worth of samples at the configured output rate/channels
// (§4.6: "must emit exactly one 20ms batch per tick per output"). A
// contribution shorter than the batch is padded with silence; a longer one
// is cut at the batch end.
func (m *Mixer) Mix(t frame.InputAudioSamples, inputs []Input) frame.InputAudioSamples {
	frameCount := m.OutputRate / 50 * m.OutputChannels
	conformed := make([][]int16, len(inputs))
	active := 0
	for i, in := range inputs {
		if in.Gain <= 0 {
			continue
		}
		mono := ConvertChannels(in.Samples.Samples, in.Samples.Channels, m.OutputChannels)
		mono = m.conformRate(mono, in.Samples.SampleRate)
		conformed[i] = mono
		active++
	}

	sum := make([]int32, frameCount)
	for i, in := range inputs {
		if conformed[i] == nil {
			continue
		}
		gain := inputs[i].Gain
		for s := 0; s < len(conformed[i]) && s < frameCount; s++ {
			sum[s] += int32(float64(conformed[i][s]) * gain)
		}
	}

	out := make([]int16, frameCount)
	switch m.Strategy {
	case MixSumScale:
		denom := active
		if denom < 1 {
			denom = 1
		}
		for i, v := range sum {
			out[i] = clampInt16(v / int32(denom))
		}
	default: // MixSumClip
		for i, v := range sum {
			out[i] = clampInt16(v)
		}
	}

	return frame.InputAudioSamples{
		StartPts:   t.StartPts,
		SampleRate: m.OutputRate,
		Channels:   m.OutputChannels,
		Samples:    out,
	}
}

// conformRate resamples mono to the mixer's output rate when the batch
// declares a different sample rate (§4.6 "resampling to the encoder's
// sample rate"). A batch with sampleRate <= 0 (unknown, or already produced
// at the output rate) passes through unchanged.
func (m *Mixer) conformRate(mono []int16, sampleRate int) []int16 {
	if sampleRate <= 0 || sampleRate == m.OutputRate {
		return mono
	}
	r, ok := m.resamplers[sampleRate]
	if !ok {
		var err error
		r, err = NewResampler(sampleRate, m.OutputRate)
		if err != nil {
			return mono
		}
		if m.resamplers == nil {
			m.resamplers = map[int]*Resampler{}
		}
		m.resamplers[sampleRate] = r
	}
	return r.Resample(mono)
}

func clampInt16(v int32) int16 {
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return int16(v)
}
