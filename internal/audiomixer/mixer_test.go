package audiomixer

import (
	"testing"

	"smelter/internal/frame"
)

func TestMixSumClipSaturates(t *testing.T) {
	m := New(MixSumClip, 48000, 1)
	a := Input{ID: "a", Gain: 1, Samples: frame.InputAudioSamples{Channels: 1, Samples: []int16{30000, 30000}}}
	b := Input{ID: "b", Gain: 1, Samples: frame.InputAudioSamples{Channels: 1, Samples: []int16{30000, 30000}}}
	out := m.Mix(frame.InputAudioSamples{}, []Input{a, b})
	if out.Samples[0] != 32767 {
		t.Fatalf("expected saturation to int16 max, got %d", out.Samples[0])
	}
}

func TestMixSumScaleDividesByActiveInputs(t *testing.T) {
	m := New(MixSumScale, 48000, 1)
	a := Input{ID: "a", Gain: 1, Samples: frame.InputAudioSamples{Channels: 1, Samples: []int16{100, 100}}}
	b := Input{ID: "b", Gain: 1, Samples: frame.InputAudioSamples{Channels: 1, Samples: []int16{300, 300}}}
	out := m.Mix(frame.InputAudioSamples{}, []Input{a, b})
	if out.Samples[0] != 200 {
		t.Fatalf("expected average of 100 and 300 to be 200, got %d", out.Samples[0])
	}
}

func TestMixIgnoresZeroGainInputsInSumScaleDenominator(t *testing.T) {
	m := New(MixSumScale, 48000, 1)
	a := Input{ID: "a", Gain: 1, Samples: frame.InputAudioSamples{Channels: 1, Samples: []int16{200}}}
	muted := Input{ID: "m", Gain: 0, Samples: frame.InputAudioSamples{Channels: 1, Samples: []int16{9000}}}
	out := m.Mix(frame.InputAudioSamples{}, []Input{a, muted})
	if out.Samples[0] != 200 {
		t.Fatalf("expected muted input excluded from both sum and denominator, got %d", out.Samples[0])
	}
}

func TestConvertChannelsStereoToMonoAverages(t *testing.T) {
	out := ConvertChannels([]int16{100, 200, 300, 400}, 2, 1)
	if len(out) != 2 || out[0] != 150 || out[1] != 350 {
		t.Fatalf("unexpected stereo->mono conversion: %+v", out)
	}
}

func TestConvertChannelsMonoToStereoDuplicates(t *testing.T) {
	out := ConvertChannels([]int16{100, 200}, 1, 2)
	if len(out) != 4 || out[0] != 100 || out[1] != 100 || out[2] != 200 || out[3] != 200 {
		t.Fatalf("unexpected mono->stereo conversion: %+v", out)
	}
}

func TestResamplerPassthroughWhenRatesMatch(t *testing.T) {
	r, err := NewResampler(48000, 48000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	in := []int16{1, 2, 3, 4}
	out := r.Resample(in)
	if len(out) != len(in) {
		t.Fatalf("expected passthrough to preserve length")
	}
	for i := range in {
		if out[i] != in[i] {
			t.Fatalf("expected passthrough to preserve samples, got %+v", out)
		}
	}
}
