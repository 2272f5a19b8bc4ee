// Package inputbuffer implements the per-input adaptive delay estimator
// (§4.3): it observes inter-arrival jitter and exposes Size() -> Duration,
// the buffer_duration an input's frames are held for before becoming
// eligible for a queue tick.
//
// Adapted from the teacher's bridge/pcm/playout_buffer.go drift control
// (EWMA-style accumulation nudging a PCM backlog toward a target) and
// bridge/pipeline/silence_filler.go's RTP timestamp-gap detection, which
// together are exactly the "observe arrival jitter, smooth it, expose a
// delay" shape §4.3 asks for, generalized from "keep a fixed frame
// backlog" to "estimate how much to delay presentation".
package inputbuffer

import (
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"
)

// Policy selects how Size() is computed.
type Policy int

const (
	// PolicyFixed returns a caller-configured constant duration
	// (QueueInputOptions.buffer_duration set, §4.3).
	PolicyFixed Policy = iota
	// PolicyEWMA smooths expected_pts - actual_arrival with an
	// exponentially-weighted moving average, the teacher's driftAcc shape.
	PolicyEWMA
	// PolicyAdaptive tracks the 95th percentile of arrival lateness over a
	// sliding window (§4.3), used when required=false and no explicit
	// offset was given.
	PolicyAdaptive
)

// Estimator tracks arrival jitter for one input and exposes Size().
type Estimator struct {
	policy Policy
	fixed  time.Duration

	// EWMA state.
	ewmaAlpha float64
	ewma      time.Duration
	haveEWMA  bool

	// Adaptive state: a ring of recent lateness samples.
	window    []time.Duration
	windowCap int
	windowPos int
	filled    bool
}

// NewFixed returns an Estimator that always reports d.
func NewFixed(d time.Duration) *Estimator {
	return &Estimator{policy: PolicyFixed, fixed: d}
}

// NewEWMA returns an Estimator using an exponentially-weighted moving
// average of arrival lateness, with smoothing factor alpha in (0, 1].
// Larger alpha reacts faster to new samples, matching the teacher's
// driftAcc += errFrames/2 hysteresis (alpha ~= 0.5 is a reasonable default
// and is what queue's newEstimatorFor uses).
func NewEWMA(alpha float64) *Estimator {
	if alpha <= 0 || alpha > 1 {
		alpha = 0.5
	}
	return &Estimator{policy: PolicyEWMA, ewmaAlpha: alpha}
}

// NewAdaptive returns an Estimator tracking the 95th percentile of arrival
// lateness over the last windowSize samples (§4.3's Adaptive policy).
func NewAdaptive(windowSize int) *Estimator {
	if windowSize < 1 {
		windowSize = 50
	}
	return &Estimator{policy: PolicyAdaptive, windowCap: windowSize, window: make([]time.Duration, windowSize)}
}

// Observe records one arrival sample: how late (positive) or early
// (negative) a frame's arrival was relative to its expected pipeline
// arrival time (expectedPts - actualArrival in §4.3's EWMA description,
// sign-flipped here so "more lateness" is a positive number).
func (e *Estimator) Observe(lateness time.Duration) {
	switch e.policy {
	case PolicyFixed:
		// Fixed policy ignores observations entirely.
	case PolicyEWMA:
		if !e.haveEWMA {
			e.ewma = lateness
			e.haveEWMA = true
			return
		}
		e.ewma = time.Duration(float64(e.ewma)*(1-e.ewmaAlpha) + float64(lateness)*e.ewmaAlpha)
	case PolicyAdaptive:
		e.window[e.windowPos] = lateness
		e.windowPos++
		if e.windowPos >= e.windowCap {
			e.windowPos = 0
			e.filled = true
		}
	}
}

// Size returns the current buffer_size() duration this estimator implies.
// Negative lateness estimates are clamped to zero: an input arriving
// early never needs negative buffering.
func (e *Estimator) Size() time.Duration {
	switch e.policy {
	case PolicyFixed:
		return e.fixed
	case PolicyEWMA:
		if e.ewma < 0 {
			return 0
		}
		return e.ewma
	case PolicyAdaptive:
		p := e.percentile95()
		if p < 0 {
			return 0
		}
		return p
	default:
		return 0
	}
}

func (e *Estimator) percentile95() time.Duration {
	n := e.windowCap
	if !e.filled {
		n = e.windowPos
	}
	if n == 0 {
		return 0
	}
	samples := make([]float64, n)
	for i := 0; i < n; i++ {
		samples[i] = float64(e.window[i])
	}
	return time.Duration(percentile(samples, 0.95))
}

// percentile computes the p-th percentile (0..1) of samples via
// gonum.org/v1/gonum/stat.Quantile, which requires its input sorted
// ascending (stat.CumulantKind Empirical returns the smallest sample at or
// above the p-th fraction of the window, with no interpolation).
func percentile(samples []float64, p float64) float64 {
	sorted := append([]float64(nil), samples...)
	sort.Float64s(sorted)
	return stat.Quantile(p, stat.Empirical, sorted, nil)
}
