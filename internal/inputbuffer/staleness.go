package inputbuffer

import "time"

// StaleFramePolicy decides what a non-required, late input contributes to
// a tick when it has no frame whose pts is close to the tick time. This
// implements the Open Question decision recorded in SPEC_FULL.md: show
// the last-known frame if it is still within a configurable staleness
// window, otherwise fall back to black/silence.
type StaleFramePolicy struct {
	// MaxStaleness is how long a last-known frame may be reused for before
	// the policy falls back to black/silence.
	MaxStaleness time.Duration
}

// NewStaleFramePolicy returns a policy with the given staleness window.
// A non-positive window means "never reuse a stale frame".
func NewStaleFramePolicy(maxStaleness time.Duration) StaleFramePolicy {
	return StaleFramePolicy{MaxStaleness: maxStaleness}
}

// ShouldReuse reports whether a last-known frame with pts lastFramePts
// should still be shown at tick time t, instead of falling back to a
// black/silent placeholder.
func (p StaleFramePolicy) ShouldReuse(lastFramePts, t time.Duration) bool {
	if p.MaxStaleness <= 0 {
		return false
	}
	age := t - lastFramePts
	if age < 0 {
		age = -age
	}
	return age <= p.MaxStaleness
}
