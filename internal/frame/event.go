// Package frame defines the pipeline's data-plane payload types: decoded
// video Frames, InputAudioSamples, encoded chunks, and the PipelineEvent
// envelope every inter-stage channel carries.
package frame

import "fmt"

// PipelineEvent is the sum of Data(T) and EOS carried on every channel
// between pipeline stages (§3). EOS is the single, idempotent end marker:
// at most one per channel, and no Data may follow it.
type PipelineEvent[T any] struct {
	isEOS bool
	data  T
}

// Data wraps a value as a Data event.
func Data[T any](v T) PipelineEvent[T] {
	return PipelineEvent[T]{data: v}
}

// EOS returns the terminal event for a channel of T.
func EOS[T any]() PipelineEvent[T] {
	return PipelineEvent[T]{isEOS: true}
}

// IsEOS reports whether this event is the end-of-stream marker.
func (e PipelineEvent[T]) IsEOS() bool { return e.isEOS }

// Value returns the carried data and true, or the zero value and false if
// this event is EOS.
func (e PipelineEvent[T]) Value() (T, bool) {
	return e.data, !e.isEOS
}

func (e PipelineEvent[T]) String() string {
	if e.isEOS {
		return "PipelineEvent(EOS)"
	}
	return fmt.Sprintf("PipelineEvent(%v)", e.data)
}

// EOSGuard enforces "EOS at most once, no Data after EOS" (§3 invariant,
// §8 property 3) on a channel of PipelineEvent[T]. It is not itself a
// channel wrapper to keep the hot path a plain chan send/recv (§5); callers
// invoke Observe on every event they are about to emit.
type EOSGuard struct {
	seenEOS bool
}

// ErrDataAfterEOS is returned by Observe when a Data event follows an EOS
// that was already observed on the same guard.
var ErrDataAfterEOS = fmt.Errorf("data event observed after EOS")

// ErrDoubleEOS is returned by Observe when EOS is observed more than once.
var ErrDoubleEOS = fmt.Errorf("EOS observed more than once")

// Observe records one event and returns an error if it violates the
// at-most-once/no-data-after-EOS invariant.
func (g *EOSGuard) Observe(isEOS bool) error {
	if g.seenEOS {
		if isEOS {
			return ErrDoubleEOS
		}
		return ErrDataAfterEOS
	}
	if isEOS {
		g.seenEOS = true
	}
	return nil
}
