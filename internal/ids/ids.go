// Package ids provides the opaque interned identifiers used throughout the
// pipeline (InputId, OutputId, ComponentId, RendererId) plus Ref, a
// reference-counted handle whose release cascades into deregistration.
package ids

import "fmt"

// InputId identifies a registered input for the lifetime of its registration.
type InputId string

// OutputId identifies a registered output for the lifetime of its registration.
type OutputId string

// ComponentId identifies a node in a scene tree (rescaler, tile, view, ...).
type ComponentId string

// RendererId identifies a user-supplied renderer resource (shader, image, web).
type RendererId string

func (i InputId) String() string      { return string(i) }
func (i OutputId) String() string     { return string(i) }
func (i ComponentId) String() string  { return string(i) }
func (i RendererId) String() string   { return string(i) }

// ErrEmptyId is returned when an id is constructed from an empty string.
var ErrEmptyId = fmt.Errorf("id must not be empty")

// NewInputId validates and wraps a raw string as an InputId.
func NewInputId(raw string) (InputId, error) {
	if raw == "" {
		return "", ErrEmptyId
	}
	return InputId(raw), nil
}

// NewOutputId validates and wraps a raw string as an OutputId.
func NewOutputId(raw string) (OutputId, error) {
	if raw == "" {
		return "", ErrEmptyId
	}
	return OutputId(raw), nil
}
